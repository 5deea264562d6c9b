// Package sealer encrypts a report's canonical bytes under the registry's
// public key. Only the holder of the matching private key can read a sealed
// report; the pipeline never keeps the plaintext after sealing.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"

	"clearcrew/internal/report"
	dErrors "clearcrew/pkg/domain-errors"
)

// Scheme selects how RSA keys are used. X25519 keys always use a sealed box.
type Scheme string

const (
	// SchemePKCS1v15 encrypts the report directly with RSA PKCS#1 v1.5. It is
	// the default because it is what the registry decrypts.
	SchemePKCS1v15 Scheme = "pkcs1v15"
	// SchemeOAEPAESGCM wraps a fresh AES-256 key with RSA-OAEP-SHA256 and
	// encrypts the report with AES-256-GCM. Opt in only when the registry
	// understands the envelope.
	SchemeOAEPAESGCM Scheme = "oaep-aes-gcm"
)

// Envelope version bytes.
const (
	VersionRSAHybrid byte = 0x01
	VersionX25519Box byte = 0x02
)

const (
	minRSABits = 2048
	aesKeySize = 32
)

type Sealer struct {
	scheme Scheme
	rand   io.Reader
}

type Option func(*Sealer)

func WithScheme(scheme Scheme) Option {
	return func(s *Sealer) {
		s.scheme = scheme
	}
}

// WithRand replaces the randomness source.
func WithRand(r io.Reader) Option {
	return func(s *Sealer) {
		s.rand = r
	}
}

func New(opts ...Option) (*Sealer, error) {
	s := &Sealer{scheme: SchemePKCS1v15, rand: rand.Reader}
	for _, opt := range opts {
		opt(s)
	}
	switch s.scheme {
	case SchemeOAEPAESGCM, SchemePKCS1v15:
	default:
		return nil, fmt.Errorf("unknown sealing scheme %q", s.scheme)
	}
	return s, nil
}

// Seal encodes r canonically and encrypts it under publicKey. Every failure,
// including an unparseable key, is CodeSealingFailed.
func (s *Sealer) Seal(r report.Report, publicKey string) ([]byte, error) {
	plaintext, err := r.Canonical()
	if err != nil {
		return nil, err
	}
	key, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "server public key is unusable")
	}

	switch k := key.(type) {
	case *rsa.PublicKey:
		if k.N.BitLen() < minRSABits {
			return nil, dErrors.New(dErrors.CodeSealingFailed, fmt.Sprintf("RSA key is %d bits, need at least %d", k.N.BitLen(), minRSABits))
		}
		if s.scheme == SchemePKCS1v15 {
			return s.sealPKCS1(k, plaintext)
		}
		return s.sealHybrid(k, plaintext)
	case *ecdh.PublicKey:
		return s.sealBox(k, plaintext)
	default:
		return nil, dErrors.New(dErrors.CodeSealingFailed, fmt.Sprintf("unsupported key type %T", key))
	}
}

// sealHybrid layout:
//
//	0x01 | uint16 BE len(wrapped) | wrapped key | 12-byte nonce | GCM ciphertext
//
// The bytes before the nonce are the GCM associated data.
func (s *Sealer) sealHybrid(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(s.rand, key); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "failed to generate content key")
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), s.rand, pub, key, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "failed to wrap content key")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "failed to init cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "failed to init GCM")
	}

	header := make([]byte, 3, 3+len(wrapped))
	header[0] = VersionRSAHybrid
	binary.BigEndian.PutUint16(header[1:3], uint16(len(wrapped)))
	header = append(header, wrapped...)

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "failed to generate nonce")
	}

	out := make([]byte, 0, len(header)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, header), nil
}

func (s *Sealer) sealPKCS1(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	out, err := rsa.EncryptPKCS1v15(s.rand, pub, plaintext)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "report does not fit the RSA key")
	}
	return out, nil
}

func (s *Sealer) sealBox(pub *ecdh.PublicKey, plaintext []byte) ([]byte, error) {
	var recipient [32]byte
	copy(recipient[:], pub.Bytes())
	out, err := box.SealAnonymous([]byte{VersionX25519Box}, plaintext, &recipient, s.rand)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSealingFailed, "failed to seal box")
	}
	return out, nil
}
