package sealer

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// Open reverses Seal for the holder of the private key. It recognizes the
// hybrid RSA envelope and the X25519 sealed box; PKCS#1 v1.5 ciphertexts
// carry no version byte and go through OpenPKCS1 instead.
func Open(sealed []byte, priv crypto.PrivateKey) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, errors.New("sealed report is empty")
	}
	switch k := priv.(type) {
	case *rsa.PrivateKey:
		return openHybrid(sealed, k)
	case *ecdh.PrivateKey:
		return openBox(sealed, k)
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

func OpenPKCS1(sealed []byte, priv *rsa.PrivateKey) ([]byte, error) {
	return rsa.DecryptPKCS1v15(nil, priv, sealed)
}

func openHybrid(sealed []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if len(sealed) < 3 || sealed[0] != VersionRSAHybrid {
		return nil, errors.New("not an RSA hybrid envelope")
	}
	n := int(binary.BigEndian.Uint16(sealed[1:3]))
	if len(sealed) < 3+n {
		return nil, errors.New("envelope truncated")
	}
	header := sealed[:3+n]
	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, header[3:], nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap content key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	rest := sealed[3+n:]
	if len(rest) < gcm.NonceSize() {
		return nil, errors.New("envelope truncated")
	}
	return gcm.Open(nil, rest[:gcm.NonceSize()], rest[gcm.NonceSize():], header)
}

func openBox(sealed []byte, priv *ecdh.PrivateKey) ([]byte, error) {
	if sealed[0] != VersionX25519Box {
		return nil, errors.New("not an X25519 sealed box")
	}
	var pub, sk [32]byte
	copy(pub[:], priv.PublicKey().Bytes())
	copy(sk[:], priv.Bytes())
	out, ok := box.OpenAnonymous(nil, sealed[1:], &pub, &sk)
	if !ok {
		return nil, errors.New("sealed box does not open")
	}
	return out, nil
}
