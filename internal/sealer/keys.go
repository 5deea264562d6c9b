package sealer

import (
	"crypto"
	"crypto/ecdh"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// ParsePublicKey accepts a PEM block ("PUBLIC KEY" or "RSA PUBLIC KEY") or
// bare base64 DER, either SubjectPublicKeyInfo or PKCS#1. It returns an
// *rsa.PublicKey or an X25519 *ecdh.PublicKey.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("public key is empty")
	}
	var der []byte
	if strings.HasPrefix(s, "-----BEGIN") {
		block, _ := pem.Decode([]byte(s))
		if block == nil {
			return nil, errors.New("public key PEM block is malformed")
		}
		der = block.Bytes
	} else {
		compact := strings.Join(strings.Fields(s), "")
		decoded, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return nil, fmt.Errorf("public key is neither PEM nor base64: %w", err)
		}
		der = decoded
	}

	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		switch k := key.(type) {
		case *rsa.PublicKey:
			return k, nil
		case *ecdh.PublicKey:
			if k.Curve() != ecdh.X25519() {
				return nil, errors.New("only X25519 is supported for ECDH keys")
			}
			return k, nil
		default:
			return nil, fmt.Errorf("unsupported public key type %T", key)
		}
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("public key DER is not a supported key")
}
