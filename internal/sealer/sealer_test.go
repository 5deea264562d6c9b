package sealer

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"clearcrew/internal/report"
	dErrors "clearcrew/pkg/domain-errors"
)

var sample = report.Report{Title: "t", Description: "d"}

type SealerSuite struct {
	suite.Suite
	rsaKey   *rsa.PrivateKey
	rsaPEM   string
	rsaB64   string
	x25519   *ecdh.PrivateKey
	x25519KB string
}

func TestSealerSuite(t *testing.T) {
	suite.Run(t, new(SealerSuite))
}

func (s *SealerSuite) SetupSuite() {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	s.rsaKey = k
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	s.Require().NoError(err)
	s.rsaPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	s.rsaB64 = base64.StdEncoding.EncodeToString(der)

	x, err := ecdh.X25519().GenerateKey(rand.Reader)
	s.Require().NoError(err)
	s.x25519 = x
	xder, err := x509.MarshalPKIXPublicKey(x.PublicKey())
	s.Require().NoError(err)
	s.x25519KB = base64.StdEncoding.EncodeToString(xder)
}

func (s *SealerSuite) canonical() []byte {
	b, err := sample.Canonical()
	s.Require().NoError(err)
	return b
}

func (s *SealerSuite) TestHybridRoundTripPEM() {
	sl, err := New(WithScheme(SchemeOAEPAESGCM))
	s.Require().NoError(err)

	sealed, err := sl.Seal(sample, s.rsaPEM)
	s.Require().NoError(err)
	s.Equal(VersionRSAHybrid, sealed[0])

	plain, err := Open(sealed, s.rsaKey)
	s.Require().NoError(err)
	s.Equal(s.canonical(), plain)
}

func (s *SealerSuite) TestHybridAcceptsBareBase64WithLineBreaks() {
	sl, err := New(WithScheme(SchemeOAEPAESGCM))
	s.Require().NoError(err)
	wrapped := s.rsaB64[:40] + "\n" + s.rsaB64[40:]

	sealed, err := sl.Seal(sample, wrapped)
	s.Require().NoError(err)
	_, err = Open(sealed, s.rsaKey)
	s.NoError(err)
}

func (s *SealerSuite) TestHybridIsRandomized() {
	sl, err := New(WithScheme(SchemeOAEPAESGCM))
	s.Require().NoError(err)
	a, err := sl.Seal(sample, s.rsaPEM)
	s.Require().NoError(err)
	b, err := sl.Seal(sample, s.rsaPEM)
	s.Require().NoError(err)
	s.NotEqual(a, b)
}

func (s *SealerSuite) TestHybridHeaderIsAuthenticated() {
	sl, err := New(WithScheme(SchemeOAEPAESGCM))
	s.Require().NoError(err)
	sealed, err := sl.Seal(sample, s.rsaPEM)
	s.Require().NoError(err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = Open(sealed, s.rsaKey)
	s.Error(err)
}

func (s *SealerSuite) TestDefaultSchemeIsPKCS1() {
	sl, err := New()
	s.Require().NoError(err)

	sealed, err := sl.Seal(sample, s.rsaPEM)
	s.Require().NoError(err)
	s.Len(sealed, 256, "raw RSA block, no envelope header")

	plain, err := OpenPKCS1(sealed, s.rsaKey)
	s.Require().NoError(err)
	s.Equal(s.canonical(), plain)
}

func (s *SealerSuite) TestPKCS1RoundTrip() {
	sl, err := New(WithScheme(SchemePKCS1v15))
	s.Require().NoError(err)

	sealed, err := sl.Seal(sample, s.rsaPEM)
	s.Require().NoError(err)
	s.Len(sealed, 256)

	plain, err := OpenPKCS1(sealed, s.rsaKey)
	s.Require().NoError(err)
	s.Equal(s.canonical(), plain)
}

func (s *SealerSuite) TestPKCS1FailsClosedOnLongReport() {
	sl, err := New(WithScheme(SchemePKCS1v15))
	s.Require().NoError(err)

	_, err = sl.Seal(report.Report{Title: "t", Description: strings.Repeat("x", 400)}, s.rsaPEM)
	s.True(dErrors.Is(err, dErrors.CodeSealingFailed))
}

func (s *SealerSuite) TestX25519RoundTrip() {
	sl, err := New()
	s.Require().NoError(err)

	sealed, err := sl.Seal(sample, s.x25519KB)
	s.Require().NoError(err)
	s.Equal(VersionX25519Box, sealed[0])

	plain, err := Open(sealed, s.x25519)
	s.Require().NoError(err)
	s.Equal(s.canonical(), plain)
}

func (s *SealerSuite) TestInvalidReportIsNotSealed() {
	sl, err := New()
	s.Require().NoError(err)

	_, err = sl.Seal(report.Report{Title: "t"}, s.rsaPEM)
	s.True(dErrors.Is(err, dErrors.CodeInvalidReport))
}

func TestSealRejectsBadKeys(t *testing.T) {
	sl, err := New()
	require.NoError(t, err)

	small, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	smallDER, err := x509.MarshalPKIXPublicKey(&small.PublicKey)
	require.NoError(t, err)

	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecDER, err := x509.MarshalPKIXPublicKey(&ec.PublicKey)
	require.NoError(t, err)

	for name, key := range map[string]string{
		"empty":         "",
		"garbage":       "not a key!",
		"bad pem":       "-----BEGIN PUBLIC KEY-----\nAAAA\n",
		"short rsa":     base64.StdEncoding.EncodeToString(smallDER),
		"ecdsa p256":    base64.StdEncoding.EncodeToString(ecDER),
		"random base64": base64.StdEncoding.EncodeToString([]byte("hello world")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := sl.Seal(sample, key)
			assert.True(t, dErrors.Is(err, dErrors.CodeSealingFailed), "%v", err)
		})
	}
}

func TestParsePKCS1PEM(t *testing.T) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&k.PublicKey)})

	got, err := ParsePublicKey(string(p))
	require.NoError(t, err)
	assert.True(t, k.PublicKey.Equal(got))
}

func TestNewRejectsUnknownScheme(t *testing.T) {
	_, err := New(WithScheme("rot13"))
	assert.Error(t, err)
}
