// Package field holds the BN254 scalar type shared by identity, witness, and
// proof inputs, and the two domain hashes derived from it.
//
// All scalars are fixed to a canonical 32-byte big-endian encoding before they
// are hashed or sent anywhere, so results never depend on host endianness or on
// how a caller spelled the hex (case, leading zeros, prefix).
package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	dErrors "clearcrew/pkg/domain-errors"
)

// Scalar is an element of the BN254 scalar field.
type Scalar struct {
	e fr.Element
}

// Zero is the additive identity.
var Zero = Scalar{}

// ParseScalar parses a hexadecimal string and reduces it modulo the field order.
// Identity scalars are user-chosen and may exceed the order; reduction matches
// how the registry and circuit interpret them.
func ParseScalar(s string) (Scalar, error) {
	v, err := parseHex(s)
	if err != nil {
		return Scalar{}, err
	}
	var out Scalar
	out.e.SetBigInt(v)
	return out, nil
}

// ParseCanonical parses a hexadecimal string that must already be a reduced
// field element. Tree values handed out by the registry go through here so a
// corrupted root is rejected instead of silently wrapped.
func ParseCanonical(s string) (Scalar, error) {
	v, err := parseHex(s)
	if err != nil {
		return Scalar{}, err
	}
	if v.Cmp(fr.Modulus()) >= 0 {
		return Scalar{}, dErrors.New(dErrors.CodeInvalidScalarEncoding, "value is not a canonical field element")
	}
	var out Scalar
	out.e.SetBigInt(v)
	return out, nil
}

// FromUint64 builds a scalar from a small integer.
func FromUint64(v uint64) Scalar {
	var out Scalar
	out.e.SetUint64(v)
	return out
}

// FromBytes interprets b as a big-endian integer and reduces it.
func FromBytes(b []byte) Scalar {
	var out Scalar
	out.e.SetBytes(b)
	return out
}

func parseHex(s string) (*big.Int, error) {
	digits := s
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		digits = s[2:]
	}
	if digits == "" {
		return nil, dErrors.New(dErrors.CodeInvalidScalarEncoding, "scalar is empty")
	}
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			// Never echo the input: it may be a secret.
			return nil, dErrors.New(dErrors.CodeInvalidScalarEncoding,
				fmt.Sprintf("invalid hex digit at offset %d", i))
		}
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidScalarEncoding, "scalar is not hexadecimal")
	}
	return v, nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (s Scalar) Bytes() [32]byte {
	return s.e.Bytes()
}

// MinimalBytes returns the big-endian encoding without leading zero bytes.
// Zero encodes as an empty slice.
func (s Scalar) MinimalBytes() []byte {
	return s.BigInt().Bytes()
}

// BigInt returns the integer value of s.
func (s Scalar) BigInt() *big.Int {
	return s.e.BigInt(new(big.Int))
}

// Hex returns lowercase hex with no prefix and no leading zeros ("0" for zero).
// This is the registry's wire form for leaves.
func (s Scalar) Hex() string {
	return s.BigInt().Text(16)
}

// PrefixedHex returns Hex with a 0x prefix, the form circuit inputs use.
func (s Scalar) PrefixedHex() string {
	return "0x" + s.Hex()
}

func (s Scalar) String() string {
	return s.PrefixedHex()
}

// Equal reports whether both scalars are the same field element.
func (s Scalar) Equal(o Scalar) bool {
	return s.e.Equal(&o.e)
}

// IsZero reports whether s is the zero element.
func (s Scalar) IsZero() bool {
	return s.e.IsZero()
}

// Element exposes the underlying field element for circuit assignment.
func (s Scalar) Element() fr.Element {
	return s.e
}
