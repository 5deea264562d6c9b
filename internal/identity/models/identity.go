package models

import (
	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
)

// Identity is the device's private anonymous identity. Both values are secret
// and never leave the device; only derived hashes are transmitted.
type Identity struct {
	NullifierSeed string
	Secret        string
}

// Scalars is an Identity parsed into field elements.
type Scalars struct {
	NullifierSeed field.Scalar
	Secret        field.Scalar
}

// New validates both halves as hexadecimal before anything is derived from them.
func New(nullifierSeed, secret string) (Identity, error) {
	id := Identity{NullifierSeed: nullifierSeed, Secret: secret}
	if _, err := id.Parse(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Parse converts both halves into scalars, failing with
// CodeInvalidScalarEncoding on malformed input.
func (i Identity) Parse() (Scalars, error) {
	seed, err := field.ParseScalar(i.NullifierSeed)
	if err != nil {
		return Scalars{}, dErrors.Wrap(err, dErrors.CodeInvalidScalarEncoding, "nullifier seed is not hexadecimal")
	}
	secret, err := field.ParseScalar(i.Secret)
	if err != nil {
		return Scalars{}, dErrors.Wrap(err, dErrors.CodeInvalidScalarEncoding, "secret is not hexadecimal")
	}
	return Scalars{NullifierSeed: seed, Secret: secret}, nil
}

// Commitment is the registry leaf: Hash2(nullifierSeed, secret).
func (s Scalars) Commitment() field.Scalar {
	return field.Hash2(s.NullifierSeed, s.Secret)
}

// NullifierHash is Hash1(nullifierSeed). It is stable for the lifetime of the
// identity, which is what lets the ledger reject a second report.
func (s Scalars) NullifierHash() field.Scalar {
	return field.Hash1(s.NullifierSeed)
}

// String keeps secrets out of logs and error messages.
func (i Identity) String() string {
	return "Identity{redacted}"
}
