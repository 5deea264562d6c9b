package groth16

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// ProofSize is the length of an encoded proof: eight 32-byte big-endian words,
// the uint256[8] argument of the exported verifier's verifyProof.
const ProofSize = 8 * fp.Bytes

// encodeProof lays the proof out as A.x, A.y, B.x.a1, B.x.a0, B.y.a1, B.y.a0,
// C.x, C.y. G2 coordinates put the imaginary part first, as the pairing
// precompile expects.
func encodeProof(p groth16.Proof) ([]byte, error) {
	proof, ok := p.(*groth16bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", p)
	}
	if len(proof.Commitments) > 0 {
		return nil, errors.New("proofs with commitments have no fixed verifier layout")
	}
	words := []*fp.Element{
		&proof.Ar.X, &proof.Ar.Y,
		&proof.Bs.X.A1, &proof.Bs.X.A0, &proof.Bs.Y.A1, &proof.Bs.Y.A0,
		&proof.Krs.X, &proof.Krs.Y,
	}
	out := make([]byte, 0, ProofSize)
	for _, w := range words {
		b := w.Bytes()
		out = append(out, b[:]...)
	}
	return out, nil
}

// decodeProof is the inverse of encodeProof. Every coordinate must be a
// canonical base-field element and every point must lie in its subgroup.
func decodeProof(b []byte) (*groth16bn254.Proof, error) {
	if len(b) != ProofSize {
		return nil, fmt.Errorf("proof must be %d bytes, got %d", ProofSize, len(b))
	}
	proof := new(groth16bn254.Proof)
	words := []*fp.Element{
		&proof.Ar.X, &proof.Ar.Y,
		&proof.Bs.X.A1, &proof.Bs.X.A0, &proof.Bs.Y.A1, &proof.Bs.Y.A0,
		&proof.Krs.X, &proof.Krs.Y,
	}
	for i, w := range words {
		if err := w.SetBytesCanonical(b[i*fp.Bytes : (i+1)*fp.Bytes]); err != nil {
			return nil, fmt.Errorf("proof word %d: %w", i, err)
		}
	}
	if !proof.Ar.IsInSubGroup() || !proof.Krs.IsInSubGroup() || !proof.Bs.IsInSubGroup() {
		return nil, errors.New("proof point is not in the prime-order subgroup")
	}
	return proof, nil
}
