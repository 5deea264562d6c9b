package field

import "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

// Hash1 derives the nullifier hash from a nullifier seed. It is reserved for
// that purpose; do not use it to build commitments.
func Hash1(x Scalar) Scalar {
	return sponge(x)
}

// Hash2 derives the commitment (registry leaf) from a nullifier seed and a
// secret. It is reserved for that purpose; do not use it for nullifiers.
func Hash2(x, y Scalar) Scalar {
	return sponge(x, y)
}

// sponge absorbs each input as one canonical 32-byte block into MiMC-BN254.
// Arity changes the number of absorbed blocks and therefore the output domain.
func sponge(xs ...Scalar) Scalar {
	h := mimc.NewMiMC()
	for _, x := range xs {
		b := x.Bytes()
		// Blocks are canonical field elements by construction, so Write cannot fail.
		_, _ = h.Write(b[:])
	}
	var out Scalar
	out.e.SetBytes(h.Sum(nil))
	return out
}
