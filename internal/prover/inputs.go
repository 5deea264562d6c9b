package prover

import (
	"fmt"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/witness"
	"clearcrew/internal/zk/field"
)

// Circuit input names, as the circuit declares them.
const (
	InputCustomNullifier = "custom_nullifier"
	InputSecret          = "secret"
	InputItemKey         = "item_key"
	InputItemNextIdx     = "item_nextIdx"
	InputItemNextKey     = "item_nextKey"
	InputItemValue       = "item_value"
	InputPathElements    = "path_elements"
	InputPathIndices     = "path_indices"
	InputActiveBits      = "active_bits"
	InputRoot            = "root"
	InputNullifierHash   = "nullifier_hash"
)

// Inputs is the full assignment for the membership circuit. Only Root and
// NullifierHash are public.
type Inputs struct {
	CustomNullifier field.Scalar
	Secret          field.Scalar
	ItemKey         field.Scalar
	ItemNextIdx     field.Scalar
	ItemNextKey     field.Scalar
	ItemValue       field.Scalar
	PathElements    []field.Scalar
	PathIndices     []uint8
	ActiveBits      []uint8
	Root            field.Scalar
	NullifierHash   field.Scalar
}

// NewInputs assembles the assignment from the identity, a fresh witness, and
// the two locally derived hashes.
func NewInputs(id models.Scalars, w witness.MerkleWitness, itemValue, nullifierHash field.Scalar) Inputs {
	return Inputs{
		CustomNullifier: id.NullifierSeed,
		Secret:          id.Secret,
		ItemKey:         w.ItemKey,
		ItemNextIdx:     w.ItemNextIdx,
		ItemNextKey:     w.ItemNextKey,
		ItemValue:       itemValue,
		PathElements:    w.PathElements,
		PathIndices:     w.PathIndices,
		ActiveBits:      w.ActiveBits,
		Root:            w.Root,
		NullifierHash:   nullifierHash,
	}
}

func (in Inputs) Depth() int {
	return len(in.PathElements)
}

// Named renders the assignment in the wire form external provers take:
// scalars as 0x-prefixed lowercase hex, bits as "0" or "1".
func (in Inputs) Named() map[string]any {
	return map[string]any{
		InputCustomNullifier: in.CustomNullifier.PrefixedHex(),
		InputSecret:          in.Secret.PrefixedHex(),
		InputItemKey:         in.ItemKey.PrefixedHex(),
		InputItemNextIdx:     in.ItemNextIdx.PrefixedHex(),
		InputItemNextKey:     in.ItemNextKey.PrefixedHex(),
		InputItemValue:       in.ItemValue.PrefixedHex(),
		InputPathElements:    hexAll(in.PathElements),
		InputPathIndices:     bits(in.PathIndices),
		InputActiveBits:      bits(in.ActiveBits),
		InputRoot:            in.Root.PrefixedHex(),
		InputNullifierHash:   in.NullifierHash.PrefixedHex(),
	}
}

func hexAll(xs []field.Scalar) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = x.PrefixedHex()
	}
	return out
}

func bits(bs []uint8) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = fmt.Sprint(b)
	}
	return out
}
