package groth16

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Circuit is the development membership circuit. It proves that the prover
// knows (custom_nullifier, secret) whose commitment sits in an indexed-tree
// leaf under root, and that nullifier_hash was derived from the same seed.
//
// Slices must be sized to the tree depth before compiling or assigning.
type Circuit struct {
	CustomNullifier frontend.Variable   `gnark:"custom_nullifier,secret"`
	Secret          frontend.Variable   `gnark:"secret,secret"`
	ItemKey         frontend.Variable   `gnark:"item_key,secret"`
	ItemNextIdx     frontend.Variable   `gnark:"item_nextIdx,secret"`
	ItemNextKey     frontend.Variable   `gnark:"item_nextKey,secret"`
	ItemValue       frontend.Variable   `gnark:"item_value,secret"`
	PathElements    []frontend.Variable `gnark:"path_elements,secret"`
	PathIndices     []frontend.Variable `gnark:"path_indices,secret"`
	ActiveBits      []frontend.Variable `gnark:"active_bits,secret"`

	Root          frontend.Variable `gnark:"root,public"`
	NullifierHash frontend.Variable `gnark:"nullifier_hash,public"`
}

// NewCircuit allocates a circuit shape for the given depth.
func NewCircuit(depth int) *Circuit {
	return &Circuit{
		PathElements: make([]frontend.Variable, depth),
		PathIndices:  make([]frontend.Variable, depth),
		ActiveBits:   make([]frontend.Variable, depth),
	}
}

// Define enforces:
//  1. nullifier_hash == MiMC(custom_nullifier)
//  2. item_value == MiMC(custom_nullifier, secret)
//  3. folding MiMC(item_key, item_value, item_nextIdx, item_nextKey) up the
//     path reaches root, where path_indices[i] == 1 puts the running node on
//     the right and active_bits[i] == 0 stops the climb
func (c *Circuit) Define(api frontend.API) error {
	nullifierHash, err := hash(api, c.CustomNullifier)
	if err != nil {
		return err
	}
	api.AssertIsEqual(nullifierHash, c.NullifierHash)

	commitment, err := hash(api, c.CustomNullifier, c.Secret)
	if err != nil {
		return err
	}
	api.AssertIsEqual(commitment, c.ItemValue)

	node, err := hash(api, c.ItemKey, c.ItemValue, c.ItemNextIdx, c.ItemNextKey)
	if err != nil {
		return err
	}
	for i := range c.PathElements {
		api.AssertIsBoolean(c.PathIndices[i])
		api.AssertIsBoolean(c.ActiveBits[i])

		left := api.Select(c.PathIndices[i], c.PathElements[i], node)
		right := api.Select(c.PathIndices[i], node, c.PathElements[i])
		parent, err := hash(api, left, right)
		if err != nil {
			return err
		}
		node = api.Select(c.ActiveBits[i], parent, node)
	}
	api.AssertIsEqual(node, c.Root)
	return nil
}

// hash mirrors field's native sponge: one absorbed block per input.
func hash(api frontend.API, xs ...frontend.Variable) (frontend.Variable, error) {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	h.Write(xs...)
	return h.Sum(), nil
}
