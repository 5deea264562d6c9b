// Package groth16 is an in-process development prover. It compiles the
// membership circuit for a fixed depth, runs (or loads) a Groth16 setup over
// BN254, and proves one assignment at a time.
//
// The setup is not a trusted ceremony. Use it for local testing and for
// generating a matching verifier contract, never in production.
package groth16

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	gnarklogger "github.com/consensys/gnark/logger"
	"golang.org/x/sync/semaphore"

	"clearcrew/internal/prover"
	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
)

const curve = ecc.BN254

var quietGnark sync.Once

type Backend struct {
	depth  int
	ccs    constraint.ConstraintSystem
	pk     groth16.ProvingKey
	vk     groth16.VerifyingKey
	sem    *semaphore.Weighted
	logger *slog.Logger
}

type Option func(*Backend)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// Compile builds the constraint system for a tree of the given depth.
func Compile(depth int) (constraint.ConstraintSystem, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("tree depth must be positive, got %d", depth)
	}
	quietGnark.Do(gnarklogger.Disable)
	ccs, err := frontend.Compile(curve.ScalarField(), r1cs.NewBuilder, NewCircuit(depth))
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	return ccs, nil
}

// Setup compiles the circuit and runs a fresh Groth16 setup.
func Setup(depth int, opts ...Option) (*Backend, error) {
	ccs, err := Compile(depth)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return newBackend(depth, ccs, pk, vk, opts), nil
}

// Load compiles the circuit and reads keys written by WriteKeys.
func Load(depth int, pkr, vkr io.Reader, opts ...Option) (*Backend, error) {
	ccs, err := Compile(depth)
	if err != nil {
		return nil, err
	}
	pk := groth16.NewProvingKey(curve)
	if _, err := pk.ReadFrom(pkr); err != nil {
		return nil, fmt.Errorf("read proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(curve)
	if _, err := vk.ReadFrom(vkr); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return newBackend(depth, ccs, pk, vk, opts), nil
}

func newBackend(depth int, ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, opts []Option) *Backend {
	b := &Backend{
		depth:  depth,
		ccs:    ccs,
		pk:     pk,
		vk:     vk,
		sem:    semaphore.NewWeighted(1),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string {
	return "groth16"
}

func (b *Backend) Depth() int {
	return b.depth
}

// Prove returns the proof in the verifier calldata layout (see ProofSize), the
// form the exported contract and the ledger consume. An assignment that does
// not satisfy the circuit fails with CodeProofGenerationFailed.
func (b *Backend) Prove(ctx context.Context, in prover.Inputs) (prover.Proof, error) {
	if in.Depth() != b.depth || len(in.PathIndices) != b.depth || len(in.ActiveBits) != b.depth {
		return nil, dErrors.New(dErrors.CodeProofGenerationFailed,
			fmt.Sprintf("witness depth %d does not match circuit depth %d", in.Depth(), b.depth))
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	full, err := frontend.NewWitness(assignment(in), curve.ScalarField())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeProofGenerationFailed, "failed to build witness")
	}
	proof, err := groth16.Prove(b.ccs, b.pk, full)
	if err != nil {
		b.logger.DebugContext(ctx, "groth16 prove failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeProofGenerationFailed, "inputs do not satisfy the membership circuit")
	}
	encoded, err := encodeProof(proof)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode proof")
	}
	return encoded, nil
}

// Verify checks a proof produced by Prove against its public inputs.
func (b *Backend) Verify(proofBytes []byte, root, nullifierHash field.Scalar) error {
	proof, err := decodeProof(proofBytes)
	if err != nil {
		return fmt.Errorf("read proof: %w", err)
	}
	public := NewCircuit(b.depth)
	fillZero(public)
	public.Root = root.BigInt()
	public.NullifierHash = nullifierHash.BigInt()
	w, err := frontend.NewWitness(public, curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness: %w", err)
	}
	if err := groth16.Verify(proof, b.vk, w); err != nil {
		return errors.Join(errors.New("proof does not verify"), err)
	}
	return nil
}

// WriteKeys persists the proving and verifying keys for Load.
func (b *Backend) WriteKeys(pkw, vkw io.Writer) error {
	if _, err := b.pk.WriteTo(pkw); err != nil {
		return fmt.Errorf("write proving key: %w", err)
	}
	if _, err := b.vk.WriteTo(vkw); err != nil {
		return fmt.Errorf("write verifying key: %w", err)
	}
	return nil
}

// ExportSolidity writes a verifier contract matching the verifying key.
func (b *Backend) ExportSolidity(w io.Writer) error {
	return b.vk.ExportSolidity(w)
}

func assignment(in prover.Inputs) *Circuit {
	c := NewCircuit(in.Depth())
	c.CustomNullifier = in.CustomNullifier.BigInt()
	c.Secret = in.Secret.BigInt()
	c.ItemKey = in.ItemKey.BigInt()
	c.ItemNextIdx = in.ItemNextIdx.BigInt()
	c.ItemNextKey = in.ItemNextKey.BigInt()
	c.ItemValue = in.ItemValue.BigInt()
	for i := range in.PathElements {
		c.PathElements[i] = in.PathElements[i].BigInt()
		c.PathIndices[i] = new(big.Int).SetUint64(uint64(in.PathIndices[i]))
		c.ActiveBits[i] = new(big.Int).SetUint64(uint64(in.ActiveBits[i]))
	}
	c.Root = in.Root.BigInt()
	c.NullifierHash = in.NullifierHash.BigInt()
	return c
}

func fillZero(c *Circuit) {
	c.CustomNullifier, c.Secret = 0, 0
	c.ItemKey, c.ItemNextIdx, c.ItemNextKey, c.ItemValue = 0, 0, 0, 0
	for i := range c.PathElements {
		c.PathElements[i], c.PathIndices[i], c.ActiveBits[i] = 0, 0, 0
	}
}
