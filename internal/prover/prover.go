// Package prover assembles membership-circuit inputs and hands them to a
// proving backend. Backends live in subpackages: remote talks to a prover
// service, groth16 proves in-process for development.
package prover

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"time"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/platform/metrics"
	"clearcrew/internal/witness"
	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
)

// Proof is an opaque proof artifact. Only the ledger call consumes it.
type Proof []byte

// Hex returns the 0x-prefixed hex form used on JSON wires.
func (p Proof) Hex() string {
	return "0x" + hex.EncodeToString(p)
}

// Backend produces a proof for a full assignment. Implementations must fail
// when the inputs do not satisfy the circuit.
type Backend interface {
	Name() string
	Prove(ctx context.Context, in Inputs) (Proof, error)
}

type Orchestrator struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func New(backend Backend, opts ...Option) (*Orchestrator, error) {
	if backend == nil {
		return nil, errors.New("prover backend is required")
	}
	o := &Orchestrator{
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// BuildProof proves membership of id in the tree described by w. A backend
// rejection surfaces as CodeProofGenerationFailed and is never retried.
func (o *Orchestrator) BuildProof(ctx context.Context, id models.Scalars, w witness.MerkleWitness, itemValue, nullifierHash field.Scalar) (Proof, error) {
	in := NewInputs(id, w, itemValue, nullifierHash)

	start := time.Now()
	proof, err := o.backend.Prove(ctx, in)
	o.metrics.ObserveProof(o.backend.Name(), time.Since(start))
	if err != nil {
		o.logger.WarnContext(ctx, "proof generation failed",
			"backend", o.backend.Name(),
			"root", w.Root.Hex(),
			"error", err,
		)
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeProofGenerationFailed, "prover rejected the inputs")
	}
	if len(proof) == 0 {
		return nil, dErrors.New(dErrors.CodeProofGenerationFailed, "prover returned an empty proof")
	}
	o.logger.InfoContext(ctx, "proof generated",
		"backend", o.backend.Name(),
		"bytes", len(proof),
		"duration", time.Since(start),
	)
	return proof, nil
}
