// Package pipeline sequences an anonymous submission: seal the report, prove
// membership, store the ciphertext and anchor it on the ledger.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/platform/metrics"
	"clearcrew/internal/prover"
	"clearcrew/internal/registry"
	"clearcrew/internal/report"
	"clearcrew/internal/witness"
	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/platform/sentinel"
)

const tracerName = "clearcrew/internal/pipeline"

// Step names as they appear in metrics and spans.
const (
	StepValidate = "validate"
	StepIdentity = "load_identity"
	StepSeal     = "seal"
	StepWitness  = "witness"
	StepDerive   = "derive"
	StepProve    = "prove"
	StepUpload   = "upload"
	StepAnchor   = "anchor"
	StepRelay    = "relay"
)

type IdentityLoader interface {
	Load(ctx context.Context) (models.Identity, error)
}

// KeySource returns the public key reports are sealed to.
type KeySource interface {
	PublicKey(ctx context.Context) (string, error)
}

type Sealer interface {
	Seal(r report.Report, publicKey string) ([]byte, error)
}

type WitnessFetcher interface {
	Fetch(ctx context.Context) (witness.MerkleWitness, error)
}

type ProofBuilder interface {
	BuildProof(ctx context.Context, id models.Scalars, w witness.MerkleWitness, itemValue, nullifierHash field.Scalar) (prover.Proof, error)
}

type ContentStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type Ledger interface {
	Submit(ctx context.Context, proof []byte, contentID string, root field.Scalar) (string, error)
}

// Relay uploads and anchors server-side in one call.
type Relay interface {
	SubmitReport(ctx context.Context, req registry.RelayRequest) (registry.RelayResponse, error)
}

// SubmissionResult identifies a stored and anchored report.
type SubmissionResult struct {
	ContentID     string `json:"contentId"`
	TransactionID string `json:"transactionId"`
}

type Pipeline struct {
	identities IdentityLoader
	keys       KeySource
	sealer     Sealer
	witnesses  WitnessFetcher
	prover     ProofBuilder

	content ContentStore
	ledger  Ledger
	relay   Relay

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithAnchor stores ciphertext in content and anchors it with ledger.
func WithAnchor(content ContentStore, ledger Ledger) Option {
	return func(p *Pipeline) {
		p.content = content
		p.ledger = ledger
	}
}

// WithRelay hands ciphertext and proof to the registry, which stores and
// anchors them itself. It replaces WithAnchor.
func WithRelay(relay Relay) Option {
	return func(p *Pipeline) {
		p.relay = relay
	}
}

func New(identities IdentityLoader, keys KeySource, sealer Sealer, witnesses WitnessFetcher, proofs ProofBuilder, opts ...Option) (*Pipeline, error) {
	if identities == nil {
		return nil, errors.New("identity loader is required")
	}
	if keys == nil {
		return nil, errors.New("public key source is required")
	}
	if sealer == nil {
		return nil, errors.New("sealer is required")
	}
	if witnesses == nil {
		return nil, errors.New("witness fetcher is required")
	}
	if proofs == nil {
		return nil, errors.New("proof builder is required")
	}
	p := &Pipeline{
		identities: identities,
		keys:       keys,
		sealer:     sealer,
		witnesses:  witnesses,
		prover:     proofs,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.relay == nil && (p.content == nil || p.ledger == nil) {
		return nil, errors.New("either a relay or a content store and ledger are required")
	}
	return p, nil
}

// Submit runs every step in order and stops at the first failure. Nothing is
// rolled back: a ledger failure can leave ciphertext in content storage.
func (p *Pipeline) Submit(ctx context.Context, r report.Report) (SubmissionResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Submit")
	defer span.End()

	result, err := p.submit(ctx, r)
	if err != nil {
		code := dErrors.CodeOf(err)
		span.SetStatus(codes.Error, string(code))
		p.metrics.IncrementSubmission(string(code))
		p.logger.WarnContext(ctx, "submission failed", "code", code, "error", err)
		return SubmissionResult{}, err
	}
	span.SetAttributes(
		attribute.String("content_id", result.ContentID),
		attribute.String("tx", result.TransactionID),
	)
	p.metrics.IncrementSubmission("success")
	p.logger.InfoContext(ctx, "report submitted",
		"content_id", result.ContentID,
		"tx", result.TransactionID,
	)
	return result, nil
}

func (p *Pipeline) submit(ctx context.Context, r report.Report) (SubmissionResult, error) {
	var (
		scalars       models.Scalars
		sealed        []byte
		w             witness.MerkleWitness
		nullifierHash field.Scalar
		itemValue     field.Scalar
		proof         prover.Proof
	)

	err := p.step(ctx, StepValidate, func(context.Context) error {
		normalized, err := r.Normalize()
		r = normalized
		return err
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	err = p.step(ctx, StepIdentity, func(ctx context.Context) error {
		id, err := p.identities.Load(ctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNoIdentity, "no identity is registered on this device")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
		}
		scalars, err = id.Parse()
		return err
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	err = p.step(ctx, StepSeal, func(ctx context.Context) error {
		key, err := p.keys.PublicKey(ctx)
		if err != nil {
			return typed(err, dErrors.CodeNetworkFailure, "failed to fetch the server public key")
		}
		sealed, err = p.sealer.Seal(r, key)
		return typed(err, dErrors.CodeSealingFailed, "failed to seal report")
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	err = p.step(ctx, StepWitness, func(ctx context.Context) error {
		var err error
		w, err = p.witnesses.Fetch(ctx)
		return typed(err, dErrors.CodeNetworkFailure, "failed to fetch membership witness")
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	_ = p.step(ctx, StepDerive, func(ctx context.Context) error {
		nullifierHash = field.Hash1(scalars.NullifierSeed)
		itemValue = field.Hash2(scalars.NullifierSeed, scalars.Secret)
		if w.ItemValue != nil && !w.ItemValue.Equal(itemValue) {
			p.logger.WarnContext(ctx, "registry leaf value differs from local commitment",
				"registry", w.ItemValue.Hex(),
				"local", itemValue.Hex(),
			)
		}
		return nil
	})

	err = p.step(ctx, StepProve, func(ctx context.Context) error {
		var err error
		proof, err = p.prover.BuildProof(ctx, scalars, w, itemValue, nullifierHash)
		return typed(err, dErrors.CodeProofGenerationFailed, "failed to build proof")
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	if p.relay != nil {
		return p.submitViaRelay(ctx, sealed, proof, nullifierHash, w.Root)
	}
	return p.anchor(ctx, sealed, proof, w.Root)
}

func (p *Pipeline) anchor(ctx context.Context, sealed []byte, proof prover.Proof, root field.Scalar) (SubmissionResult, error) {
	var result SubmissionResult
	err := p.step(ctx, StepUpload, func(ctx context.Context) error {
		cid, err := p.content.Upload(ctx, "report-"+uuid.NewString()+".bin", sealed)
		if err != nil {
			return typed(err, dErrors.CodeUploadFailed, "failed to store sealed report")
		}
		if cid == "" {
			return dErrors.New(dErrors.CodeUploadFailed, "content store returned no identifier")
		}
		result.ContentID = cid
		return nil
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	err = p.step(ctx, StepAnchor, func(ctx context.Context) error {
		tx, err := p.ledger.Submit(ctx, proof, result.ContentID, root)
		if err != nil {
			p.logger.WarnContext(ctx, "ciphertext stored but not anchored", "content_id", result.ContentID)
			return typed(err, dErrors.CodeLedgerSubmissionFailed, "failed to anchor report")
		}
		result.TransactionID = tx
		return nil
	})
	if err != nil {
		return SubmissionResult{}, err
	}
	return result, nil
}

func (p *Pipeline) submitViaRelay(ctx context.Context, sealed []byte, proof prover.Proof, nullifierHash, root field.Scalar) (SubmissionResult, error) {
	var result SubmissionResult
	err := p.step(ctx, StepRelay, func(ctx context.Context) error {
		resp, err := p.relay.SubmitReport(ctx, registry.RelayRequest{
			EncryptedContent: base64.StdEncoding.EncodeToString(sealed),
			ZKProof:          proof.Hex(),
			NullifierHash:    nullifierHash.PrefixedHex(),
			Root:             root.PrefixedHex(),
		})
		if err != nil {
			return typed(err, dErrors.CodeNetworkFailure, "relay submission failed")
		}
		if resp.IpfsCID == "" {
			return dErrors.New(dErrors.CodeUploadFailed, "relay returned no content identifier")
		}
		if resp.TxHash == "" {
			return dErrors.New(dErrors.CodeLedgerSubmissionFailed, "relay did not anchor the report")
		}
		result = SubmissionResult{ContentID: resp.IpfsCID, TransactionID: resp.TxHash}
		return nil
	})
	if err != nil {
		return SubmissionResult{}, err
	}
	return result, nil
}

// step runs fn inside a span and records its latency.
func (p *Pipeline) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.ObserveStep(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		p.logger.DebugContext(ctx, "submission step failed", "step", name, "code", dErrors.CodeOf(err))
	}
	return err
}

// typed keeps a domain error as-is and gives anything else the step's code.
func typed(err error, code dErrors.Code, msg string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, code, msg)
}
