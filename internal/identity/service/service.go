package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/platform/metrics"
	"clearcrew/internal/registry"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/platform/sentinel"
)

// IdentityStore holds the single resident identity.
type IdentityStore interface {
	Save(ctx context.Context, id models.Identity) error
	Load(ctx context.Context) (models.Identity, error)
	Clear(ctx context.Context) error
}

// Registry accepts commitments.
type Registry interface {
	Register(ctx context.Context, leaf string) (registry.RegisterResponse, error)
}

// Registrar turns a private identity into a registered commitment. The
// identity is persisted only after the registry acknowledges the leaf.
type Registrar struct {
	store    IdentityStore
	registry Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Registrar)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registrar) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registrar) {
		r.metrics = m
	}
}

func New(store IdentityStore, reg Registry, opts ...Option) (*Registrar, error) {
	if store == nil {
		return nil, errors.New("identity store is required")
	}
	if reg == nil {
		return nil, errors.New("registry client is required")
	}
	r := &Registrar{
		store:    store,
		registry: reg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register derives leaf = Hash2(seed, secret), sends it to the registry, and
// stores the identity once the registry accepts it. Replacing a different
// resident identity requires opts.ConfirmOverwrite; that check runs before
// any network call.
func (r *Registrar) Register(ctx context.Context, id models.Identity, opts models.RegisterOptions) (models.RegistryAck, error) {
	ack, err := r.register(ctx, id, opts)
	if err != nil {
		r.metrics.IncrementRegistration(string(dErrors.CodeOf(err)))
		return models.RegistryAck{}, err
	}
	r.metrics.IncrementRegistration("success")
	return ack, nil
}

func (r *Registrar) register(ctx context.Context, id models.Identity, opts models.RegisterOptions) (models.RegistryAck, error) {
	scalars, err := id.Parse()
	if err != nil {
		return models.RegistryAck{}, err
	}
	leaf := scalars.Commitment().Hex()

	if !opts.ConfirmOverwrite {
		if err := r.ensureReplaceable(ctx, scalars); err != nil {
			return models.RegistryAck{}, err
		}
	}

	resp, err := r.registry.Register(ctx, leaf)
	if err != nil {
		r.logger.WarnContext(ctx, "commitment registration failed",
			"leaf", leaf,
			"code", dErrors.CodeOf(err),
		)
		var de *dErrors.Error
		if errors.As(err, &de) {
			return models.RegistryAck{}, err
		}
		return models.RegistryAck{}, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "registry call failed")
	}

	if err := r.store.Save(ctx, id); err != nil {
		// The leaf is registered but this device forgot the identity; the
		// caller can retry with the same scalars once storage recovers.
		r.logger.ErrorContext(ctx, "identity registered but not persisted", "leaf", leaf, "error", err)
		return models.RegistryAck{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist identity")
	}

	r.logger.InfoContext(ctx, "identity registered", "leaf", leaf, "root", resp.Root.String())
	return models.RegistryAck{Leaf: leaf, Root: resp.Root.String(), Message: resp.Message}, nil
}

// ensureReplaceable fails with CodeConfirmationRequired when a different
// identity is already resident.
func (r *Registrar) ensureReplaceable(ctx context.Context, next models.Scalars) error {
	current, err := r.store.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident identity")
	}
	cur, err := current.Parse()
	if err != nil {
		// A corrupt resident identity is replaced only with explicit consent.
		return dErrors.New(dErrors.CodeConfirmationRequired, "a different identity is already registered on this device")
	}
	if cur.NullifierSeed.Equal(next.NullifierSeed) && cur.Secret.Equal(next.Secret) {
		return nil
	}
	return dErrors.New(dErrors.CodeConfirmationRequired, "a different identity is already registered on this device")
}

// Reset forgets the resident identity. The registry keeps the old leaf.
func (r *Registrar) Reset(ctx context.Context, confirm bool) error {
	if !confirm {
		return dErrors.New(dErrors.CodeConfirmationRequired, "resetting the identity cannot be undone")
	}
	if err := r.store.Clear(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear identity")
	}
	r.logger.InfoContext(ctx, "identity reset")
	return nil
}

// Commitment returns the resident identity's leaf in registry wire form.
func (r *Registrar) Commitment(ctx context.Context) (string, error) {
	id, err := r.store.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNoIdentity, "no identity is registered on this device")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	scalars, err := id.Parse()
	if err != nil {
		return "", err
	}
	return scalars.Commitment().Hex(), nil
}
