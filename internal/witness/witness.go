// Package witness fetches and validates the caller's Merkle membership
// witness. Witnesses are read fresh for every submission and never cached.
package witness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"clearcrew/internal/registry"
	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
)

// DefaultDepth is the registry tree depth when none is configured.
const DefaultDepth = 32

// MerkleWitness is the membership data the circuit consumes. Path slices all
// have length Depth and bit slices hold only 0 or 1.
type MerkleWitness struct {
	ItemKey     field.Scalar
	ItemNextIdx field.Scalar
	ItemNextKey field.Scalar
	// ItemValue is what the registry believes the leaf value is, if it said.
	ItemValue    *field.Scalar
	PathElements []field.Scalar
	PathIndices  []uint8
	ActiveBits   []uint8
	Root         field.Scalar
}

func (w MerkleWitness) Depth() int {
	return len(w.PathElements)
}

// Source is the registry read the fetcher depends on.
type Source interface {
	MerkleTree(ctx context.Context) (registry.MerkleTreeResponse, error)
}

type Fetcher struct {
	source Source
	depth  int
	logger *slog.Logger
}

type Option func(*Fetcher)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithDepth sets the expected tree depth.
func WithDepth(depth int) Option {
	return func(f *Fetcher) {
		f.depth = depth
	}
}

func NewFetcher(source Source, opts ...Option) (*Fetcher, error) {
	if source == nil {
		return nil, errors.New("witness source is required")
	}
	f := &Fetcher{
		source: source,
		depth:  DefaultDepth,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.depth <= 0 {
		return nil, fmt.Errorf("tree depth must be positive, got %d", f.depth)
	}
	return f, nil
}

// Fetch reads the current root and witness from the registry and validates
// its shape against the configured depth.
func (f *Fetcher) Fetch(ctx context.Context) (MerkleWitness, error) {
	raw, err := f.source.MerkleTree(ctx)
	if err != nil {
		return MerkleWitness{}, err
	}
	w, err := Decode(raw, f.depth)
	if err != nil {
		f.logger.WarnContext(ctx, "registry returned an unusable witness", "error", err)
		return MerkleWitness{}, err
	}
	f.logger.DebugContext(ctx, "witness fetched", "root", w.Root.Hex(), "depth", w.Depth())
	return w, nil
}

// Decode validates a raw registry response. Scalars must be canonical field
// elements; the three path arrays must have exactly depth entries.
func Decode(raw registry.MerkleTreeResponse, depth int) (MerkleWitness, error) {
	if len(raw.PathElements) != depth || len(raw.PathIndices) != depth || len(raw.ActiveBits) != depth {
		return MerkleWitness{}, dErrors.New(dErrors.CodeInternal, fmt.Sprintf(
			"witness shape mismatch: path_elements=%d path_indices=%d active_bits=%d, want %d",
			len(raw.PathElements), len(raw.PathIndices), len(raw.ActiveBits), depth))
	}

	var (
		w   MerkleWitness
		err error
	)
	if w.Root, err = scalar("root", raw.Root); err != nil {
		return MerkleWitness{}, err
	}
	if w.ItemKey, err = scalar("item_key", raw.ItemKey); err != nil {
		return MerkleWitness{}, err
	}
	if w.ItemNextIdx, err = scalar("item_nextIdx", raw.ItemNextIdx); err != nil {
		return MerkleWitness{}, err
	}
	if w.ItemNextKey, err = scalar("item_nextKey", raw.ItemNextKey); err != nil {
		return MerkleWitness{}, err
	}
	if raw.ItemValue != "" {
		v, err := scalar("item_value", raw.ItemValue)
		if err != nil {
			return MerkleWitness{}, err
		}
		w.ItemValue = &v
	}

	w.PathElements = make([]field.Scalar, depth)
	w.PathIndices = make([]uint8, depth)
	w.ActiveBits = make([]uint8, depth)
	for i := 0; i < depth; i++ {
		if w.PathElements[i], err = scalar(fmt.Sprintf("path_elements[%d]", i), raw.PathElements[i]); err != nil {
			return MerkleWitness{}, err
		}
		if w.PathIndices[i], err = bit(fmt.Sprintf("path_indices[%d]", i), raw.PathIndices[i]); err != nil {
			return MerkleWitness{}, err
		}
		if w.ActiveBits[i], err = bit(fmt.Sprintf("active_bits[%d]", i), raw.ActiveBits[i]); err != nil {
			return MerkleWitness{}, err
		}
	}
	return w, nil
}

// scalar accepts hex with or without a 0x prefix.
func scalar(name string, v registry.Value) (field.Scalar, error) {
	s, err := field.ParseCanonical(v.String())
	if err != nil {
		return field.Scalar{}, dErrors.Wrap(err, dErrors.CodeInvalidScalarEncoding, "witness field "+name)
	}
	return s, nil
}

func bit(name string, v registry.Value) (uint8, error) {
	s, err := scalar(name, v)
	if err != nil {
		return 0, err
	}
	switch {
	case s.IsZero():
		return 0, nil
	case s.Equal(field.FromUint64(1)):
		return 1, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidScalarEncoding, "witness field "+name+" is not a bit")
	}
}
