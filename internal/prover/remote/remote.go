// Package remote proves through an external prover service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"clearcrew/internal/prover"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/requestcontext"
)

const maxResponseBytes = 8 << 20

type proveRequest struct {
	Circuit string         `json:"circuit"`
	Inputs  map[string]any `json:"inputs"`
}

type proveResponse struct {
	Proof string `json:"proof"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Backend calls POST {base}/prove with the named inputs of one circuit.
type Backend struct {
	proveURL *url.URL
	circuit  string
	http     *http.Client
	logger   *slog.Logger
}

type Option func(*Backend)

func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) {
		b.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

func New(baseURL, circuit string, opts ...Option) (*Backend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prover URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("prover URL must be absolute")
	}
	if circuit == "" {
		return nil, errors.New("circuit name is required")
	}
	b := &Backend{
		proveURL: u.JoinPath("prove"),
		circuit:  circuit,
		http:     http.DefaultClient,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Backend) Name() string {
	return "remote"
}

// Prove sends the assignment. 4xx answers mean the prover refused the inputs
// and map to CodeProofGenerationFailed; anything else non-2xx is a network
// failure.
func (b *Backend) Prove(ctx context.Context, in prover.Inputs) (prover.Proof, error) {
	ctx = requestcontext.EnsureRequestID(ctx)
	raw, err := json.Marshal(proveRequest{Circuit: b.circuit, Inputs: in.Named()})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode prover request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.proveURL.String(), bytes.NewReader(raw))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create prover request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestcontext.RequestID(ctx))

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "prover unreachable")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "failed to read prover response")
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg := rejection(body)
		b.logger.WarnContext(ctx, "prover rejected inputs", "status", resp.StatusCode, "message", msg)
		return nil, dErrors.New(dErrors.CodeProofGenerationFailed, msg)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, dErrors.New(dErrors.CodeNetworkFailure, fmt.Sprintf("prover answered %d", resp.StatusCode))
	}

	var out proveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeProofGenerationFailed, "malformed prover response")
	}
	proof, err := decodeHex(out.Proof)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeProofGenerationFailed, "prover returned a non-hex proof")
	}
	return proof, nil
}

func rejection(body []byte) string {
	var er errorResponse
	if json.Unmarshal(body, &er) == nil {
		if er.Message != "" {
			return er.Message
		}
		if er.Error != "" {
			return er.Error
		}
	}
	return "prover rejected the inputs"
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
