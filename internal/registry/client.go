// Package registry is the client for the organization's registry service: the
// server that holds the Merkle tree of identity commitments, hands out the
// sealing key, and optionally relays finished reports.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/requestcontext"
)

const maxResponseBytes = 4 << 20

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	baseURL *url.URL
	tokens  TokenSource
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("registry URL must be absolute")
	}
	if tokens == nil {
		return nil, errors.New("registry token source is required")
	}
	c := &Client{
		baseURL: u,
		tokens:  tokens,
		http:    http.DefaultClient,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a session token. It is the only call made
// without a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "auth/login",
		in:     LoginRequest{Email: email, Password: password},
		out:    &out,
		anon:   true,
	})
	if err != nil {
		return LoginResponse{}, err
	}
	if out.Token == "" {
		return LoginResponse{}, dErrors.New(dErrors.CodeNetworkFailure, "registry login returned no token")
	}
	return out, nil
}

// PublicKey returns the server's current sealing key as the server encoded it.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	var out PublicKeyResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "zk/public-key", out: &out}); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.PublicKey) == "" {
		return "", dErrors.New(dErrors.CodeNetworkFailure, "registry returned an empty public key")
	}
	return out.PublicKey, nil
}

// Register inserts a commitment. A 4xx answer is a rejection (for example a
// duplicate leaf) and carries the server's message verbatim.
func (c *Client) Register(ctx context.Context, leaf string) (RegisterResponse, error) {
	var out RegisterResponse
	err := c.do(ctx, call{
		method:     http.MethodPost,
		path:       "zk/register",
		in:         RegisterRequest{Leaf: leaf},
		out:        &out,
		rejectable: true,
	})
	return out, err
}

// MerkleTree fetches the current root and the caller's membership witness.
// Never cached: the tree moves with every registration.
func (c *Client) MerkleTree(ctx context.Context) (MerkleTreeResponse, error) {
	var out MerkleTreeResponse
	err := c.do(ctx, call{method: http.MethodGet, path: "zk/merkle-tree", out: &out})
	return out, err
}

// SubmitReport hands a sealed report and its proof to the registry, which
// pins the ciphertext and anchors it on the ledger itself.
func (c *Client) SubmitReport(ctx context.Context, req RelayRequest) (RelayResponse, error) {
	var out RelayResponse
	err := c.do(ctx, call{
		method:     http.MethodPost,
		path:       "zk/report",
		in:         req,
		out:        &out,
		rejectable: true,
	})
	return out, err
}

type call struct {
	method string
	path   string
	in     any
	out    any
	// anon skips the bearer token.
	anon bool
	// rejectable maps 4xx to CodeRegistryRejected instead of a network failure.
	rejectable bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	ctx = requestcontext.EnsureRequestID(ctx)
	u := c.baseURL.JoinPath(cl.path)

	var body io.Reader
	if cl.in != nil {
		raw, err := json.Marshal(cl.in)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode registry request")
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registry request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestcontext.RequestID(ctx))
	if cl.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !cl.anon {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "registry unreachable",
			"path", cl.path,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "registry unreachable")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "failed to read registry response")
	}
	c.logger.DebugContext(ctx, "registry call",
		"method", cl.method,
		"path", cl.path,
		"status", resp.StatusCode,
		"request_id", requestcontext.RequestID(ctx),
	)

	if err := classify(resp.StatusCode, raw, cl.rejectable); err != nil {
		return err
	}
	if cl.out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "malformed registry response")
	}
	return nil
}

// classify maps a non-2xx status to the failure taxonomy.
func classify(status int, body []byte, rejectable bool) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, "registry rejected the session token")
	case rejectable && status >= 400 && status < 500:
		return dErrors.New(dErrors.CodeRegistryRejected, serverMessage(status, body))
	default:
		return dErrors.New(dErrors.CodeNetworkFailure, fmt.Sprintf("registry answered %d", status))
	}
}

// serverMessage extracts the human message from an error body, falling back
// to the raw text and then to the status line.
func serverMessage(status int, body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}
