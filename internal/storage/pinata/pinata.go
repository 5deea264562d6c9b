// Package pinata uploads sealed reports to IPFS through Pinata's pinning API.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"clearcrew/internal/storage"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/requestcontext"
)

// DefaultBaseURL is Pinata's public API.
const DefaultBaseURL = "https://api.pinata.cloud"

const maxResponseBytes = 1 << 20

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type metadata struct {
	Name string `json:"name"`
}

type Client struct {
	pinURL *url.URL
	jwt    string
	http   *http.Client
	logger *slog.Logger
}

var _ storage.ContentStore = (*Client)(nil)

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if u, err := url.Parse(baseURL); err == nil {
			c.pinURL = u.JoinPath("pinning", "pinFileToIPFS")
		}
	}
}

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

func New(jwt string, opts ...Option) (*Client, error) {
	if jwt == "" {
		return nil, errors.New("pinata JWT is required")
	}
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		pinURL: base.JoinPath("pinning", "pinFileToIPFS"),
		jwt:    jwt,
		http:   http.DefaultClient,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Upload pins data as a single file and returns its CID. Any failure is
// CodeUploadFailed; nothing is retried here.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", storage.ErrEmptyContent
	}
	ctx = requestcontext.EnsureRequestID(ctx)

	body, contentType, err := multipartBody(name, data)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUploadFailed, "failed to build upload body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pinURL.String(), body)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUploadFailed, "failed to create upload request")
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestcontext.RequestID(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUploadFailed, "storage unreachable")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUploadFailed, "failed to read upload response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "pinata upload rejected", "status", resp.StatusCode)
		return "", dErrors.New(dErrors.CodeUploadFailed, fmt.Sprintf("storage answered %d", resp.StatusCode))
	}

	var out pinResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUploadFailed, "malformed upload response")
	}
	if out.IpfsHash == "" {
		return "", dErrors.New(dErrors.CodeUploadFailed, "storage returned no content identifier")
	}
	c.logger.InfoContext(ctx, "content pinned", "cid", out.IpfsHash, "bytes", len(data))
	return out.IpfsHash, nil
}

func multipartBody(name string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	meta, err := json.Marshal(metadata{Name: name})
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
