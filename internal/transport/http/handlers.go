package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/pipeline"
	"clearcrew/internal/report"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/platform/httputil"
	"clearcrew/pkg/requestcontext"
)

// IdentityService registers and forgets the device identity.
type IdentityService interface {
	Register(ctx context.Context, id models.Identity, opts models.RegisterOptions) (models.RegistryAck, error)
	Reset(ctx context.Context, confirm bool) error
	Commitment(ctx context.Context) (string, error)
}

// SubmissionService runs one submission at a time and reports progress.
type SubmissionService interface {
	Submit(ctx context.Context, r report.Report) (pipeline.SubmissionResult, error)
	Status() pipeline.Status
}

// Handler is the thin HTTP layer over the identity and submission services.
type Handler struct {
	identity      IdentityService
	submissions   SubmissionService
	submitTimeout time.Duration
	logger        *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithSubmitTimeout bounds each POST /v1/reports.
func WithSubmitTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.submitTimeout = d
	}
}

func New(identity IdentityService, submissions SubmissionService, opts ...Option) *Handler {
	h := &Handler{
		identity:      identity,
		submissions:   submissions,
		submitTimeout: 5 * time.Minute,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the /v1 routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/identity", h.handleRegisterIdentity)
	r.Delete("/v1/identity", h.handleResetIdentity)
	r.Get("/v1/identity/commitment", h.handleCommitment)
	r.Post("/v1/reports", h.handleSubmitReport)
	r.Get("/v1/submission", h.handleSubmissionStatus)
}

func (h *Handler) handleRegisterIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RegisterIdentityRequest
	if err := httputil.DecodeJSON(r, &req, dErrors.CodeInvalidScalarEncoding); err != nil {
		httputil.WriteError(w, err)
		return
	}

	id, err := models.New(req.NullifierSeed, req.Secret)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ack, err := h.identity.Register(ctx, id, models.RegisterOptions{ConfirmOverwrite: req.ConfirmOverwrite})
	if err != nil {
		h.logger.WarnContext(ctx, "identity registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"code", dErrors.CodeOf(err),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ack)
}

func (h *Handler) handleResetIdentity(w http.ResponseWriter, r *http.Request) {
	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.identity.Reset(r.Context(), confirm); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCommitment(w http.ResponseWriter, r *http.Request) {
	leaf, err := h.identity.Commitment(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CommitmentResponse{Leaf: leaf})
}

func (h *Handler) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req SubmitReportRequest
	if err := httputil.DecodeJSON(r, &req, dErrors.CodeInvalidReport); err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.submitTimeout)
	defer cancel()

	result, err := h.submissions.Submit(ctx, req.Report())
	if err != nil {
		h.logger.WarnContext(ctx, "report submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"code", dErrors.CodeOf(err),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSubmissionStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.submissions.Status())
}
