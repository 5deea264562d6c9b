package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clearcrew/internal/platform/metrics"
	"clearcrew/internal/platform/middleware"
	"clearcrew/pkg/platform/httputil"
	"clearcrew/pkg/platform/middleware/apitoken"
	"clearcrew/pkg/platform/middleware/loopback"
)

// RouterConfig is what NewRouter needs besides the handler.
type RouterConfig struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Exporter http.Handler
	APIToken string
	Timeout  time.Duration
}

// NewRouter wires the local API. Every route is loopback-only; /v1 routes
// also require the API token when one is configured.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = h.logger
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = h.submitTimeout + 30*time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(loopback.Only)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Exporter != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Exporter)
	}

	r.Group(func(api chi.Router) {
		api.Use(apitoken.Require(cfg.APIToken, logger))
		api.Use(middleware.Timeout(timeout))
		api.Use(middleware.ContentTypeJSON)
		h.Register(api)
	})
	return r
}
