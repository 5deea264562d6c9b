// Package apitoken guards the local API with a shared secret so other local
// processes and browser pages cannot drive submissions.
package apitoken

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/platform/httputil"
	"clearcrew/pkg/requestcontext"
)

// Header carries the local API token.
const Header = "X-Reporter-Token"

// Require rejects requests whose token does not match expected. An empty
// expected token disables the check.
func Require(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(Header)
			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "local API token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "local API token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
