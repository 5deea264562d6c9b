package loopback

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnly(t *testing.T) {
	h := Only(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	cases := map[string]int{
		"127.0.0.1:50000": http.StatusNoContent,
		"[::1]:50000":     http.StatusNoContent,
		"192.0.2.10:5000": http.StatusForbidden,
		"garbage":         http.StatusForbidden,
	}
	for remote, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", "127.0.0.1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, remote)
	}
}
