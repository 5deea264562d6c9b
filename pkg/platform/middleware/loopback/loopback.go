// Package loopback refuses requests that did not originate on this machine.
package loopback

import (
	"net"
	"net/http"

	"clearcrew/pkg/platform/httputil"
)

// Only rejects requests whose peer address is not loopback. Forwarding
// headers are ignored; the local API never sits behind a proxy.
func Only(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsLoopbackPeer(r) {
			httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "the local API only accepts loopback connections",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsLoopbackPeer reports whether r.RemoteAddr is a loopback address.
func IsLoopbackPeer(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
