package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address for a request. With
// trustProxy set, proxy headers are consulted first; without it only
// RemoteAddr counts, so spoofed headers on direct connections are ignored.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedFor(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port.
		return r.RemoteAddr
	}
	return host
}

// forwardedFor extracts the leftmost X-Forwarded-For entry, falling back to
// X-Real-IP. Returns "" when neither header names an address.
func forwardedFor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
