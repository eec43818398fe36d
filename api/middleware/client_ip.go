package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mksagencies/storefront-backend/pkg/logger"
)

// ClientIP resolves the caller address used as the rate-limit identity.
// Precedence: CF-Connecting-IP, first X-Forwarded-For entry, X-Real-IP,
// then the socket peer.
func ClientIP(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r)
			ctx := WithClientIP(r.Context(), ip)
			if logg != nil {
				ctx = logg.WithClientIP(ctx, ip)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
