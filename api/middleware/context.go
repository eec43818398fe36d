package middleware

import (
	"context"

	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
)

type contextKey string

const (
	ctxClaims   contextKey = "claims"
	ctxClientIP contextKey = "client_ip"
)

// ClaimsFromContext returns the verified token claims, or nil for anonymous
// requests.
func ClaimsFromContext(ctx context.Context) *pkgauth.Claims {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxClaims).(*pkgauth.Claims); ok {
		return v
	}
	return nil
}

// WithClaims injects verified claims into the context.
func WithClaims(ctx context.Context, claims *pkgauth.Claims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}

func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClientIP, ip)
}
