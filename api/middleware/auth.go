package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mksagencies/storefront-backend/api/responses"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	"github.com/mksagencies/storefront-backend/pkg/config"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

// Authenticator verifies bearer tokens. Any verification failure is treated
// as no token at all.
type Authenticator struct {
	secret string
	logg   *logger.Logger
	now    func() time.Time
}

func NewAuthenticator(cfg config.JWTConfig, logg *logger.Logger, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{secret: cfg.Secret, logg: logg, now: now}
}

// Optional attaches claims when a valid token is present and otherwise lets
// the request through anonymously.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := a.verify(r); claims != nil {
			r = r.WithContext(a.attach(r, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := a.verify(r)
		if claims == nil {
			responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}
		next.ServeHTTP(w, r.WithContext(a.attach(r, claims)))
	})
}

// Admin rejects requests whose token lacks the admin flag. Non-admin tokens
// get the same 401 as missing ones.
func (a *Authenticator) Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := a.verify(r)
		if claims == nil || !claims.IsAdmin {
			responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}
		next.ServeHTTP(w, r.WithContext(a.attach(r, claims)))
	})
}

func (a *Authenticator) verify(r *http.Request) *pkgauth.Claims {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil
	}
	claims, err := pkgauth.Verify(a.secret, token, a.now())
	if err != nil {
		if a.logg != nil {
			a.logg.Debug(a.logg.WithField(r.Context(), "reason", err.Error()), "auth.token_rejected")
		}
		return nil
	}
	return claims
}

func (a *Authenticator) attach(r *http.Request, claims *pkgauth.Claims) context.Context {
	ctx := WithClaims(r.Context(), claims)
	if a.logg != nil {
		fields := map[string]any{"is_admin": claims.IsAdmin, "is_guest": claims.IsGuest}
		if sub := claims.Subject(); sub != "" {
			fields["user_id"] = sub
		}
		ctx = a.logg.WithFields(ctx, fields)
	}
	return ctx
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
