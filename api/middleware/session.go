package middleware

import (
	"net/http"

	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/internal/session"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

// Session opens the caller's cart and wishlist for the lifetime of the
// request. It must run after Authenticator.Required.
func Session(factory *session.Factory, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := factory.Open(ClaimsFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
		})
	}
}
