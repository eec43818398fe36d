package controllers

import (
	"net/http"

	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/api/validators"
	"github.com/mksagencies/storefront-backend/internal/cart"
	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/internal/session"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

type cartAddRequest struct {
	Product  products.SnapshotInput `json:"product"`
	Quantity int                    `json:"quantity"`
}

type cartUpdateRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type productIDRequest struct {
	ProductID string `json:"productId"`
}

type cartSyncRequest struct {
	Items []cart.SyncItem `json:"items"`
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *session.Session)

// withSession resolves the request's session. The Session middleware
// guarantees one on every cart and wishlist route.
func withSession(logg *logger.Logger, h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}
		h(w, r, s)
	}
}

func GetCart(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		lines, err := s.Cart().List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cart": lines})
	})
}

// AddToCart accumulates quantity onto an existing line.
func AddToCart(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var body cartAddRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := s.Cart().Add(r.Context(), body.Product, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	})
}

func UpdateCartItem(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var body cartUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := s.Cart().Update(r.Context(), body.ProductID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	})
}

func RemoveFromCart(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var body productIDRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := s.Cart().Remove(r.Context(), body.ProductID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	})
}

// ClearCart serves both POST /clear and DELETE /.
func ClearCart(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if err := s.Cart().Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	})
}

// SyncCart merges the client's local cart into the server cart. Lines the
// server already has keep the server quantity.
func SyncCart(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var body cartSyncRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := s.Cart().Sync(r.Context(), body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": true, "cart": lines})
	})
}
