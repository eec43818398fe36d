package controllers

import (
	"net/http"

	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/api/validators"
	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/internal/session"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

type wishlistAddRequest struct {
	Product products.SnapshotInput `json:"product"`
}

type wishlistSyncRequest struct {
	Items []products.SnapshotInput `json:"items"`
}

func GetWishlist(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		entries, err := s.Wishlist().List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wishlist": entries})
	})
}

func AddToWishlist(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var body wishlistAddRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := s.Wishlist().Add(r.Context(), body.Product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	})
}

func RemoveFromWishlist(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var body productIDRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := s.Wishlist().Remove(r.Context(), body.ProductID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	})
}

func ClearWishlist(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		if err := s.Wishlist().Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	})
}

// SyncWishlist unions the client's local wishlist into the server's.
func SyncWishlist(logg *logger.Logger) http.HandlerFunc {
	return withSession(logg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var body wishlistSyncRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := s.Wishlist().Sync(r.Context(), body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": true, "wishlist": entries})
	})
}
