package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mksagencies/storefront-backend/api/middleware"
	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/api/validators"
	"github.com/mksagencies/storefront-backend/internal/orders"
	pkgauth "github.com/mksagencies/storefront-backend/pkg/auth"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

type createOrderResponse struct {
	Success              bool `json:"success"`
	*orders.CreateResult
	VerificationRequired bool `json:"verificationRequired"`
}

// CreateOrder places an order. The bearer token is optional; a signed-in
// customer's id is attached to the order.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input orders.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.UserID = customerID(middleware.ClaimsFromContext(r.Context()))

		result, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, createOrderResponse{
			Success:              true,
			CreateResult:         result,
			VerificationRequired: input.IsGuest,
		})
	}
}

func ListMyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForUser(r.Context(), middleware.ClaimsFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}

// GetMyOrder returns an order the caller owns, by user id or guest email.
func GetMyOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID, middleware.ClaimsFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order": order})
	}
}

// TrackOrder is public and exposes no contact details.
func TrackOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.TrackByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
	}
	return id, nil
}

// customerID is the signed-in account behind claims. Guests check out by
// email and admins never own orders.
func customerID(claims *pkgauth.Claims) *uuid.UUID {
	if claims == nil || claims.IsGuest || claims.IsAdmin {
		return nil
	}
	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil
	}
	return &id
}
