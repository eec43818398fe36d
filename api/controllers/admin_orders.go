package controllers

import (
	"net/http"
	"strings"

	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/api/validators"
	"github.com/mksagencies/storefront-backend/internal/orders"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", orders.DefaultListLimit, 1, orders.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListAll(r.Context(), orders.ListAllInput{
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}

func AdminGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AdminGetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order": order})
	}
}

// AdminUpdateOrderStatus serves both PUT /orders/{id} and
// PUT /orders/{id}/status; the bodies are the same.
func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input orders.UpdateStatusInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": true, "order": order})
	}
}

func AdminAnalytics(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Analytics(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
