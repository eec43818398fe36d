package mailer

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mksagencies/storefront-backend/api/middleware"
	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/pkg/enums"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/types"
)

const maxPayloadBytes = 1 << 20

// NewRouter exposes POST /send/{type} and GET /health.
func NewRouter(m *Mailer, logg *logger.Logger, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status":    "ok",
			"timestamp": now().UTC().Format(time.RFC3339Nano),
		})
	})

	r.Post("/send/{type}", func(w http.ResponseWriter, r *http.Request) {
		kind, err := enums.ParseNotificationType(chi.URLParam(r, "type"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, types.ErrorBody{Error: "Unknown email type"})
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err == nil {
			err = m.Handle(r.Context(), kind, body)
		}
		if err != nil {
			logg.Error(logg.WithField(r.Context(), "notification_type", kind.String()), "mail.send_failed", err)
			writeJSON(w, http.StatusInternalServerError, types.ErrorBody{Error: "Failed to send email"})
			return
		}
		responses.WriteAck(w)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
