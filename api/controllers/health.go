package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/pkg/config"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive answers {status:"ok", timestamp}.
func HealthLive(cfg *config.Config, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MKS-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{
			"status":    "ok",
			"timestamp": now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// HealthReady pings every dependency and fails on the first one down.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MKS-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
