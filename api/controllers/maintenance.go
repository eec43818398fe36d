package controllers

import (
	"context"
	"net/http"

	"github.com/mksagencies/storefront-backend/api/responses"
	"github.com/mksagencies/storefront-backend/api/validators"
	"github.com/mksagencies/storefront-backend/internal/cron"
	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

type imageSweeper interface {
	Sweep(ctx context.Context, dryRun bool) (*cron.OrphanImageReport, error)
}

type cleanupImagesRequest struct {
	DryRun bool `json:"dryRun"`
}

// CleanupImages runs the orphan image sweep on demand. Partial delete
// failures still return the report; the failures are logged.
func CleanupImages(sweeper imageSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "image storage is not configured"))
			return
		}
		var body cleanupImagesRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := sweeper.Sweep(r.Context(), body.DryRun)
		if report == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cleanup failed"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": err == nil, "report": report})
	}
}
