package migrate

import (
	"context"
	"fmt"

	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/db"
	"github.com/mksagencies/storefront-backend/pkg/logger"
)

// ApplyInDev brings the schema up to date on start-up, but only for a
// local dev environment with MKS_AUTO_MIGRATE set. Deployed environments
// run cmd/migrate explicitly.
func ApplyInDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"dir": DefaultDir})
	logg.Info(ctx, "migrate.dev_autorun.start")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logg.Info(ctx, "migrate.dev_autorun.done")
	return nil
}
