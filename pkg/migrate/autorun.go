package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/inventory-backend/pkg/config"
	"github.com/angelmondragon/inventory-backend/pkg/db"
	"github.com/angelmondragon/inventory-backend/pkg/db/models"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

// sqliteModels lists every table AutoMigrate keeps in sync for SQLite.
var sqliteModels = []any{&models.Item{}}

// MaybeRunDev prepares the schema at startup. SQLite is always auto-migrated;
// Postgres runs the embedded goose files only in dev with the auto-migrate flag.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	ctx = logg.WithField(ctx, "dialect", client.Dialect())

	if client.Dialect() == db.DialectSQLite {
		return autoMigrateSQLite(ctx, logg, client)
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		logg.Debug(ctx, "schema auto-run skipped")
		return nil
	}
	return gooseUp(ctx, cfg, logg, client)
}

func autoMigrateSQLite(ctx context.Context, logg *logger.Logger, client *db.Client) error {
	if err := client.DB().WithContext(ctx).AutoMigrate(sqliteModels...); err != nil {
		return fmt.Errorf("auto-migrate sqlite schema: %w", err)
	}
	logg.Info(ctx, "sqlite schema migrated")
	return nil
}

func gooseUp(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "running embedded migrations")
	if err := Run(ctx, sqlDB, client.Dialect(), DefaultDir, "up"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	logg.Info(ctx, "migrations completed")
	return nil
}
