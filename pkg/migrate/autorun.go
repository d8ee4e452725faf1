package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/matreq-backend/pkg/config"
	"github.com/angelmondragon/matreq-backend/pkg/db"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

type devStrategy string

const (
	devSkip        devStrategy = "skip"
	devAutoMigrate devStrategy = "automigrate"
	devGoose       devStrategy = "goose"
)

// devStrategyFor picks how a process brings its schema up at boot. Only dev
// processes with the auto-migrate flag touch the schema; sqlite has no goose
// migrations, so it is built from the models instead.
func devStrategyFor(cfg *config.Config) devStrategy {
	switch {
	case !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate:
		return devSkip
	case cfg.DB.Driver == db.DriverSQLite:
		return devAutoMigrate
	default:
		return devGoose
	}
}

// MaybeRunDev migrates the schema at boot for dev processes.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	strategy := devStrategyFor(cfg)
	if strategy == devSkip {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"driver":   cfg.DB.Driver,
		"strategy": string(strategy),
	})
	logg.Info(ctx, "dev schema migration starting")

	switch strategy {
	case devAutoMigrate:
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
	case devGoose:
		sqlDB, err := client.DB().DB()
		if err != nil {
			return fmt.Errorf("extracting sql.DB: %w", err)
		}
		if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
			return err
		}
	}

	logg.Info(ctx, "dev schema migration finished")
	return nil
}
