package migration

import (
	"fmt"

	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/persistence/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SnapshotTable holds one row per (store, collection) snapshot.
var SnapshotTable = repository.SnapshotRecord{}.TableName()

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			return nil
		}
		return Apply(conn, cfg.DBType, log)
	}),
)

// Apply creates or upgrades the snapshot table. Postgres goes through the
// versioned migrations; mysql and sqlite use gorm's schema sync. Either way
// the table must exist afterwards.
func Apply(conn *gorm.DB, dbType string, log *zap.Logger) error {
	log = log.With(zap.String("table", SnapshotTable), zap.String("type", dbType))

	if dbType != "postgres" {
		log.Info("syncing snapshot table")
		if err := conn.AutoMigrate(&repository.SnapshotRecord{}); err != nil {
			return fmt.Errorf("sync %s: %w", SnapshotTable, err)
		}
	} else {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		version, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("snapshot table migrated", zap.Uint("version", version))
	}

	if !conn.Migrator().HasTable(SnapshotTable) {
		return fmt.Errorf("%s missing after migration", SnapshotTable)
	}
	return nil
}
