package migration

import (
	"testing"

	"github.com/smallbiznis/shopbooks/internal/persistence/repository"
	"github.com/smallbiznis/shopbooks/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplySqliteCreatesSnapshotTable(t *testing.T) {
	conn := db.NewTest(t)
	require.NoError(t, Apply(conn, "sqlite", zap.NewNop()))
	assert.True(t, conn.Migrator().HasTable(&repository.SnapshotRecord{}))
}

func TestApplyIsIdempotent(t *testing.T) {
	conn := db.NewTest(t)
	require.NoError(t, Apply(conn, "sqlite", zap.NewNop()))
	require.NoError(t, Apply(conn, "sqlite", zap.NewNop()))
	assert.Equal(t, "collection_snapshots", SnapshotTable)
	assert.True(t, conn.Migrator().HasTable(SnapshotTable))
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	_, err := RunMigrations(nil)
	assert.Error(t, err)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
