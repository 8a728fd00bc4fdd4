package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/smallbiznis/shopbooks/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	conn := db.NewTest(t)
	require.NoError(t, conn.AutoMigrate(&SnapshotRecord{}))
	return New(conn)
}

func TestSaveUpsertsLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, domain.Snapshot{StoreKey: "my-shop", Collection: "sales", Revision: "r1", Records: 1, Payload: []byte(`[{"id":"s1"}]`), UpdatedAt: at}))
	require.NoError(t, r.Save(ctx, domain.Snapshot{StoreKey: "my-shop", Collection: "sales", Revision: "r2", Records: 2, Payload: []byte(`[{"id":"s1"},{"id":"s2"}]`), UpdatedAt: at.Add(time.Minute)}))

	got, err := r.Load(ctx, "my-shop", "sales")
	require.NoError(t, err)
	assert.Equal(t, "r2", got.Revision)
	assert.Equal(t, 2, got.Records)
	assert.JSONEq(t, `[{"id":"s1"},{"id":"s2"}]`, string(got.Payload))
}

func TestLoadMissing(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.Load(context.Background(), "my-shop", "expenses")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveIsolatesStores(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	require.NoError(t, r.Save(ctx, domain.Snapshot{StoreKey: "a", Collection: "stock", Revision: "1", UpdatedAt: time.Now()}))

	_, err := r.Load(ctx, "b", "stock")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := r.Load(ctx, "a", "stock")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got.Payload))
}

func TestSaveRejectsIncompleteSnapshot(t *testing.T) {
	r := newTestRepo(t)
	assert.ErrorIs(t, r.Save(context.Background(), domain.Snapshot{Collection: "sales"}), domain.ErrInvalidSnapshot)
}
