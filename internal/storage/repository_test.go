package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotproduct/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "activity.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func event(userID int64, kind core.ActivityKind, at time.Time) core.ActivityEvent {
	return core.ActivityEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		Username:   "ada",
		Summary:    "Groceries",
		OccurredAt: at,
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	version, err := migrateUp(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestSaveActivity_DuplicateIDStoredOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := event(1, core.ActivityTransactionCreate, time.Now())
	require.NoError(t, repo.SaveActivity(ctx, e))
	require.NoError(t, repo.SaveActivity(ctx, e))

	n, err := repo.CountActivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSaveActivity_MissingID(t *testing.T) {
	repo := newTestRepo(t)
	e := event(1, core.ActivityLogin, time.Now())
	e.ID = ""
	assert.Error(t, repo.SaveActivity(context.Background(), e))
}

func TestRecentActivity_NewestFirstPerUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := event(1, core.ActivityLogin, base)
	second := event(1, core.ActivityTransactionCreate, base.Add(time.Minute))
	second.ResourceID = 42
	other := event(2, core.ActivityLogin, base.Add(2*time.Minute))

	for _, e := range []core.ActivityEvent{first, second, other} {
		require.NoError(t, repo.SaveActivity(ctx, e))
	}

	got, err := repo.RecentActivity(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, int64(42), got[0].ResourceID)
	assert.Equal(t, core.ActivityTransactionCreate, got[0].Kind)
	assert.True(t, got[0].OccurredAt.Equal(second.OccurredAt))
	assert.Equal(t, first.ID, got[1].ID)

	limited, err := repo.RecentActivity(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecentActivity_Empty(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.RecentActivity(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPruneBefore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.SaveActivity(ctx, event(1, core.ActivityLogin, now.Add(-48*time.Hour))))
	require.NoError(t, repo.SaveActivity(ctx, event(1, core.ActivityLogout, now)))

	removed, err := repo.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := repo.CountActivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, repo.Ping(ctx))
}
