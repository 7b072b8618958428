package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dotproduct/internal/core"
	"dotproduct/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the local activity log.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveActivity stores an event. Saving an id twice is a no-op.
func (r *SQLiteRepository) SaveActivity(ctx context.Context, e core.ActivityEvent) error {
	if e.ID == "" {
		return fmt.Errorf("save activity: missing event id")
	}
	n, err := r.queries.InsertActivityEvent(ctx, InsertActivityEventParams{
		ID:         e.ID,
		Kind:       string(e.Kind),
		UserID:     e.UserID,
		Username:   e.Username,
		ResourceID: e.ResourceID,
		Summary:    e.Summary,
		OccurredAt: e.OccurredAt.UnixMilli(),
		RecordedAt: r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("insert activity %s: %w", e.ID, err)
	}

	if n == 0 {
		r.logger.DebugContext(ctx, "Duplicate activity event ignored", log.FieldEventID, e.ID)
		return nil
	}
	r.logger.DebugContext(ctx, "Activity event saved",
		log.FieldEventID, e.ID,
		"kind", e.Kind,
		log.FieldUserID, e.UserID)
	return nil
}

// RecentActivity returns the newest events of a user, newest first.
func (r *SQLiteRepository) RecentActivity(ctx context.Context, userID int64, limit int) ([]core.ActivityEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.queries.ListRecentActivity(ctx, ListRecentActivityParams{UserID: userID, Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("list recent activity (user=%d): %w", userID, err)
	}

	events := make([]core.ActivityEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, core.ActivityEvent{
			ID:         row.ID,
			Kind:       core.ActivityKind(row.Kind),
			UserID:     row.UserID,
			Username:   row.Username,
			ResourceID: row.ResourceID,
			Summary:    row.Summary,
			OccurredAt: time.UnixMilli(row.OccurredAt).UTC(),
		})
	}
	return events, nil
}

// CountActivity returns the number of stored events.
func (r *SQLiteRepository) CountActivity(ctx context.Context) (int64, error) {
	n, err := r.queries.CountActivityEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return n, nil
}

// PruneBefore deletes events that occurred before cutoff.
func (r *SQLiteRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.queries.DeleteActivityBefore(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune activity before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}
