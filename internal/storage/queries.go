package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ActivityEvent is a row of activity_events. Times are unix milliseconds.
type ActivityEvent struct {
	ID         string
	Kind       string
	UserID     int64
	Username   string
	ResourceID int64
	Summary    string
	OccurredAt int64
	RecordedAt int64
}

const insertActivityEvent = `
INSERT INTO activity_events (id, kind, user_id, username, resource_id, summary, occurred_at, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`

type InsertActivityEventParams = ActivityEvent

// InsertActivityEvent stores a row unless its id already exists. The
// returned count is 0 for duplicates.
func (q *Queries) InsertActivityEvent(ctx context.Context, arg InsertActivityEventParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertActivityEvent,
		arg.ID,
		arg.Kind,
		arg.UserID,
		arg.Username,
		arg.ResourceID,
		arg.Summary,
		arg.OccurredAt,
		arg.RecordedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listRecentActivity = `
SELECT id, kind, user_id, username, resource_id, summary, occurred_at, recorded_at
FROM activity_events
WHERE user_id = ?
ORDER BY occurred_at DESC, recorded_at DESC
LIMIT ?
`

type ListRecentActivityParams struct {
	UserID int64
	Limit  int64
}

func (q *Queries) ListRecentActivity(ctx context.Context, arg ListRecentActivityParams) ([]ActivityEvent, error) {
	rows, err := q.db.QueryContext(ctx, listRecentActivity, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ActivityEvent
	for rows.Next() {
		var i ActivityEvent
		if err := rows.Scan(
			&i.ID,
			&i.Kind,
			&i.UserID,
			&i.Username,
			&i.ResourceID,
			&i.Summary,
			&i.OccurredAt,
			&i.RecordedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countActivityEvents = `SELECT COUNT(*) FROM activity_events`

func (q *Queries) CountActivityEvents(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActivityEvents)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteActivityBefore = `DELETE FROM activity_events WHERE occurred_at < ?`

func (q *Queries) DeleteActivityBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteActivityBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
