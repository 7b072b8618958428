// Package activity records user actions to an optional activity log.
package activity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"dotproduct/internal/core"
)

// Event is one activity log entry.
type Event = core.ActivityEvent

// Recorder accepts events. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Reader lists a user's recent events, newest first.
type Reader interface {
	Recent(ctx context.Context, userID int64, limit int) ([]Event, error)
}

// NewEvent builds an event with a fresh id.
func NewEvent(kind core.ActivityKind, userID int64, username string, resourceID int64, summary string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		Username:   username,
		ResourceID: resourceID,
		Summary:    strings.TrimSpace(summary),
		OccurredAt: time.Now().UTC(),
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, Event) error { return nil }

// Entry is the display form of an event.
type Entry struct {
	Label   string
	Summary string
	When    time.Time
}

// Entries converts events for display.
func Entries(events []Event) []Entry {
	out := make([]Entry, 0, len(events))
	for _, e := range events {
		out = append(out, Entry{Label: e.Kind.Label(), Summary: e.Summary, When: e.OccurredAt})
	}
	return out
}
