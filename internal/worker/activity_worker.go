package worker

import (
	"context"
	"fmt"
	"time"

	"dotproduct/internal/amqp"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
)

// Store is where consumed events end up.
type Store interface {
	SaveActivity(ctx context.Context, e core.ActivityEvent) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityWorker stores activity messages consumed from the queue.
type ActivityWorker struct {
	store     Store
	logger    *log.Logger
	retention time.Duration
	now       func() time.Time
}

// NewActivityWorker returns a worker that keeps events for retention.
// A zero retention keeps everything.
func NewActivityWorker(store Store, retention time.Duration, logger *log.Logger) *ActivityWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ActivityWorker{
		store:     store,
		logger:    logger.WithComponent(log.ComponentWorker),
		retention: retention,
		now:       time.Now,
	}
}

// HandleActivityMessage stores one message. Redelivered messages are
// stored once because events keep their id.
func (w *ActivityWorker) HandleActivityMessage(ctx context.Context, msg *amqp.ActivityMessage) error {
	if msg == nil || msg.Event.ID == "" {
		w.logger.WarnContext(ctx, "Dropping activity message without event id")
		return nil
	}

	w.logger.DebugContext(ctx, "Processing activity message",
		log.FieldEventID, msg.Event.ID,
		"kind", msg.Event.Kind,
		"published_at", msg.Timestamp)

	if err := w.store.SaveActivity(ctx, msg.Event); err != nil {
		return fmt.Errorf("save activity %s: %w", msg.Event.ID, err)
	}
	return nil
}

// Prune deletes events older than the retention window.
func (w *ActivityWorker) Prune(ctx context.Context) error {
	if w.retention <= 0 {
		return nil
	}
	cutoff := w.now().Add(-w.retention)
	n, err := w.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune activity: %w", err)
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Pruned activity log",
			"removed", n,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}

// RunPruner calls Prune every interval until ctx is done.
func (w *ActivityWorker) RunPruner(ctx context.Context, interval time.Duration) {
	if w.retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Prune(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Activity pruning failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
