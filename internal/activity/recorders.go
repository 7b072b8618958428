package activity

import (
	"context"
	"fmt"

	"dotproduct/internal/amqp"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
)

// Store is the persistence the SQLite recorder writes to.
type Store interface {
	SaveActivity(ctx context.Context, e core.ActivityEvent) error
	RecentActivity(ctx context.Context, userID int64, limit int) ([]core.ActivityEvent, error)
}

// StoreRecorder writes events straight to a Store and reads them back.
type StoreRecorder struct {
	store  Store
	logger *log.Logger
}

func NewStoreRecorder(store Store, logger *log.Logger) *StoreRecorder {
	if logger == nil {
		logger = log.Discard()
	}
	return &StoreRecorder{store: store, logger: logger.WithComponent(log.ComponentActivity)}
}

func (r *StoreRecorder) Record(ctx context.Context, e Event) error {
	if err := r.store.SaveActivity(ctx, e); err != nil {
		r.logger.ErrorContext(ctx, "Failed to record activity",
			log.FieldEventID, e.ID,
			log.FieldError, err)
		return fmt.Errorf("record %s: %w", e.Kind, err)
	}
	return nil
}

func (r *StoreRecorder) Recent(ctx context.Context, userID int64, limit int) ([]Event, error) {
	return r.store.RecentActivity(ctx, userID, limit)
}

// Publisher is the AMQP side of the queue recorder.
type Publisher interface {
	PublishActivity(ctx context.Context, msg *amqp.ActivityMessage) error
}

// QueueRecorder publishes events for the activity worker to store.
type QueueRecorder struct {
	publisher Publisher
	logger    *log.Logger
}

func NewQueueRecorder(publisher Publisher, logger *log.Logger) *QueueRecorder {
	if logger == nil {
		logger = log.Discard()
	}
	return &QueueRecorder{publisher: publisher, logger: logger.WithComponent(log.ComponentActivity)}
}

func (r *QueueRecorder) Record(ctx context.Context, e Event) error {
	if err := r.publisher.PublishActivity(ctx, amqp.NewActivityMessage(e)); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish activity",
			log.FieldEventID, e.ID,
			log.FieldError, err)
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}
	return nil
}
