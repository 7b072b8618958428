package activity

import (
	"context"
	"fmt"

	"dotproduct/internal/amqp"
	"dotproduct/internal/config"
	"dotproduct/internal/log"
	"dotproduct/internal/storage"
)

// BackendType selects where activity events go.
type BackendType string

const (
	BackendNone   BackendType = "none"
	BackendSQLite BackendType = "sqlite"
	BackendAMQP   BackendType = "amqp"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case BackendNone, BackendSQLite, BackendAMQP:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Backend is a configured recorder. Reader is nil when the process cannot
// read the log itself; Ping is nil when there is nothing to check.
type Backend struct {
	Type     BackendType
	Recorder Recorder
	Reader   Reader
	Ping     func(ctx context.Context) error
	Cleanup  CleanupFunc
}

// Close runs Cleanup if set.
func (b *Backend) Close() error {
	if b == nil || b.Cleanup == nil {
		return nil
	}
	return b.Cleanup()
}

// NewBackend builds the recorder named by cfg.ActivityBackend. An AMQP
// broker that cannot be reached degrades to Discard with a warning.
func NewBackend(cfg *config.Config, logger *log.Logger) (*Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentActivity)

	bt := BackendType(cfg.ActivityBackend)
	if !bt.IsValid() {
		return nil, fmt.Errorf("invalid activity backend: %s", cfg.ActivityBackend)
	}

	switch bt {
	case BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite activity log: %w", err)
		}
		rec := NewStoreRecorder(repo, logger)
		logger.Info("Initialized SQLite activity log", "db_path", cfg.SQLiteDBPath)
		return &Backend{
			Type:     bt,
			Recorder: rec,
			Reader:   rec,
			Ping:     repo.Ping,
			Cleanup:  repo.Close,
		}, nil

	case BackendAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, activity will not be recorded", log.FieldError, err)
			return &Backend{Type: BackendNone, Recorder: Discard{}}, nil
		}
		logger.Info("Initialized AMQP activity publisher",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		return &Backend{
			Type:     bt,
			Recorder: NewQueueRecorder(client, logger),
			Cleanup:  client.Close,
		}, nil
	}

	return &Backend{Type: BackendNone, Recorder: Discard{}}, nil
}
