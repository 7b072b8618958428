package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotproduct/internal/amqp"
	"dotproduct/internal/core"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string]core.ActivityEvent
	saveErr error
	cutoff  time.Time
	pruned  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string]core.ActivityEvent{}}
}

func (f *fakeStore) SaveActivity(_ context.Context, e core.ActivityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[e.ID] = e
	return nil
}

func (f *fakeStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return f.pruned, nil
}

func TestHandleActivityMessage_Saves(t *testing.T) {
	store := newFakeStore()
	w := NewActivityWorker(store, 0, nil)

	msg := amqp.NewActivityMessage(core.ActivityEvent{
		ID:     "evt-1",
		Kind:   core.ActivityTransactionDelete,
		UserID: 3,
	})
	require.NoError(t, w.HandleActivityMessage(context.Background(), msg))
	require.NoError(t, w.HandleActivityMessage(context.Background(), msg))

	assert.Len(t, store.saved, 1)
	assert.Equal(t, core.ActivityTransactionDelete, store.saved["evt-1"].Kind)
}

func TestHandleActivityMessage_DropsMissingID(t *testing.T) {
	store := newFakeStore()
	w := NewActivityWorker(store, 0, nil)

	assert.NoError(t, w.HandleActivityMessage(context.Background(), &amqp.ActivityMessage{}))
	assert.NoError(t, w.HandleActivityMessage(context.Background(), nil))
	assert.Empty(t, store.saved)
}

func TestHandleActivityMessage_StoreErrorRequeues(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("database is locked")
	w := NewActivityWorker(store, 0, nil)

	err := w.HandleActivityMessage(context.Background(), amqp.NewActivityMessage(core.ActivityEvent{ID: "evt-2"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.saveErr)
}

func TestPrune(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	t.Run("uses retention window", func(t *testing.T) {
		store := newFakeStore()
		store.pruned = 4
		w := NewActivityWorker(store, 30*24*time.Hour, nil)
		w.now = func() time.Time { return now }

		require.NoError(t, w.Prune(context.Background()))
		assert.Equal(t, now.Add(-30*24*time.Hour), store.cutoff)
	})

	t.Run("zero retention keeps everything", func(t *testing.T) {
		store := newFakeStore()
		w := NewActivityWorker(store, 0, nil)

		require.NoError(t, w.Prune(context.Background()))
		assert.True(t, store.cutoff.IsZero())
	})
}

func TestRunPruner_StopsOnCancel(t *testing.T) {
	store := newFakeStore()
	w := NewActivityWorker(store, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPruner(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop")
	}
}
