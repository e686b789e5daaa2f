package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository/memory"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
)

func TestOutboxCleanupWorker_Cleanup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Outbox()
	m := metrics.NewMetrics("test", "cleanup", prometheus.NewRegistry())

	processed := &model.OutboxEvent{EventType: model.EventBillPaid, AggregateID: 1, Payload: []byte(`{}`)}
	pending := &model.OutboxEvent{EventType: model.EventBillCreated, AggregateID: 2, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(ctx, processed))
	require.NoError(t, repo.Create(ctx, pending))
	require.NoError(t, repo.MarkProcessed(ctx, processed.ID))

	w, err := NewOutboxCleanupWorker(repo, 7*24*time.Hour, "0 3 * * *", logger.Nop(), m)
	require.NoError(t, err)

	t.Run("keeps events inside retention", func(t *testing.T) {
		n, err := w.Cleanup(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Len(t, store.OutboxEvents(), 2)
	})

	t.Run("purges old processed events only", func(t *testing.T) {
		w.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

		n, err := w.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		left := store.OutboxEvents()
		require.Len(t, left, 1)
		assert.Equal(t, pending.ID, left[0].ID)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsCleaned))
	})
}

func TestNewOutboxCleanupWorker_Validation(t *testing.T) {
	m := metrics.NewMetrics("test", "cleanup_validation", prometheus.NewRegistry())
	repo := memory.NewStore().Outbox()

	_, err := NewOutboxCleanupWorker(repo, 0, "0 3 * * *", logger.Nop(), m)
	assert.Error(t, err)

	_, err = NewOutboxCleanupWorker(repo, time.Hour, "every now and then", logger.Nop(), m)
	assert.Error(t, err)
}

func TestOutboxCleanupWorker_StartStopsOnCancel(t *testing.T) {
	m := metrics.NewMetrics("test", "cleanup_start", prometheus.NewRegistry())
	w, err := NewOutboxCleanupWorker(memory.NewStore().Outbox(), time.Hour, "@every 1h", logger.Nop(), m)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}
