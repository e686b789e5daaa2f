package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/frontdesk-api/internal/repository"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
)

// OutboxCleanupWorker purges published outbox events older than the
// retention period on a cron schedule.
type OutboxCleanupWorker struct {
	repo      repository.OutboxRepository
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewOutboxCleanupWorker(
	repo repository.OutboxRepository,
	retention time.Duration,
	schedule string,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxCleanupWorker, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be greater than 0")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return &OutboxCleanupWorker{
		repo:      repo,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Start runs the job until ctx is cancelled, then waits for a running
// cleanup to finish.
func (w *OutboxCleanupWorker) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() {
		if _, err := w.Cleanup(ctx); err != nil {
			w.logger.Error(err, "Outbox cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule outbox cleanup: %w", err)
	}

	w.logger.Info("Starting outbox cleanup", "schedule", w.schedule, "retention", w.retention.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("Outbox cleanup stopped")
	return nil
}

// Cleanup deletes processed events older than the retention period and
// returns how many were removed.
func (w *OutboxCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)

	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	w.metrics.DatabaseOperations.WithLabelValues("cleanup_outbox", metrics.Outcome(err)).Inc()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup outbox events: %w", err)
	}

	w.metrics.OutboxEventsCleaned.Add(float64(rows))
	w.logger.Info("Cleaned up outbox events", "deleted", rows, "cutoff", cutoff)
	return rows, nil
}
