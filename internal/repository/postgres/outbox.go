package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/frontdesk-api/internal/model"
)

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, aggregate_id, payload, status, retry_count
		) VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING created_at, updated_at
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending

	err := r.q(ctx).QueryRowxContext(ctx, query,
		event.ID,
		event.EventType,
		event.AggregateID,
		[]byte(event.Payload),
		event.Status,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to create outbox event: %w", err), "")
	}
	return nil
}

// GetPendingEventsWithLock must run inside a transaction for the row locks to
// hold until the events are marked.
func (r *outboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, status, error_message,
			   retry_count, created_at, updated_at, processed_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	var events []*model.OutboxEvent
	if err := r.q(ctx).SelectContext(ctx, &events, query, model.OutboxStatusPending, limit); err != nil {
		return nil, mapError(fmt.Errorf("failed to get pending events: %w", err), "")
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = NOW(), updated_at = NOW(), error_message = NULL
		WHERE id = $2
	`
	res, err := r.q(ctx).ExecContext(ctx, query, model.OutboxStatusProcessed, id)
	if err != nil {
		return mapError(fmt.Errorf("failed to mark event %s processed: %w", id, err), "")
	}
	return expectOneRow(res, "outbox event")
}

// MarkFailed records a failed publish. The event stays pending until it has
// failed maxRetries times.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, maxRetries int) error {
	query := `
		UPDATE outbox_events
		SET retry_count = retry_count + 1,
			error_message = $1,
			status = CASE WHEN retry_count + 1 >= $2 THEN $3 ELSE status END,
			updated_at = NOW()
		WHERE id = $4
	`
	res, err := r.q(ctx).ExecContext(ctx, query, errorMessage, maxRetries, model.OutboxStatusFailed, id)
	if err != nil {
		return mapError(fmt.Errorf("failed to mark event %s failed: %w", id, err), "")
	}
	return expectOneRow(res, "outbox event")
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = $1
		AND processed_at < $2
	`
	result, err := r.q(ctx).ExecContext(ctx, query, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
