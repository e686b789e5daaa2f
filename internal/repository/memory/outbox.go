package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/frontdesk-api/internal/model"
)

func (r outboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	return r.s.write(ctx, func(st *state) error {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.Status = model.OutboxStatusPending
		e.CreatedAt = r.s.now()
		e.UpdatedAt = e.CreatedAt
		st.outbox[e.ID] = *e
		return nil
	})
}

func (r outboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) (out []*model.OutboxEvent, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, e := range st.outbox {
			if e.Status == model.OutboxStatusPending {
				out = append(out, &e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		e, ok := st.outbox[id]
		if !ok {
			return notFound("outbox event")
		}
		now := r.s.now()
		e.Status = model.OutboxStatusProcessed
		e.ProcessedAt = &now
		e.UpdatedAt = now
		st.outbox[id] = e
		return nil
	})
}

func (r outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, msg string, maxRetries int) error {
	return r.s.write(ctx, func(st *state) error {
		e, ok := st.outbox[id]
		if !ok {
			return notFound("outbox event")
		}
		e.RetryCount++
		e.ErrorMessage = &msg
		if e.RetryCount >= maxRetries {
			e.Status = model.OutboxStatusFailed
		}
		e.UpdatedAt = r.s.now()
		st.outbox[id] = e
		return nil
	})
}

func (r outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (n int64, err error) {
	err = r.s.write(ctx, func(st *state) error {
		for id, e := range st.outbox {
			if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
				delete(st.outbox, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
