// Package memory is an in-process implementation of the repository
// interfaces. It backs the API's demo mode and the service tests.
//
// Transactions are serialized. Each one works on a private copy of the data
// that replaces the committed copy only when it succeeds, so readers outside
// the transaction never see its writes and a rollback discards nothing but
// its own. A write made outside any transaction is applied the same way, as
// a single-statement transaction.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

type txKey struct{}

type state struct {
	seq          int64
	patients     map[int64]model.Patient
	doctors      map[int64]model.Doctor
	schedules    map[int64]model.Schedule
	tests        map[int64]model.MedicalTest
	settings     map[string]string
	appointments map[int64]model.Appointment
	bills        map[int64]*model.Bill
	payments     map[int64]model.Payment
	outbox       map[uuid.UUID]model.OutboxEvent
}

func (s *state) clone() *state {
	c := &state{
		seq:          s.seq,
		patients:     maps.Clone(s.patients),
		doctors:      maps.Clone(s.doctors),
		schedules:    maps.Clone(s.schedules),
		tests:        maps.Clone(s.tests),
		settings:     maps.Clone(s.settings),
		appointments: maps.Clone(s.appointments),
		bills:        make(map[int64]*model.Bill, len(s.bills)),
		payments:     maps.Clone(s.payments),
		outbox:       maps.Clone(s.outbox),
	}
	for id, b := range s.bills {
		c.bills[id] = cloneBill(b)
	}
	return c
}

func cloneBill(b *model.Bill) *model.Bill {
	c := *b
	c.Items = append([]model.BillItem(nil), b.Items...)
	return &c
}

// Store holds the committed data; the repository views returned by its
// accessors share it.
type Store struct {
	// txMu serializes writers: transactions and standalone writes.
	txMu sync.Mutex
	// mu guards the data pointer.
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

var _ repository.TxManager = (*Store)(nil)

type (
	directoryRepo   struct{ s *Store }
	appointmentRepo struct{ s *Store }
	billRepo        struct{ s *Store }
	settingsRepo    struct{ s *Store }
	outboxRepo      struct{ s *Store }
)

func (s *Store) Directory() repository.DirectoryRepository     { return directoryRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Bills() repository.BillRepository               { return billRepo{s} }
func (s *Store) Settings() repository.SettingsRepository        { return settingsRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository            { return outboxRepo{s} }

func NewStore() *Store {
	return &Store{
		now: time.Now,
		data: &state{
			patients:     make(map[int64]model.Patient),
			doctors:      make(map[int64]model.Doctor),
			schedules:    make(map[int64]model.Schedule),
			tests:        make(map[int64]model.MedicalTest),
			settings:     make(map[string]string),
			appointments: make(map[int64]model.Appointment),
			bills:        make(map[int64]*model.Bill),
			payments:     make(map[int64]model.Payment),
			outbox:       make(map[uuid.UUID]model.OutboxEvent),
		},
	}
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

func txState(ctx context.Context) *state {
	st, _ := ctx.Value(txKey{}).(*state)
	return st
}

func (s *Store) committed() *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// read runs fn against the transaction's working copy, or against the last
// committed data. Committed data is never modified in place, so fn may read
// it without holding a lock.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if st := txState(ctx); st != nil {
		return fn(st)
	}
	return fn(s.committed())
}

// write runs fn inside the transaction on ctx, or as a transaction of its own.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if st := txState(ctx); st != nil {
		return fn(st)
	}
	return s.WithTx(ctx, func(ctx context.Context) error {
		return fn(txState(ctx))
	})
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txState(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.committed().clone()
	if err := fn(context.WithValue(ctx, txKey{}, working)); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = working
	s.mu.Unlock()
	return nil
}

// Seeding helpers. IDs are assigned when zero.

func (s *Store) AddPatient(p model.Patient) int64 {
	_ = s.write(context.Background(), func(st *state) error {
		if p.ID == 0 {
			p.ID = st.nextID()
		}
		st.patients[p.ID] = p
		return nil
	})
	return p.ID
}

func (s *Store) AddDoctor(d model.Doctor) int64 {
	_ = s.write(context.Background(), func(st *state) error {
		if d.ID == 0 {
			d.ID = st.nextID()
		}
		st.doctors[d.ID] = d
		return nil
	})
	return d.ID
}

func (s *Store) AddSchedule(sc model.Schedule) int64 {
	_ = s.write(context.Background(), func(st *state) error {
		if sc.ID == 0 {
			sc.ID = st.nextID()
		}
		st.schedules[sc.ID] = sc
		return nil
	})
	return sc.ID
}

func (s *Store) RemoveSchedule(id int64) {
	_ = s.write(context.Background(), func(st *state) error {
		delete(st.schedules, id)
		return nil
	})
}

// PutMedicalTest inserts or replaces a test.
func (s *Store) PutMedicalTest(t model.MedicalTest) int64 {
	_ = s.write(context.Background(), func(st *state) error {
		if t.ID == 0 {
			t.ID = st.nextID()
		}
		st.tests[t.ID] = t
		return nil
	})
	return t.ID
}

func (s *Store) SetSetting(key, value string) {
	_ = s.write(context.Background(), func(st *state) error {
		st.settings[key] = value
		return nil
	})
}

// Payments returns all committed payments ordered by ID.
func (s *Store) Payments() []model.Payment {
	st := s.committed()
	out := make([]model.Payment, 0, len(st.payments))
	for _, p := range st.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OutboxEvents returns all committed outbox events ordered by creation.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	st := s.committed()
	out := make([]model.OutboxEvent, 0, len(st.outbox))
	for _, e := range st.outbox {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func notFound(resource string) error {
	return apperrors.NewNotFound(resource, nil)
}
