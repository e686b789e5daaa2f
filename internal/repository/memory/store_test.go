package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

func seededBill(t *testing.T, s *Store) *model.Bill {
	t.Helper()
	patientID := s.AddPatient(model.Patient{Name: "Nimal Perera"})
	bill := model.NewTestOnlyBill(patientID, "", model.BillItem{
		ItemName: "Full Blood Count",
		ItemType: model.ItemTypeTest,
		Price:    decimal.RequireFromString("1500.00"),
	})
	require.NoError(t, s.Bills().Create(context.Background(), bill))
	return bill
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := NewStore()
	bill := seededBill(t, s)
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.Bills().AddItem(ctx, bill.ID, &model.BillItem{
			ItemName: "Lipid Profile",
			ItemType: model.ItemTypeTest,
			Price:    decimal.RequireFromString("850.00"),
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Bills().Get(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "1500", got.Total().String())
}

func TestWithTx_UncommittedWritesAreInvisible(t *testing.T) {
	s := NewStore()
	bill := seededBill(t, s)
	ctx := context.Background()

	paid := make(chan struct{})
	release := make(chan struct{})
	txErr := make(chan error, 1)
	go func() {
		txErr <- s.WithTx(ctx, func(ctx context.Context) error {
			if err := s.Bills().MarkPaid(ctx, bill.ID, model.PaymentMethodCash, time.Now()); err != nil {
				return err
			}
			close(paid)
			<-release
			return errors.New("payment record failed")
		})
	}()
	<-paid

	got, err := s.Bills().Get(ctx, bill.ID)
	require.NoError(t, err)
	assert.False(t, got.Paid)

	close(release)
	require.Error(t, <-txErr)

	got, err = s.Bills().Get(ctx, bill.ID)
	require.NoError(t, err)
	assert.False(t, got.Paid)
	assert.Nil(t, got.PaymentMethod)
}

func TestWithTx_RollbackKeepsStandaloneWrites(t *testing.T) {
	s := NewStore()
	bill := seededBill(t, s)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	txErr := make(chan error, 1)
	go func() {
		txErr <- s.WithTx(ctx, func(ctx context.Context) error {
			if err := s.Bills().Delete(ctx, bill.ID); err != nil {
				return err
			}
			close(started)
			<-release
			return errors.New("boom")
		})
	}()
	<-started

	added := make(chan int64, 1)
	go func() { added <- s.AddPatient(model.Patient{Name: "Sunil"}) }()

	close(release)
	require.Error(t, <-txErr)
	patientID := <-added

	p, err := s.Directory().GetPatient(ctx, patientID)
	require.NoError(t, err)
	assert.Equal(t, "Sunil", p.Name)

	_, err = s.Bills().Get(ctx, bill.ID)
	assert.NoError(t, err)
}

func TestWithTx_CommitPublishesWrites(t *testing.T) {
	s := NewStore()
	bill := seededBill(t, s)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context) error {
		return s.Bills().MarkPaid(ctx, bill.ID, model.PaymentMethodCard, time.Now())
	}))

	got, err := s.Bills().Get(ctx, bill.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)
}

func TestWithTx_NestedCallsJoin(t *testing.T) {
	s := NewStore()
	patientID := s.AddPatient(model.Patient{Name: "Kamala"})

	err := s.WithTx(context.Background(), func(ctx context.Context) error {
		return s.WithTx(ctx, func(ctx context.Context) error {
			return s.Bills().Create(ctx, model.NewTestOnlyBill(patientID, ""))
		})
	})
	require.NoError(t, err)

	bills, err := s.Bills().ListByPatient(context.Background(), patientID)
	require.NoError(t, err)
	assert.Len(t, bills, 1)
}

func TestBills_MarkPaidOnlyOnce(t *testing.T) {
	s := NewStore()
	bill := seededBill(t, s)
	ctx := context.Background()

	require.NoError(t, s.Bills().MarkPaid(ctx, bill.ID, model.PaymentMethodCash, time.Now()))
	err := s.Bills().MarkPaid(ctx, bill.ID, model.PaymentMethodCard, time.Now())
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)

	got, err := s.Bills().Get(ctx, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PaymentMethod)
	assert.Equal(t, model.PaymentMethodCash, *got.PaymentMethod)
	assert.Equal(t, "Nimal Perera", got.PatientName)
}

func TestBills_ReturnedCopiesAreIsolated(t *testing.T) {
	s := NewStore()
	bill := seededBill(t, s)

	got, err := s.Bills().Get(context.Background(), bill.ID)
	require.NoError(t, err)
	got.Items[0].Price = decimal.Zero

	again, err := s.Bills().Get(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500", again.Items[0].Price.String())
}

func TestBills_RemoveItemFromOtherBill(t *testing.T) {
	s := NewStore()
	first := seededBill(t, s)
	second := seededBill(t, s)

	err := s.Bills().RemoveItem(context.Background(), second.ID, first.Items[0].ID)
	assert.ErrorIs(t, err, apperrors.NotFoundErr)
}

func TestAppointments_CountActiveIgnoresTerminal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	date := model.MustParseDate("2024-01-08")

	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusRescheduled,
	} {
		require.NoError(t, s.Appointments().Create(ctx, &model.Appointment{
			DoctorID:        7,
			AppointmentDate: date,
			Status:          status,
		}))
	}

	n, err := s.Appointments().CountActive(ctx, 7, date)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOutbox_Lifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ev := &model.OutboxEvent{EventType: model.EventBillPaid, AggregateID: 1, Payload: []byte(`{}`)}
	require.NoError(t, s.Outbox().Create(ctx, ev))

	pending, err := s.Outbox().GetPendingEventsWithLock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.Outbox().MarkFailed(ctx, ev.ID, "redis down", 2))
	pending, _ = s.Outbox().GetPendingEventsWithLock(ctx, 10)
	assert.Len(t, pending, 1)

	require.NoError(t, s.Outbox().MarkProcessed(ctx, ev.ID))
	n, err := s.Outbox().DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Empty(t, s.OutboxEvents())
}
