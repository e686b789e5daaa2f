package appointment

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/frontdesk-api/internal/availability"
	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository/memory"
	"github.com/jwalitptl/frontdesk-api/internal/service/event"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
)

type stubCharges struct {
	charge decimal.Decimal
}

func (c *stubCharges) HospitalCharge(context.Context) (decimal.Decimal, error) {
	return c.charge, nil
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, string, int64, interface{}) error {
	return errors.New("outbox unavailable")
}

type fixture struct {
	store      *memory.Store
	svc        *Service
	charges    *stubCharges
	patientID  int64
	doctorID   int64
	scheduleID int64
}

// 2024-01-01 is a Monday.
var today = model.MustParseDate("2024-01-01")

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:   store,
		charges: &stubCharges{charge: decimal.RequireFromString("750.00")},
	}
	f.patientID = store.AddPatient(model.Patient{Name: "Nimal Perera", Gender: model.GenderMale})
	f.doctorID = store.AddDoctor(model.Doctor{
		Name:           "Silva",
		Specialization: "Cardiology",
		ChannelingFee:  decimal.RequireFromString("2000.00"),
	})
	f.scheduleID = store.AddSchedule(model.Schedule{
		DoctorID:  f.doctorID,
		Day:       model.Monday,
		StartTime: "09:00",
		EndTime:   "12:00",
	})
	f.svc = NewService(Deps{
		Tx:           store,
		Appointments: store.Appointments(),
		Bills:        store.Bills(),
		Directory:    store.Directory(),
		Charges:      f.charges,
		Events:       event.NewService(store.Outbox()),
		Clock:        availability.FixedClock(today),
		Config:       cfg,
		Logger:       logger.Nop(),
		Metrics:      metrics.NewMetrics("test", "appointment", prometheus.NewRegistry()),
	})
	return f
}

func as(role model.Role) context.Context {
	return model.WithCaller(context.Background(), model.Caller{UserID: 1, Name: "desk", Role: role})
}

func (f *fixture) book(t *testing.T, date string) *model.Appointment {
	t.Helper()
	apt, err := f.svc.Book(as(model.RoleReceptionist), &model.BookAppointmentRequest{
		PatientID:       f.patientID,
		ScheduleID:      f.scheduleID,
		AppointmentDate: date,
	})
	require.NoError(t, err)
	return apt
}

func TestBook(t *testing.T) {
	f := newFixture(t, Config{})

	apt := f.book(t, "2024-01-08")

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, model.PaymentStatusUnpaid, apt.PaymentStatus)
	assert.Equal(t, "2750", apt.AppointmentFee.String())
	assert.Equal(t, "Silva", apt.DoctorName)
	assert.Equal(t, "Nimal Perera", apt.PatientName)

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentBooked, events[0].EventType)
	assert.Equal(t, apt.ID, events[0].AggregateID)
}

func TestBook_TodayIsBookable(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, today.String())
	assert.Equal(t, today, apt.AppointmentDate)
}

func TestBook_Rejections(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name string
		ctx  context.Context
		req  model.BookAppointmentRequest
		want *apperrors.AppError
	}{
		{
			name: "tuesday on a monday schedule",
			ctx:  as(model.RoleReceptionist),
			req:  model.BookAppointmentRequest{PatientID: f.patientID, ScheduleID: f.scheduleID, AppointmentDate: "2024-01-09"},
			want: apperrors.InvalidArgumentErr,
		},
		{
			name: "date in the past",
			ctx:  as(model.RoleReceptionist),
			req:  model.BookAppointmentRequest{PatientID: f.patientID, ScheduleID: f.scheduleID, AppointmentDate: "2023-12-25"},
			want: apperrors.InvalidArgumentErr,
		},
		{
			name: "malformed date",
			ctx:  as(model.RoleReceptionist),
			req:  model.BookAppointmentRequest{PatientID: f.patientID, ScheduleID: f.scheduleID, AppointmentDate: "08/01/2024"},
			want: apperrors.InvalidArgumentErr,
		},
		{
			name: "unknown patient",
			ctx:  as(model.RoleReceptionist),
			req:  model.BookAppointmentRequest{PatientID: 999, ScheduleID: f.scheduleID, AppointmentDate: "2024-01-08"},
			want: apperrors.NotFoundErr,
		},
		{
			name: "unknown schedule",
			ctx:  as(model.RoleReceptionist),
			req:  model.BookAppointmentRequest{PatientID: f.patientID, ScheduleID: 999, AppointmentDate: "2024-01-08"},
			want: apperrors.NotFoundErr,
		},
		{
			name: "cashier",
			ctx:  as(model.RoleCashier),
			req:  model.BookAppointmentRequest{PatientID: f.patientID, ScheduleID: f.scheduleID, AppointmentDate: "2024-01-08"},
			want: apperrors.ForbiddenErr,
		},
		{
			name: "anonymous",
			ctx:  context.Background(),
			req:  model.BookAppointmentRequest{PatientID: f.patientID, ScheduleID: f.scheduleID, AppointmentDate: "2024-01-08"},
			want: apperrors.UnauthorizedErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.Book(tt.ctx, &req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	appointments, err := f.svc.List(as(model.RoleAdmin), nil)
	require.NoError(t, err)
	assert.Empty(t, appointments)
}

func TestBook_DailyLimit(t *testing.T) {
	f := newFixture(t, Config{DailyLimit: 2})
	first := f.book(t, "2024-01-08")
	f.book(t, "2024-01-08")

	_, err := f.svc.Book(as(model.RoleReceptionist), &model.BookAppointmentRequest{
		PatientID: f.patientID, ScheduleID: f.scheduleID, AppointmentDate: "2024-01-08",
	})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)

	// a cancelled booking frees its slot
	_, err = f.svc.Cancel(as(model.RoleReceptionist), first.ID, &model.CancelAppointmentRequest{})
	require.NoError(t, err)
	f.book(t, "2024-01-08")
}

func TestBook_FeeIsFrozen(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")

	f.charges.charge = decimal.RequireFromString("1000.00")

	got, err := f.svc.Get(as(model.RoleAdmin), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2750", got.AppointmentFee.String())
}

func TestBook_RollsBackWhenEventFails(t *testing.T) {
	f := newFixture(t, Config{})
	f.svc.events = failingEmitter{}

	_, err := f.svc.Book(as(model.RoleReceptionist), &model.BookAppointmentRequest{
		PatientID: f.patientID, ScheduleID: f.scheduleID, AppointmentDate: "2024-01-08",
	})
	require.Error(t, err)

	appointments, err := f.svc.List(as(model.RoleAdmin), nil)
	require.NoError(t, err)
	assert.Empty(t, appointments)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")
	ctx := as(model.RoleReceptionist)

	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusPending,
	} {
		got, err := f.svc.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}

	got, err := f.svc.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{
		Status: model.AppointmentStatusConfirmed,
		Notes:  "bring previous reports",
	})
	require.NoError(t, err)
	assert.Equal(t, "bring previous reports", got.Notes)

	_, err = f.svc.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{Status: "NO_SHOW"})
	assert.ErrorIs(t, err, apperrors.InvalidArgumentErr)

	_, err = f.svc.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusRescheduled})
	assert.ErrorIs(t, err, apperrors.InvalidArgumentErr)

	_, err = f.svc.UpdateStatus(ctx, 999, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusConfirmed})
	assert.ErrorIs(t, err, apperrors.NotFoundErr)
}

func TestUpdateStatus_TerminalIsFinal(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")
	ctx := as(model.RoleReceptionist)

	got, err := f.svc.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCancelled})
	require.NoError(t, err)
	assert.NotNil(t, got.CancelledAt)

	_, err = f.svc.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusConfirmed})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")
	ctx := as(model.RoleReceptionist)

	got, err := f.svc.Cancel(ctx, apt.ID, &model.CancelAppointmentRequest{Reason: "patient travelling"})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "patient travelling", *got.CancellationReason)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, model.PaymentStatusUnpaid, got.PaymentStatus)

	_, err = f.svc.Cancel(ctx, apt.ID, &model.CancelAppointmentRequest{})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
}

func TestCancel_RecordsRefundForPaidAppointment(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")

	apt.PaymentStatus = model.PaymentStatusPaid
	apt.PaidAmount = decimal.NewNullDecimal(apt.AppointmentFee)
	require.NoError(t, f.store.Appointments().Update(context.Background(), apt))

	got, err := f.svc.Cancel(as(model.RoleReceptionist), apt.ID, &model.CancelAppointmentRequest{
		Reason:         "doctor unavailable",
		RefundRequired: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, got.PaymentStatus)
	require.True(t, got.RefundAmount.Valid)
	assert.Equal(t, "2750", got.RefundAmount.Decimal.String())
	assert.NotNil(t, got.RefundedAt)
	assert.True(t, got.RefundRequired)
}

func TestCancel_RefundIgnoredWhenUnpaid(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")

	got, err := f.svc.Cancel(as(model.RoleReceptionist), apt.ID, &model.CancelAppointmentRequest{RefundRequired: true})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusUnpaid, got.PaymentStatus)
	assert.False(t, got.RefundAmount.Valid)
	assert.Nil(t, got.RefundedAt)
}

func TestReschedule(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")
	ctx := as(model.RoleReceptionist)

	next, err := f.svc.Reschedule(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MustParseDate("2024-01-15"), next.AppointmentDate)
	assert.Equal(t, model.AppointmentStatusPending, next.Status)
	assert.Equal(t, model.PaymentStatusUnpaid, next.PaymentStatus)
	assert.Equal(t, "2750", next.AppointmentFee.String())
	assert.Equal(t, "Rescheduled from 2024-01-08", next.Notes)
	require.NotNil(t, next.RescheduledFromID)
	assert.Equal(t, apt.ID, *next.RescheduledFromID)

	original, err := f.svc.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRescheduled, original.Status)

	_, err = f.svc.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusConfirmed})
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)

	_, err = f.svc.Reschedule(ctx, apt.ID)
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
}

func TestReschedule_SkipsFullDates(t *testing.T) {
	f := newFixture(t, Config{DailyLimit: 1})
	apt := f.book(t, "2024-01-08")
	f.book(t, "2024-01-15")

	next, err := f.svc.Reschedule(as(model.RoleReceptionist), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MustParseDate("2024-01-22"), next.AppointmentDate)
}

func TestReschedule_NoCapacityInWindow(t *testing.T) {
	f := newFixture(t, Config{DailyLimit: 1, RescheduleWindowDays: 14})
	apt := f.book(t, "2024-01-08")
	f.book(t, "2024-01-15")

	_, err := f.svc.Reschedule(as(model.RoleReceptionist), apt.ID)
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)

	original, err := f.svc.Get(as(model.RoleReceptionist), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, original.Status)
}

func TestReschedule_Rejections(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := as(model.RoleReceptionist)

	completed := f.book(t, "2024-01-08")
	_, err := f.svc.UpdateStatus(ctx, completed.ID, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusCompleted})
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, completed.ID)
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)

	orphan := f.book(t, "2024-01-08")
	f.store.RemoveSchedule(f.scheduleID)
	_, err = f.svc.Reschedule(ctx, orphan.ID)
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)

	_, err = f.svc.Reschedule(ctx, 999)
	assert.ErrorIs(t, err, apperrors.NotFoundErr)
}

func TestGenerateBill(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")
	ctx := as(model.RoleCashier)

	bill, err := f.svc.GenerateBill(ctx, apt.ID)
	require.NoError(t, err)

	assert.Equal(t, model.BillTypeAppointment, bill.Type())
	id, ok := bill.AppointmentID()
	require.True(t, ok)
	assert.Equal(t, apt.ID, id)
	require.Len(t, bill.Items, 2)
	assert.Equal(t, model.ItemTypeDoctorFee, bill.Items[0].ItemType)
	assert.Equal(t, "Doctor Channeling Fee - Silva", bill.Items[0].ItemName)
	assert.Equal(t, "2000", bill.Items[0].Price.String())
	assert.Equal(t, model.ItemTypeHospitalFee, bill.Items[1].ItemType)
	assert.Equal(t, "750", bill.Items[1].Price.String())
	assert.Equal(t, "2750", bill.Total().String())

	_, err = f.svc.GenerateBill(ctx, apt.ID)
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)
}

func TestGenerateBill_Rejections(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2024-01-08")

	_, err := f.svc.Cancel(as(model.RoleReceptionist), apt.ID, &model.CancelAppointmentRequest{})
	require.NoError(t, err)

	_, err = f.svc.GenerateBill(as(model.RoleCashier), apt.ID)
	assert.ErrorIs(t, err, apperrors.InvalidStateErr)

	_, err = f.svc.GenerateBill(as(model.RoleCashier), 999)
	assert.ErrorIs(t, err, apperrors.NotFoundErr)
}

func TestListAndToday(t *testing.T) {
	f := newFixture(t, Config{})
	f.book(t, today.String())
	later := f.book(t, "2024-01-08")
	ctx := as(model.RoleAdmin)

	todays, err := f.svc.Today(ctx)
	require.NoError(t, err)
	require.Len(t, todays, 1)
	assert.Equal(t, today, todays[0].AppointmentDate)

	all, err := f.svc.List(ctx, &model.AppointmentFilters{DoctorID: f.doctorID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, later.ID, all[0].ID)

	_, err = f.svc.List(ctx, &model.AppointmentFilters{Status: "LOST"})
	assert.ErrorIs(t, err, apperrors.InvalidArgumentErr)
}

func TestAvailableDates(t *testing.T) {
	f := newFixture(t, Config{})

	resp, err := f.svc.AvailableDates(as(model.RoleReceptionist), f.scheduleID, 0)
	require.NoError(t, err)
	require.Len(t, resp.Dates, availability.DefaultUpcomingCount)
	assert.Equal(t, model.MustParseDate("2024-01-08"), resp.Dates[0])
	assert.Equal(t, model.MustParseDate("2024-02-26"), resp.Dates[7])
	assert.Equal(t, model.Monday, resp.Day)

	_, err = f.svc.AvailableDates(as(model.RoleReceptionist), f.scheduleID, MaxUpcomingCount+1)
	assert.ErrorIs(t, err, apperrors.InvalidArgumentErr)

	_, err = f.svc.AvailableDates(as(model.RoleReceptionist), 999, 3)
	assert.ErrorIs(t, err, apperrors.NotFoundErr)
}

func TestSchedulesForDate(t *testing.T) {
	f := newFixture(t, Config{})
	f.store.AddSchedule(model.Schedule{DoctorID: f.doctorID, Day: model.Tuesday, StartTime: "14:00", EndTime: "17:00"})
	ctx := as(model.RoleReceptionist)

	got, err := f.svc.SchedulesForDate(ctx, "2024-01-09")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Tuesday, got[0].Day)
	assert.Equal(t, "Silva", got[0].DoctorName)

	_, err = f.svc.SchedulesForDate(ctx, "tomorrow")
	assert.ErrorIs(t, err, apperrors.InvalidArgumentErr)
}
