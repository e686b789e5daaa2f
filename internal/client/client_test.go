package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/frontdesk-api/config"
	"github.com/jwalitptl/frontdesk-api/internal/app"
	"github.com/jwalitptl/frontdesk-api/internal/availability"
	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository/memory"
	"github.com/jwalitptl/frontdesk-api/pkg/auth"
	"github.com/jwalitptl/frontdesk-api/internal/client"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
)

const (
	secret = "test-secret"
	issuer = "frontdesk-test"
)

// 2024-01-01 is a Monday.
var today = model.MustParseDate("2024-01-01")

type harness struct {
	server *httptest.Server
	store  *memory.Store
	demo   app.Demo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	demo := app.SeedDemo(store)

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: secret, Issuer: issuer},
		Billing: config.BillingConfig{
			DefaultHospitalCharge: "750.00",
			DailyLimit:            20,
			RescheduleWindowDays:  60,
			MasterDataCacheTTL:    time.Minute,
		},
	}
	api, err := app.NewAPI(app.Options{
		Config:   cfg,
		Stores:   app.MemoryStores(store),
		Logger:   logger.Nop(),
		Registry: prometheus.NewRegistry(),
		Clock:    availability.FixedClock(today),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.Router.Engine())
	t.Cleanup(srv.Close)
	return &harness{server: srv, store: store, demo: demo}
}

func (h *harness) client(t *testing.T, role model.Role) *client.Client {
	t.Helper()
	token, err := auth.SignToken(secret, issuer, model.Caller{UserID: 7, Name: "Staff", Role: role}, time.Hour)
	require.NoError(t, err)
	return client.New(h.server.URL, token, client.WithHTTPClient(h.server.Client()))
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.CodeOf(err), "got %v", err)
}

func TestEndToEnd_BookBillAndPay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reception := h.client(t, model.RoleReceptionist)
	cashier := h.client(t, model.RoleCashier)

	patientID := h.demo.PatientIDs[0]
	mondaySchedule := h.demo.ScheduleIDs[0]

	dates, err := reception.AvailableDates(ctx, mondaySchedule, 0)
	require.NoError(t, err)
	assert.Equal(t, model.Monday, dates.Day)
	require.Len(t, dates.Dates, availability.DefaultUpcomingCount)
	assert.Equal(t, "2024-01-08", dates.Dates[0].String())

	apt, err := reception.Book(ctx, &model.BookAppointmentRequest{
		PatientID:       patientID,
		ScheduleID:      mondaySchedule,
		AppointmentDate: dates.Dates[0].String(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.True(t, decimal.RequireFromString("2750").Equal(apt.AppointmentFee))

	bill, err := reception.GenerateAppointmentBill(ctx, apt.ID)
	require.NoError(t, err)
	require.Len(t, bill.Items, 2)
	assert.True(t, decimal.RequireFromString("2000").Equal(bill.Items[0].Price))
	assert.True(t, decimal.RequireFromString("750").Equal(bill.Items[1].Price))
	assert.True(t, decimal.RequireFromString("2750").Equal(bill.Total()))

	_, err = reception.GenerateAppointmentBill(ctx, apt.ID)
	requireCode(t, err, apperrors.ErrInvalidState)

	paid, err := cashier.Pay(ctx, bill.ID, model.PaymentMethodCash)
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	_, err = cashier.Pay(ctx, bill.ID, model.PaymentMethodCard)
	requireCode(t, err, apperrors.ErrInvalidState)

	got, err := reception.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	require.True(t, got.PaidAmount.Valid)
	assert.True(t, decimal.RequireFromString("2750").Equal(got.PaidAmount.Decimal))

	revenue, err := cashier.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, revenue.PaidBills)
	assert.True(t, decimal.RequireFromString("2750").Equal(revenue.TotalRevenue))
}

func TestEndToEnd_TestOnlyBill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cashier := h.client(t, model.RoleCashier)

	fbc, lipid, ecg := h.demo.TestIDs[0], h.demo.TestIDs[1], h.demo.TestIDs[2]

	bill, err := cashier.CreateTestBill(ctx, h.demo.PatientIDs[1], fbc, lipid, fbc)
	require.NoError(t, err)
	assert.Equal(t, model.BillTypeTestOnly, bill.Type())
	require.Len(t, bill.Items, 2)
	assert.True(t, decimal.RequireFromString("2350").Equal(bill.Total()))

	bill, err = cashier.AddTest(ctx, bill.ID, ecg)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("3550").Equal(bill.Total()))

	_, err = cashier.AddTest(ctx, bill.ID, ecg)
	requireCode(t, err, apperrors.ErrInvalidState)

	bill, err = cashier.RemoveItem(ctx, bill.ID, bill.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2050").Equal(bill.Total()))

	unpaid, err := cashier.UnpaidBills(ctx)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, bill.ID, unpaid[0].ID)

	_, err = cashier.CreateTestBill(ctx, h.demo.PatientIDs[1], h.demo.TestIDs[3])
	requireCode(t, err, apperrors.ErrBadRequest)
}

func TestClient_BookRejectsWrongWeekdayLocally(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reception := h.client(t, model.RoleReceptionist)

	// 2024-01-09 is a Tuesday; the schedule runs on Mondays.
	_, err := reception.Book(ctx, &model.BookAppointmentRequest{
		PatientID:       h.demo.PatientIDs[0],
		ScheduleID:      h.demo.ScheduleIDs[0],
		AppointmentDate: "2024-01-09",
	})
	requireCode(t, err, apperrors.ErrBadRequest)

	_, err = reception.Book(ctx, &model.BookAppointmentRequest{
		PatientID:       h.demo.PatientIDs[0],
		ScheduleID:      h.demo.ScheduleIDs[0],
		AppointmentDate: "09/01/2024",
	})
	requireCode(t, err, apperrors.ErrBadRequest)

	list, err := reception.ListAppointments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClient_DecodesServerErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	anonymous := client.New(h.server.URL, "", client.WithHTTPClient(h.server.Client()))
	_, err := anonymous.TodaysAppointments(ctx)
	requireCode(t, err, apperrors.ErrUnauthorized)

	cashier := h.client(t, model.RoleCashier)
	_, err = cashier.TodaysAppointments(ctx)
	requireCode(t, err, apperrors.ErrForbidden)

	reception := h.client(t, model.RoleReceptionist)
	_, err = reception.GetAppointment(ctx, 424242)
	requireCode(t, err, apperrors.ErrNotFound)

	_, err = reception.UnpaidBills(ctx)
	requireCode(t, err, apperrors.ErrForbidden)

	err = reception.DeleteBill(ctx, 1)
	requireCode(t, err, apperrors.ErrForbidden)
}

func TestClient_CancelAndReschedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reception := h.client(t, model.RoleReceptionist)
	admin := h.client(t, model.RoleAdmin)

	apt, err := reception.Book(ctx, &model.BookAppointmentRequest{
		PatientID:       h.demo.PatientIDs[0],
		ScheduleID:      h.demo.ScheduleIDs[0],
		AppointmentDate: "2024-01-08",
	})
	require.NoError(t, err)

	moved, err := reception.Reschedule(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", moved.AppointmentDate.String())
	require.NotNil(t, moved.RescheduledFromID)
	assert.Equal(t, apt.ID, *moved.RescheduledFromID)

	_, err = reception.UpdateStatus(ctx, apt.ID, &model.UpdateAppointmentStatusRequest{Status: model.AppointmentStatusConfirmed})
	requireCode(t, err, apperrors.ErrInvalidState)

	cancelled, err := admin.Cancel(ctx, moved.ID, &model.CancelAppointmentRequest{Reason: "patient travelling"})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	cancelledList, err := reception.ListAppointments(ctx, &model.AppointmentFilters{Status: model.AppointmentStatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelledList, 1)
	assert.Equal(t, moved.ID, cancelledList[0].ID)
}

func TestClient_MasterData(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cashier := h.client(t, model.RoleCashier)

	charge, err := cashier.HospitalCharge(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("750").Equal(charge))

	specs, err := cashier.Specializations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiology", "Dermatology", "General Practice", "Paediatrics"}, specs)

	schedules, err := cashier.SchedulesForDate(ctx, "2024-01-08")
	requireCode(t, err, apperrors.ErrForbidden)
	assert.Nil(t, schedules)
}
