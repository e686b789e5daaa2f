package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/frontdesk-api/internal/model"
)

// All repository interfaces in one file.
//
// Lookups of a missing row return an error matching errors.NotFoundErr.
// Every method honours a transaction started by TxManager.WithTx on ctx.
type (
	// TxManager runs fn in a single database transaction. fn must use the ctx
	// it is given; returning an error rolls everything back.
	TxManager interface {
		WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// DirectoryRepository reads master data owned by other parts of the hospital system.
	DirectoryRepository interface {
		GetPatient(ctx context.Context, id int64) (*model.Patient, error)
		GetDoctor(ctx context.Context, id int64) (*model.Doctor, error)
		GetSchedule(ctx context.Context, id int64) (*model.Schedule, error)
		ListSchedules(ctx context.Context) ([]*model.Schedule, error)
		GetMedicalTest(ctx context.Context, id int64) (*model.MedicalTest, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		// GetForUpdate locks the row until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// CountActive counts PENDING, CONFIRMED and COMPLETED bookings of a
		// doctor on a date. Inside a transaction it also locks the doctor so
		// concurrent bookings for the same doctor are counted one at a time.
		CountActive(ctx context.Context, doctorID int64, date model.Date) (int, error)
	}

	BillRepository interface {
		// Create inserts the bill and its items, filling in their IDs.
		Create(ctx context.Context, bill *model.Bill) error
		Get(ctx context.Context, id int64) (*model.Bill, error)
		GetForUpdate(ctx context.Context, id int64) (*model.Bill, error)
		ExistsForAppointment(ctx context.Context, appointmentID int64) (bool, error)
		AddItem(ctx context.Context, billID int64, item *model.BillItem) error
		RemoveItem(ctx context.Context, billID, itemID int64) error
		// MarkPaid flips paid from false to true. A bill that is already paid
		// yields an InvalidState error and is left untouched.
		MarkPaid(ctx context.Context, billID int64, method model.PaymentMethod, paidAt time.Time) error
		CreatePayment(ctx context.Context, payment *model.Payment) error
		Delete(ctx context.Context, id int64) error
		ListByPatient(ctx context.Context, patientID int64) ([]*model.Bill, error)
		ListByPaid(ctx context.Context, paid bool) ([]*model.Bill, error)
		Revenue(ctx context.Context) (*model.RevenueSummary, error)
	}

	SettingsRepository interface {
		Get(ctx context.Context, key string) (string, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEventsWithLock claims up to limit pending events, skipping rows locked by other workers.
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, maxRetries int) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
