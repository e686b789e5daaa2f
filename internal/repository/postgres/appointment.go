package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/frontdesk-api/internal/model"
)

const appointmentSelect = `
	SELECT a.id, a.patient_id, p.name AS patient_name, a.schedule_id, a.doctor_id,
		   d.name AS doctor_name, a.appointment_date, a.appointment_fee, a.status,
		   a.payment_status, a.notes, a.cancellation_reason, a.refund_required,
		   a.rescheduled_from_id, a.paid_amount, a.refund_amount, a.paid_at,
		   a.cancelled_at, a.refunded_at, a.created_at, a.updated_at
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			patient_id, schedule_id, doctor_id, appointment_date, appointment_fee,
			status, payment_status, notes, rescheduled_from_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.q(ctx).QueryRowxContext(ctx, query,
		appointment.PatientID,
		appointment.ScheduleID,
		appointment.DoctorID,
		appointment.AppointmentDate,
		appointment.AppointmentFee,
		appointment.Status,
		appointment.PaymentStatus,
		appointment.Notes,
		appointment.RescheduledFromID,
	).Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to create appointment: %w", err), "")
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get(ctx, appointmentSelect+` WHERE a.id = $1`, id)
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get(ctx, appointmentSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id)
}

func (r *appointmentRepository) get(ctx context.Context, query string, id int64) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := r.q(ctx).GetContext(ctx, &appointment, query, id); err != nil {
		return nil, mapError(fmt.Errorf("failed to get appointment %d: %w", id, err), "appointment")
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $1, payment_status = $2, notes = $3, cancellation_reason = $4,
			refund_required = $5, paid_amount = $6, refund_amount = $7, paid_at = $8,
			cancelled_at = $9, refunded_at = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at
	`
	err := r.q(ctx).QueryRowxContext(ctx, query,
		appointment.Status,
		appointment.PaymentStatus,
		appointment.Notes,
		appointment.CancellationReason,
		appointment.RefundRequired,
		appointment.PaidAmount,
		appointment.RefundAmount,
		appointment.PaidAt,
		appointment.CancelledAt,
		appointment.RefundedAt,
		appointment.ID,
	).Scan(&appointment.UpdatedAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to update appointment %d: %w", appointment.ID, err), "appointment")
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters != nil {
		if filters.Status != "" {
			add("a.status = $%d", filters.Status)
		}
		if filters.PatientID > 0 {
			add("a.patient_id = $%d", filters.PatientID)
		}
		if filters.DoctorID > 0 {
			add("a.doctor_id = $%d", filters.DoctorID)
		}
		if filters.Date != nil {
			add("a.appointment_date = $%d", *filters.Date)
		}
	}

	query := appointmentSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.appointment_date DESC, a.id DESC"

	if filters != nil && filters.PageSize > 0 {
		page := filters.Pagination.Normalize()
		args = append(args, page.PageSize, page.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var appointments []*model.Appointment
	if err := r.q(ctx).SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, mapError(fmt.Errorf("failed to list appointments: %w", err), "")
	}
	return appointments, nil
}

func (r *appointmentRepository) CountActive(ctx context.Context, doctorID int64, date model.Date) (int, error) {
	q := r.q(ctx)
	if _, inTx := q.(*sqlx.Tx); inTx {
		var locked int64
		if err := q.GetContext(ctx, &locked, `SELECT id FROM doctors WHERE id = $1 FOR UPDATE`, doctorID); err != nil {
			return 0, mapError(fmt.Errorf("failed to lock doctor %d: %w", doctorID, err), "doctor")
		}
	}

	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE doctor_id = $1
		AND appointment_date = $2
		AND status IN ($3, $4, $5)
	`
	var count int
	err := q.GetContext(ctx, &count, query, doctorID, date,
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCompleted,
	)
	if err != nil {
		return 0, mapError(fmt.Errorf("failed to count appointments: %w", err), "")
	}
	return count, nil
}
