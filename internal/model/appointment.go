package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed   AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted   AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled   AppointmentStatus = "CANCELLED"
	AppointmentStatusRescheduled AppointmentStatus = "RESCHEDULED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusRescheduled
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Appointment struct {
	Base
	PatientID          int64               `db:"patient_id" json:"patient_id"`
	PatientName        string              `db:"patient_name" json:"patient_name,omitempty"`
	ScheduleID         int64               `db:"schedule_id" json:"schedule_id"`
	DoctorID           int64               `db:"doctor_id" json:"doctor_id"`
	DoctorName         string              `db:"doctor_name" json:"doctor_name,omitempty"`
	AppointmentDate    Date                `db:"appointment_date" json:"appointment_date"`
	AppointmentFee     decimal.Decimal     `db:"appointment_fee" json:"appointment_fee"`
	Status             AppointmentStatus   `db:"status" json:"status"`
	PaymentStatus      PaymentStatus       `db:"payment_status" json:"payment_status"`
	Notes              string              `db:"notes" json:"notes,omitempty"`
	CancellationReason *string             `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RefundRequired     bool                `db:"refund_required" json:"refund_required"`
	RescheduledFromID  *int64              `db:"rescheduled_from_id" json:"rescheduled_from_id,omitempty"`
	PaidAmount         decimal.NullDecimal `db:"paid_amount" json:"paid_amount"`
	RefundAmount       decimal.NullDecimal `db:"refund_amount" json:"refund_amount"`
	PaidAt             *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	CancelledAt        *time.Time          `db:"cancelled_at" json:"cancelled_at,omitempty"`
	RefundedAt         *time.Time          `db:"refunded_at" json:"refunded_at,omitempty"`
}

type BookAppointmentRequest struct {
	PatientID       int64  `json:"patient_id" binding:"required,gt=0"`
	ScheduleID      int64  `json:"schedule_id" binding:"required,gt=0"`
	AppointmentDate string `json:"appointment_date" binding:"required,datetime=2006-01-02"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,appointment_status"`
	Notes  string            `json:"notes" binding:"max=1000"`
}

type CancelAppointmentRequest struct {
	Reason         string `json:"reason" binding:"max=500"`
	RefundRequired bool   `json:"refund_required"`
}

type AppointmentFilters struct {
	Status    AppointmentStatus `form:"status"`
	PatientID int64             `form:"patient_id"`
	DoctorID  int64             `form:"doctor_id"`
	Date      *Date             `form:"-"`
	Pagination
}
