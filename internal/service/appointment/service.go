// Package appointment runs the appointment lifecycle: booking against a
// doctor's weekly schedule, status changes, cancellation, rescheduling and
// generation of the appointment bill.
package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/frontdesk-api/internal/availability"
	"github.com/jwalitptl/frontdesk-api/internal/fee"
	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/internal/repository"
	"github.com/jwalitptl/frontdesk-api/internal/service/event"
	"github.com/jwalitptl/frontdesk-api/pkg/auth"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
	"github.com/jwalitptl/frontdesk-api/pkg/metrics"
)

// Business rules
const (
	DefaultDailyLimit           = 20
	DefaultRescheduleWindowDays = 60
	MaxUpcomingCount            = 52
)

var (
	frontDeskRoles = []model.Role{model.RoleAdmin, model.RoleReceptionist}
	billingRoles   = []model.Role{model.RoleAdmin, model.RoleCashier, model.RoleReceptionist}
)

// ChargeProvider supplies the current hospital charge.
type ChargeProvider interface {
	HospitalCharge(ctx context.Context) (decimal.Decimal, error)
}

type Config struct {
	// DailyLimit caps active bookings per doctor per date.
	DailyLimit           int
	RescheduleWindowDays int
}

type Deps struct {
	Tx           repository.TxManager
	Appointments repository.AppointmentRepository
	Bills        repository.BillRepository
	Directory    repository.DirectoryRepository
	Charges      ChargeProvider
	Events       event.Emitter
	Clock        availability.Clock
	Now          func() time.Time
	Config       Config
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

type Service struct {
	tx        repository.TxManager
	repo      repository.AppointmentRepository
	bills     repository.BillRepository
	directory repository.DirectoryRepository
	charges   ChargeProvider
	events    event.Emitter
	clock     availability.Clock
	now       func() time.Time
	config    Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(d Deps) *Service {
	if d.Config.DailyLimit <= 0 {
		d.Config.DailyLimit = DefaultDailyLimit
	}
	if d.Config.RescheduleWindowDays <= 0 {
		d.Config.RescheduleWindowDays = DefaultRescheduleWindowDays
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Clock == nil {
		d.Clock = availability.SystemClock{}
	}
	return &Service{
		tx:        d.Tx,
		repo:      d.Appointments,
		bills:     d.Bills,
		directory: d.Directory,
		charges:   d.Charges,
		events:    d.Events,
		clock:     d.Clock,
		now:       d.Now,
		config:    d.Config,
		logger:    d.Logger,
		metrics:   d.Metrics,
	}
}

// Book creates a PENDING, UNPAID appointment on date for the schedule's
// doctor. The fee is frozen at channeling fee plus the current hospital charge.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	caller, err := auth.Require(ctx, frontDeskRoles...)
	if err != nil {
		return nil, err
	}

	date, err := model.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, apperrors.NewBadRequest("appointment date must be YYYY-MM-DD", err)
	}
	if date.Before(s.clock.Today()) {
		return nil, apperrors.NewBadRequest("appointment date is in the past", nil)
	}

	var apt *model.Appointment
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		patient, err := s.directory.GetPatient(ctx, req.PatientID)
		if err != nil {
			return err
		}
		schedule, err := s.directory.GetSchedule(ctx, req.ScheduleID)
		if err != nil {
			return err
		}
		if !availability.DateMatchesDay(date, string(schedule.Day)) {
			return apperrors.NewBadRequest(fmt.Sprintf("%s is not a %s", date, schedule.Day), nil)
		}
		doctor, err := s.directory.GetDoctor(ctx, schedule.DoctorID)
		if err != nil {
			return err
		}

		charge, err := s.charges.HospitalCharge(ctx)
		if err != nil {
			return fmt.Errorf("failed to get hospital charge: %w", err)
		}
		amount, err := fee.AppointmentFee(doctor.ChannelingFee, charge)
		if err != nil {
			return err
		}

		active, err := s.repo.CountActive(ctx, doctor.ID, date)
		if err != nil {
			return fmt.Errorf("failed to count appointments: %w", err)
		}
		if active >= s.config.DailyLimit {
			return apperrors.NewInvalidState(fmt.Sprintf("Dr. %s is fully booked on %s", doctor.Name, date))
		}

		apt = &model.Appointment{
			PatientID:       patient.ID,
			ScheduleID:      schedule.ID,
			DoctorID:        doctor.ID,
			AppointmentDate: date,
			AppointmentFee:  amount,
			Status:          model.AppointmentStatusPending,
			PaymentStatus:   model.PaymentStatusUnpaid,
		}
		if err := s.repo.Create(ctx, apt); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		apt.PatientName = patient.Name
		apt.DoctorName = doctor.Name

		return s.events.Emit(ctx, model.EventAppointmentBooked, apt.ID, map[string]interface{}{
			"appointment_id":   apt.ID,
			"patient_id":       apt.PatientID,
			"doctor_id":        apt.DoctorID,
			"appointment_date": apt.AppointmentDate,
			"appointment_fee":  apt.AppointmentFee,
			"booked_by":        caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentsBooked.Inc()
	s.logger.Info("Appointment booked", "appointment_id", apt.ID, "doctor_id", apt.DoctorID,
		"date", apt.AppointmentDate.String(), "fee", apt.AppointmentFee.String())
	return apt, nil
}

// UpdateStatus moves an appointment between PENDING, CONFIRMED and
// COMPLETED, or cancels it. Terminal appointments never change.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req *model.UpdateAppointmentStatusRequest) (*model.Appointment, error) {
	caller, err := auth.Require(ctx, frontDeskRoles...)
	if err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown status %q", req.Status), nil)
	}
	if req.Status == model.AppointmentStatusRescheduled {
		return nil, apperrors.NewBadRequest("use reschedule to move an appointment", nil)
	}

	var apt *model.Appointment
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		apt, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if apt.Status.Terminal() {
			return apperrors.NewInvalidState(fmt.Sprintf("appointment is %s", apt.Status))
		}

		from := apt.Status
		apt.Status = req.Status
		if req.Notes != "" {
			apt.Notes = req.Notes
		}
		if req.Status == model.AppointmentStatusCancelled {
			now := s.now()
			apt.CancelledAt = &now
		}
		if err := s.repo.Update(ctx, apt); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}

		return s.events.Emit(ctx, model.EventAppointmentStatusChanged, apt.ID, map[string]interface{}{
			"appointment_id": apt.ID,
			"from":           from,
			"to":             apt.Status,
			"changed_by":     caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(string(apt.Status)).Inc()
	s.logger.Info("Appointment status changed", "appointment_id", apt.ID, "status", apt.Status)
	return apt, nil
}

// Cancel records the cancellation. A refund is only noted, never executed.
func (s *Service) Cancel(ctx context.Context, id int64, req *model.CancelAppointmentRequest) (*model.Appointment, error) {
	caller, err := auth.Require(ctx, frontDeskRoles...)
	if err != nil {
		return nil, err
	}

	var apt *model.Appointment
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		apt, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if apt.Status.Terminal() {
			return apperrors.NewInvalidState(fmt.Sprintf("appointment is already %s", apt.Status))
		}

		now := s.now()
		apt.Status = model.AppointmentStatusCancelled
		apt.CancelledAt = &now
		apt.RefundRequired = req.RefundRequired
		if req.Reason != "" {
			reason := req.Reason
			apt.CancellationReason = &reason
		}
		if req.RefundRequired && apt.PaymentStatus == model.PaymentStatusPaid &&
			apt.PaidAmount.Valid && apt.PaidAmount.Decimal.IsPositive() {
			apt.PaymentStatus = model.PaymentStatusRefunded
			apt.RefundAmount = apt.PaidAmount
			apt.RefundedAt = &now
		}
		if err := s.repo.Update(ctx, apt); err != nil {
			return fmt.Errorf("failed to cancel appointment: %w", err)
		}

		return s.events.Emit(ctx, model.EventAppointmentCancelled, apt.ID, map[string]interface{}{
			"appointment_id":  apt.ID,
			"patient_id":      apt.PatientID,
			"reason":          req.Reason,
			"refund_required": req.RefundRequired,
			"payment_status":  apt.PaymentStatus,
			"cancelled_by":    caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(string(apt.Status)).Inc()
	s.logger.Info("Appointment cancelled", "appointment_id", apt.ID, "refund_required", apt.RefundRequired)
	return apt, nil
}

// Reschedule moves the appointment to the earliest later date on the same
// schedule that still has capacity. The original becomes RESCHEDULED and a
// new PENDING appointment is returned.
func (s *Service) Reschedule(ctx context.Context, id int64) (*model.Appointment, error) {
	caller, err := auth.Require(ctx, frontDeskRoles...)
	if err != nil {
		return nil, err
	}

	var next *model.Appointment
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		apt, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if apt.Status.Terminal() || apt.Status == model.AppointmentStatusCompleted {
			return apperrors.NewInvalidState(fmt.Sprintf("cannot reschedule a %s appointment", apt.Status))
		}

		schedule, err := s.directory.GetSchedule(ctx, apt.ScheduleID)
		if apperrors.CodeOf(err) == apperrors.ErrNotFound {
			return apperrors.NewInvalidState("the appointment's schedule no longer exists")
		}
		if err != nil {
			return err
		}

		date, err := s.nextFreeDate(ctx, schedule, apt.AppointmentDate)
		if err != nil {
			return err
		}

		from := apt.ID
		next = &model.Appointment{
			PatientID:         apt.PatientID,
			ScheduleID:        apt.ScheduleID,
			DoctorID:          schedule.DoctorID,
			AppointmentDate:   date,
			AppointmentFee:    apt.AppointmentFee,
			Status:            model.AppointmentStatusPending,
			PaymentStatus:     model.PaymentStatusUnpaid,
			Notes:             "Rescheduled from " + apt.AppointmentDate.String(),
			RescheduledFromID: &from,
		}
		if err := s.repo.Create(ctx, next); err != nil {
			return fmt.Errorf("failed to create rescheduled appointment: %w", err)
		}
		next.PatientName = apt.PatientName
		next.DoctorName = schedule.DoctorName

		apt.Status = model.AppointmentStatusRescheduled
		if err := s.repo.Update(ctx, apt); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}

		return s.events.Emit(ctx, model.EventAppointmentRescheduled, apt.ID, map[string]interface{}{
			"appointment_id":     apt.ID,
			"new_appointment_id": next.ID,
			"patient_id":         apt.PatientID,
			"from_date":          apt.AppointmentDate,
			"to_date":            next.AppointmentDate,
			"rescheduled_by":     caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(string(model.AppointmentStatusRescheduled)).Inc()
	s.logger.Info("Appointment rescheduled", "appointment_id", id, "new_appointment_id", next.ID,
		"date", next.AppointmentDate.String())
	return next, nil
}

func (s *Service) nextFreeDate(ctx context.Context, schedule *model.Schedule, current model.Date) (model.Date, error) {
	day, ok := model.ParseWeekday(string(schedule.Day))
	if !ok {
		return model.Date{}, apperrors.NewInvalidState(fmt.Sprintf("schedule %d has no valid day", schedule.ID))
	}

	limit := current.AddDays(s.config.RescheduleWindowDays)
	for d := availability.NextDateAfter(day, current); d.Before(limit); d = d.AddDays(7) {
		active, err := s.repo.CountActive(ctx, schedule.DoctorID, d)
		if err != nil {
			return model.Date{}, fmt.Errorf("failed to count appointments: %w", err)
		}
		if active < s.config.DailyLimit {
			return d, nil
		}
	}
	return model.Date{}, apperrors.NewInvalidState(
		fmt.Sprintf("no free %s within %d days of %s", day, s.config.RescheduleWindowDays, current))
}

// GenerateBill creates the APPOINTMENT bill. The frozen fee is split into a
// DOCTOR_FEE and a HOSPITAL_FEE line that sum to it.
func (s *Service) GenerateBill(ctx context.Context, appointmentID int64) (*model.Bill, error) {
	caller, err := auth.Require(ctx, billingRoles...)
	if err != nil {
		return nil, err
	}

	var bill *model.Bill
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		apt, err := s.repo.GetForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if apt.Status.Terminal() {
			return apperrors.NewInvalidState(fmt.Sprintf("cannot bill a %s appointment", apt.Status))
		}
		exists, err := s.bills.ExistsForAppointment(ctx, apt.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing bill: %w", err)
		}
		if exists {
			return apperrors.NewInvalidState("a bill already exists for this appointment")
		}

		charge, err := s.charges.HospitalCharge(ctx)
		if err != nil {
			return fmt.Errorf("failed to get hospital charge: %w", err)
		}
		doctorPart, hospitalPart, err := fee.SplitAppointmentFee(apt.AppointmentFee, charge)
		if err != nil {
			return err
		}

		bill = model.NewAppointmentBill(apt.PatientID, apt.PatientName, apt.ID,
			model.BillItem{
				ItemName: "Doctor Channeling Fee - " + apt.DoctorName,
				ItemType: model.ItemTypeDoctorFee,
				Price:    doctorPart,
			},
			model.BillItem{
				ItemName: "Hospital Charge",
				ItemType: model.ItemTypeHospitalFee,
				Price:    hospitalPart,
			},
		)
		if err := s.bills.Create(ctx, bill); err != nil {
			return fmt.Errorf("failed to create bill: %w", err)
		}

		return s.events.Emit(ctx, model.EventBillCreated, bill.ID, map[string]interface{}{
			"bill_id":        bill.ID,
			"bill_type":      bill.Type(),
			"appointment_id": apt.ID,
			"total_amount":   bill.Total(),
			"created_by":     caller.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BillsCreated.WithLabelValues(string(bill.Type())).Inc()
	s.logger.Info("Appointment bill created", "bill_id", bill.ID, "appointment_id", appointmentID,
		"total", bill.Total().String())
	return bill, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	if _, err := auth.Require(ctx, frontDeskRoles...); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if _, err := auth.Require(ctx, frontDeskRoles...); err != nil {
		return nil, err
	}
	if filters != nil && filters.Status != "" && !filters.Status.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown status %q", filters.Status), nil)
	}
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Today lists every appointment dated today.
func (s *Service) Today(ctx context.Context) ([]*model.Appointment, error) {
	today := s.clock.Today()
	return s.List(ctx, &model.AppointmentFilters{Date: &today})
}

// AvailableDates lists the next count bookable dates of a schedule. A
// non-positive count selects availability.DefaultUpcomingCount.
func (s *Service) AvailableDates(ctx context.Context, scheduleID int64, count int) (*model.AvailableDatesResponse, error) {
	if _, err := auth.Require(ctx, frontDeskRoles...); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = availability.DefaultUpcomingCount
	}
	if count > MaxUpcomingCount {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("count must not exceed %d", MaxUpcomingCount), nil)
	}

	schedule, err := s.directory.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	resp := &model.AvailableDatesResponse{ScheduleID: schedule.ID, Day: schedule.Day, Dates: make([]model.Date, 0, count)}
	for d := range availability.UpcomingDatesForDay(string(schedule.Day), count, s.clock.Today()) {
		resp.Dates = append(resp.Dates, d)
	}
	return resp, nil
}

// SchedulesForDate returns the schedules that run on date (YYYY-MM-DD).
func (s *Service) SchedulesForDate(ctx context.Context, date string) ([]model.Schedule, error) {
	if _, err := auth.Require(ctx, frontDeskRoles...); err != nil {
		return nil, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, apperrors.NewBadRequest("date must be YYYY-MM-DD", err)
	}

	all, err := s.directory.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	flat := make([]model.Schedule, 0, len(all))
	for _, sc := range all {
		flat = append(flat, *sc)
	}
	return availability.FilterSchedulesForDate(d, flat), nil
}
