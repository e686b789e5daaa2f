package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/frontdesk-api/internal/model"
)

const scheduleColumns = `
	s.id, s.doctor_id, d.name AS doctor_name, s.day, s.start_time, s.end_time,
	s.created_at, s.updated_at`

func (r *directoryRepository) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	query := `
		SELECT id, name, phone, email, gender, date_of_birth, created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	if err := r.q(ctx).GetContext(ctx, &patient, query, id); err != nil {
		return nil, mapError(fmt.Errorf("failed to get patient %d: %w", id, err), "patient")
	}
	return &patient, nil
}

func (r *directoryRepository) GetDoctor(ctx context.Context, id int64) (*model.Doctor, error) {
	query := `
		SELECT id, name, specialization, phone, email, channeling_fee, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	if err := r.q(ctx).GetContext(ctx, &doctor, query, id); err != nil {
		return nil, mapError(fmt.Errorf("failed to get doctor %d: %w", id, err), "doctor")
	}
	return &doctor, nil
}

func (r *directoryRepository) GetSchedule(ctx context.Context, id int64) (*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM schedules s
		JOIN doctors d ON d.id = s.doctor_id
		WHERE s.id = $1
	`
	var schedule model.Schedule
	if err := r.q(ctx).GetContext(ctx, &schedule, query, id); err != nil {
		return nil, mapError(fmt.Errorf("failed to get schedule %d: %w", id, err), "schedule")
	}
	return &schedule, nil
}

func (r *directoryRepository) ListSchedules(ctx context.Context) ([]*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM schedules s
		JOIN doctors d ON d.id = s.doctor_id
		ORDER BY d.name, s.start_time
	`
	var schedules []*model.Schedule
	if err := r.q(ctx).SelectContext(ctx, &schedules, query); err != nil {
		return nil, mapError(fmt.Errorf("failed to list schedules: %w", err), "")
	}
	return schedules, nil
}

func (r *directoryRepository) GetMedicalTest(ctx context.Context, id int64) (*model.MedicalTest, error) {
	query := `
		SELECT id, name, type, price, active, created_at, updated_at
		FROM medical_tests
		WHERE id = $1
	`
	var test model.MedicalTest
	if err := r.q(ctx).GetContext(ctx, &test, query, id); err != nil {
		return nil, mapError(fmt.Errorf("failed to get medical test %d: %w", id, err), "medical test")
	}
	return &test, nil
}
