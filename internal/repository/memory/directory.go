package memory

import (
	"context"
	"sort"

	"github.com/jwalitptl/frontdesk-api/internal/model"
)

func (r directoryRepo) GetPatient(ctx context.Context, id int64) (patient *model.Patient, err error) {
	err = r.s.read(ctx, func(st *state) error {
		p, ok := st.patients[id]
		if !ok {
			return notFound("patient")
		}
		patient = &p
		return nil
	})
	return patient, err
}

func (r directoryRepo) GetDoctor(ctx context.Context, id int64) (doctor *model.Doctor, err error) {
	err = r.s.read(ctx, func(st *state) error {
		d, ok := st.doctors[id]
		if !ok {
			return notFound("doctor")
		}
		doctor = &d
		return nil
	})
	return doctor, err
}

func (r directoryRepo) GetSchedule(ctx context.Context, id int64) (schedule *model.Schedule, err error) {
	err = r.s.read(ctx, func(st *state) error {
		sc, ok := st.schedules[id]
		if !ok {
			return notFound("schedule")
		}
		sc.DoctorName = st.doctors[sc.DoctorID].Name
		schedule = &sc
		return nil
	})
	return schedule, err
}

func (r directoryRepo) ListSchedules(ctx context.Context) (out []*model.Schedule, err error) {
	err = r.s.read(ctx, func(st *state) error {
		out = make([]*model.Schedule, 0, len(st.schedules))
		for _, sc := range st.schedules {
			sc.DoctorName = st.doctors[sc.DoctorID].Name
			out = append(out, &sc)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r directoryRepo) GetMedicalTest(ctx context.Context, id int64) (test *model.MedicalTest, err error) {
	err = r.s.read(ctx, func(st *state) error {
		t, ok := st.tests[id]
		if !ok {
			return notFound("medical test")
		}
		test = &t
		return nil
	})
	return test, err
}

func (r settingsRepo) Get(ctx context.Context, key string) (value string, err error) {
	err = r.s.read(ctx, func(st *state) error {
		v, ok := st.settings[key]
		if !ok {
			return notFound("setting")
		}
		value = v
		return nil
	})
	return value, err
}
