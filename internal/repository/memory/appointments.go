package memory

import (
	"context"
	"sort"

	"github.com/jwalitptl/frontdesk-api/internal/model"
)

func withNames(st *state, a model.Appointment) *model.Appointment {
	a.PatientName = st.patients[a.PatientID].Name
	a.DoctorName = st.doctors[a.DoctorID].Name
	return &a
}

func stored(a *model.Appointment) model.Appointment {
	c := *a
	c.PatientName, c.DoctorName = "", ""
	return c
}

func (r appointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	return r.s.write(ctx, func(st *state) error {
		a.ID = st.nextID()
		a.CreatedAt = r.s.now()
		a.UpdatedAt = a.CreatedAt
		st.appointments[a.ID] = stored(a)
		return nil
	})
}

func (r appointmentRepo) Get(ctx context.Context, id int64) (apt *model.Appointment, err error) {
	err = r.s.read(ctx, func(st *state) error {
		a, ok := st.appointments[id]
		if !ok {
			return notFound("appointment")
		}
		apt = withNames(st, a)
		return nil
	})
	return apt, err
}

func (r appointmentRepo) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.Get(ctx, id)
}

func (r appointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.appointments[a.ID]; !ok {
			return notFound("appointment")
		}
		a.UpdatedAt = r.s.now()
		st.appointments[a.ID] = stored(a)
		return nil
	})
}

func (r appointmentRepo) List(ctx context.Context, f *model.AppointmentFilters) (out []*model.Appointment, err error) {
	err = r.s.read(ctx, func(st *state) error {
		out = make([]*model.Appointment, 0)
		for _, a := range st.appointments {
			if f != nil {
				if f.Status != "" && a.Status != f.Status ||
					f.PatientID > 0 && a.PatientID != f.PatientID ||
					f.DoctorID > 0 && a.DoctorID != f.DoctorID ||
					f.Date != nil && a.AppointmentDate != *f.Date {
					continue
				}
			}
			out = append(out, withNames(st, a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].AppointmentDate.Compare(out[j].AppointmentDate); c != 0 {
			return c > 0
		}
		return out[i].ID > out[j].ID
	})

	if f != nil && f.PageSize > 0 {
		page := f.Pagination.Normalize()
		start := min(page.Offset(), len(out))
		end := min(start+page.PageSize, len(out))
		out = out[start:end]
	}
	return out, nil
}

func (r appointmentRepo) CountActive(ctx context.Context, doctorID int64, date model.Date) (n int, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, a := range st.appointments {
			if a.DoctorID == doctorID && a.AppointmentDate == date && !a.Status.Terminal() {
				n++
			}
		}
		return nil
	})
	return n, err
}
