package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

func billOut(st *state, b *model.Bill) *model.Bill {
	c := cloneBill(b)
	c.PatientName = st.patients[b.PatientID].Name
	return c
}

func (r billRepo) Create(ctx context.Context, b *model.Bill) error {
	return r.s.write(ctx, func(st *state) error {
		if appointmentID, ok := b.AppointmentID(); ok {
			for _, existing := range st.bills {
				if id, ok := existing.AppointmentID(); ok && id == appointmentID {
					return apperrors.NewInvalidState("record already exists")
				}
			}
		}
		b.ID = st.nextID()
		b.CreatedAt = r.s.now()
		b.UpdatedAt = b.CreatedAt
		for i := range b.Items {
			b.Items[i].ID = st.nextID()
			b.Items[i].BillID = b.ID
		}
		st.bills[b.ID] = cloneBill(b)
		return nil
	})
}

func (r billRepo) Get(ctx context.Context, id int64) (bill *model.Bill, err error) {
	err = r.s.read(ctx, func(st *state) error {
		b, ok := st.bills[id]
		if !ok {
			return notFound("bill")
		}
		bill = billOut(st, b)
		return nil
	})
	return bill, err
}

func (r billRepo) GetForUpdate(ctx context.Context, id int64) (*model.Bill, error) {
	return r.Get(ctx, id)
}

func (r billRepo) ExistsForAppointment(ctx context.Context, appointmentID int64) (exists bool, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, b := range st.bills {
			if id, ok := b.AppointmentID(); ok && id == appointmentID {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r billRepo) AddItem(ctx context.Context, billID int64, item *model.BillItem) error {
	return r.s.write(ctx, func(st *state) error {
		b, ok := st.bills[billID]
		if !ok {
			return notFound("bill")
		}
		item.ID = st.nextID()
		item.BillID = billID
		b.Items = append(b.Items, *item)
		b.UpdatedAt = r.s.now()
		return nil
	})
}

func (r billRepo) RemoveItem(ctx context.Context, billID, itemID int64) error {
	return r.s.write(ctx, func(st *state) error {
		b, ok := st.bills[billID]
		if !ok {
			return notFound("bill")
		}
		for i, item := range b.Items {
			if item.ID == itemID {
				b.Items = append(b.Items[:i:i], b.Items[i+1:]...)
				b.UpdatedAt = r.s.now()
				return nil
			}
		}
		return notFound("bill item")
	})
}

func (r billRepo) MarkPaid(ctx context.Context, billID int64, method model.PaymentMethod, paidAt time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		b, ok := st.bills[billID]
		if !ok {
			return notFound("bill")
		}
		if b.Paid {
			return apperrors.NewInvalidState("bill is already paid")
		}
		b.Paid = true
		b.PaymentMethod = &method
		b.PaidAt = &paidAt
		b.UpdatedAt = r.s.now()
		return nil
	})
}

func (r billRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.payments {
			if existing.BillID == p.BillID {
				return apperrors.NewInvalidState("record already exists")
			}
		}
		p.ID = st.nextID()
		st.payments[p.ID] = *p
		return nil
	})
}

func (r billRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.bills[id]; !ok {
			return notFound("bill")
		}
		delete(st.bills, id)
		return nil
	})
}

func (r billRepo) list(ctx context.Context, keep func(*model.Bill) bool) (out []*model.Bill, err error) {
	err = r.s.read(ctx, func(st *state) error {
		out = make([]*model.Bill, 0)
		for _, b := range st.bills {
			if keep(b) {
				out = append(out, billOut(st, b))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r billRepo) ListByPatient(ctx context.Context, patientID int64) ([]*model.Bill, error) {
	return r.list(ctx, func(b *model.Bill) bool { return b.PatientID == patientID })
}

func (r billRepo) ListByPaid(ctx context.Context, paid bool) ([]*model.Bill, error) {
	return r.list(ctx, func(b *model.Bill) bool { return b.Paid == paid })
}

func (r billRepo) Revenue(ctx context.Context) (*model.RevenueSummary, error) {
	summary := &model.RevenueSummary{TotalRevenue: decimal.Zero}
	err := r.s.read(ctx, func(st *state) error {
		for _, b := range st.bills {
			if b.Paid {
				summary.TotalRevenue = summary.TotalRevenue.Add(b.Total())
				summary.PaidBills++
			}
		}
		return nil
	})
	return summary, err
}
