package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

const billSelect = `
	SELECT b.id, b.bill_type, b.appointment_id, b.patient_id, p.name AS patient_name,
		   b.paid, b.payment_method, b.paid_at, b.created_at, b.updated_at
	FROM bills b
	JOIN patients p ON p.id = b.patient_id`

type billRow struct {
	ID            int64                `db:"id"`
	BillType      model.BillType       `db:"bill_type"`
	AppointmentID sql.NullInt64        `db:"appointment_id"`
	PatientID     int64                `db:"patient_id"`
	PatientName   string               `db:"patient_name"`
	Paid          bool                 `db:"paid"`
	PaymentMethod *model.PaymentMethod `db:"payment_method"`
	PaidAt        *time.Time           `db:"paid_at"`
	CreatedAt     time.Time            `db:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at"`
}

func (row billRow) toModel(items []model.BillItem) (*model.Bill, error) {
	var bill *model.Bill
	switch row.BillType {
	case model.BillTypeAppointment:
		if !row.AppointmentID.Valid {
			return nil, fmt.Errorf("appointment bill %d has no appointment", row.ID)
		}
		bill = model.NewAppointmentBill(row.PatientID, row.PatientName, row.AppointmentID.Int64, items...)
	case model.BillTypeTestOnly:
		bill = model.NewTestOnlyBill(row.PatientID, row.PatientName, items...)
	default:
		return nil, fmt.Errorf("bill %d has unknown type %q", row.ID, row.BillType)
	}
	bill.ID = row.ID
	bill.Paid = row.Paid
	bill.PaymentMethod = row.PaymentMethod
	bill.PaidAt = row.PaidAt
	bill.CreatedAt = row.CreatedAt
	bill.UpdatedAt = row.UpdatedAt
	return bill, nil
}

func (r *billRepository) Create(ctx context.Context, bill *model.Bill) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		var appointmentID sql.NullInt64
		if id, ok := bill.AppointmentID(); ok {
			appointmentID = sql.NullInt64{Int64: id, Valid: true}
		}

		query := `
			INSERT INTO bills (bill_type, appointment_id, patient_id, total_amount, paid)
			VALUES ($1, $2, $3, $4, false)
			RETURNING id, created_at, updated_at
		`
		err := r.q(ctx).QueryRowxContext(ctx, query,
			bill.Type(),
			appointmentID,
			bill.PatientID,
			bill.Total(),
		).Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
		if err != nil {
			return mapError(fmt.Errorf("failed to create bill: %w", err), "")
		}

		for i := range bill.Items {
			if err := r.insertItem(ctx, bill.ID, &bill.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *billRepository) insertItem(ctx context.Context, billID int64, item *model.BillItem) error {
	query := `
		INSERT INTO bill_items (bill_id, item_name, item_type, price, test_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	item.BillID = billID
	err := r.q(ctx).QueryRowxContext(ctx, query,
		billID,
		item.ItemName,
		item.ItemType,
		item.Price,
		item.TestID,
	).Scan(&item.ID)
	if err != nil {
		return mapError(fmt.Errorf("failed to add item to bill %d: %w", billID, err), "")
	}
	return nil
}

// refreshTotal rewrites the reporting copy of the total from the items.
func (r *billRepository) refreshTotal(ctx context.Context, billID int64) error {
	query := `
		UPDATE bills
		SET total_amount = (SELECT COALESCE(SUM(price), 0) FROM bill_items WHERE bill_id = $1),
			updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.q(ctx).ExecContext(ctx, query, billID); err != nil {
		return mapError(fmt.Errorf("failed to refresh total of bill %d: %w", billID, err), "")
	}
	return nil
}

func (r *billRepository) Get(ctx context.Context, id int64) (*model.Bill, error) {
	return r.getOne(ctx, billSelect+` WHERE b.id = $1`, id)
}

func (r *billRepository) GetForUpdate(ctx context.Context, id int64) (*model.Bill, error) {
	return r.getOne(ctx, billSelect+` WHERE b.id = $1 FOR UPDATE OF b`, id)
}

func (r *billRepository) getOne(ctx context.Context, query string, id int64) (*model.Bill, error) {
	var row billRow
	if err := r.q(ctx).GetContext(ctx, &row, query, id); err != nil {
		return nil, mapError(fmt.Errorf("failed to get bill %d: %w", id, err), "bill")
	}
	bills, err := r.withItems(ctx, []billRow{row})
	if err != nil {
		return nil, err
	}
	return bills[0], nil
}

func (r *billRepository) withItems(ctx context.Context, rows []billRow) ([]*model.Bill, error) {
	if len(rows) == 0 {
		return []*model.Bill{}, nil
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	query := `
		SELECT id, bill_id, item_name, item_type, price, test_id
		FROM bill_items
		WHERE bill_id = ANY($1)
		ORDER BY id
	`
	var items []model.BillItem
	if err := r.q(ctx).SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, mapError(fmt.Errorf("failed to load bill items: %w", err), "")
	}
	byBill := make(map[int64][]model.BillItem, len(rows))
	for _, item := range items {
		byBill[item.BillID] = append(byBill[item.BillID], item)
	}

	bills := make([]*model.Bill, 0, len(rows))
	for _, row := range rows {
		bill, err := row.toModel(byBill[row.ID])
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func (r *billRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Bill, error) {
	var rows []billRow
	if err := r.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(fmt.Errorf("failed to list bills: %w", err), "")
	}
	return r.withItems(ctx, rows)
}

func (r *billRepository) ExistsForAppointment(ctx context.Context, appointmentID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bills WHERE appointment_id = $1)`
	if err := r.q(ctx).GetContext(ctx, &exists, query, appointmentID); err != nil {
		return false, mapError(fmt.Errorf("failed to check bill for appointment %d: %w", appointmentID, err), "")
	}
	return exists, nil
}

func (r *billRepository) AddItem(ctx context.Context, billID int64, item *model.BillItem) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		if err := r.insertItem(ctx, billID, item); err != nil {
			return err
		}
		return r.refreshTotal(ctx, billID)
	})
}

func (r *billRepository) RemoveItem(ctx context.Context, billID, itemID int64) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		res, err := r.q(ctx).ExecContext(ctx,
			`DELETE FROM bill_items WHERE id = $1 AND bill_id = $2`, itemID, billID)
		if err != nil {
			return mapError(fmt.Errorf("failed to remove item %d from bill %d: %w", itemID, billID, err), "")
		}
		if err := expectOneRow(res, "bill item"); err != nil {
			return err
		}
		return r.refreshTotal(ctx, billID)
	})
}

func (r *billRepository) MarkPaid(ctx context.Context, billID int64, method model.PaymentMethod, paidAt time.Time) error {
	query := `
		UPDATE bills
		SET paid = true, payment_method = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $1 AND paid = false
	`
	res, err := r.q(ctx).ExecContext(ctx, query, billID, method, paidAt)
	if err != nil {
		return mapError(fmt.Errorf("failed to mark bill %d paid: %w", billID, err), "")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := r.q(ctx).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM bills WHERE id = $1)`, billID); err != nil {
		return mapError(fmt.Errorf("failed to check bill %d: %w", billID, err), "")
	}
	if !exists {
		return apperrors.NewNotFound("bill", nil)
	}
	return apperrors.NewInvalidState("bill is already paid")
}

func (r *billRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (bill_id, amount, method, paid_at, paid_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.q(ctx).QueryRowxContext(ctx, query,
		payment.BillID,
		payment.Amount,
		payment.Method,
		payment.PaidAt,
		payment.PaidBy,
	).Scan(&payment.ID)
	if err != nil {
		return mapError(fmt.Errorf("failed to record payment for bill %d: %w", payment.BillID, err), "")
	}
	return nil
}

func (r *billRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Errorf("failed to delete bill %d: %w", id, err), "")
	}
	return expectOneRow(res, "bill")
}

func (r *billRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Bill, error) {
	return r.list(ctx, billSelect+` WHERE b.patient_id = $1 ORDER BY b.created_at DESC, b.id DESC`, patientID)
}

func (r *billRepository) ListByPaid(ctx context.Context, paid bool) ([]*model.Bill, error) {
	return r.list(ctx, billSelect+` WHERE b.paid = $1 ORDER BY b.created_at DESC, b.id DESC`, paid)
}

func (r *billRepository) Revenue(ctx context.Context) (*model.RevenueSummary, error) {
	query := `
		SELECT COALESCE(SUM(bi.price), 0), COUNT(DISTINCT b.id)
		FROM bills b
		LEFT JOIN bill_items bi ON bi.bill_id = b.id
		WHERE b.paid = true
	`
	var summary model.RevenueSummary
	if err := r.q(ctx).QueryRowxContext(ctx, query).Scan(&summary.TotalRevenue, &summary.PaidBills); err != nil {
		return nil, mapError(fmt.Errorf("failed to compute revenue: %w", err), "")
	}
	return &summary, nil
}
