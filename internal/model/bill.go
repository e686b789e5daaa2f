package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/frontdesk-api/internal/fee"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

type BillType string

const (
	BillTypeAppointment BillType = "APPOINTMENT"
	BillTypeTestOnly    BillType = "TEST_ONLY"
)

type ItemType string

const (
	ItemTypeDoctorFee   ItemType = "DOCTOR_FEE"
	ItemTypeHospitalFee ItemType = "HOSPITAL_FEE"
	ItemTypeTest        ItemType = "TEST"
)

// Protected items carry the frozen appointment fee and can never be removed.
func (t ItemType) Protected() bool {
	return t == ItemTypeDoctorFee || t == ItemTypeHospitalFee
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

// ParsePaymentMethod is case-insensitive; blank input means CASH.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case "":
		return PaymentMethodCash, nil
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodOnline:
		return m, nil
	}
	return "", apperrors.NewBadRequest(fmt.Sprintf("unknown payment method %q", s), nil)
}

type BillItem struct {
	ID       int64           `db:"id" json:"id"`
	BillID   int64           `db:"bill_id" json:"-"`
	ItemName string          `db:"item_name" json:"item_name"`
	ItemType ItemType        `db:"item_type" json:"item_type"`
	Price    decimal.Decimal `db:"price" json:"price"`
	TestID   *int64          `db:"test_id" json:"test_id,omitempty"`
}

func (i BillItem) Amount() decimal.Decimal {
	return i.Price
}

// TestItem snapshots the test's current name and price into a bill line.
func TestItem(t MedicalTest) BillItem {
	id := t.ID
	return BillItem{
		ItemName: t.Name,
		ItemType: ItemTypeTest,
		Price:    t.Price,
		TestID:   &id,
	}
}

// Bill is either an appointment bill, linked to exactly one appointment and
// carrying its DOCTOR_FEE and HOSPITAL_FEE lines, or a test-only bill with
// no appointment. Use NewAppointmentBill or NewTestOnlyBill to build one.
type Bill struct {
	ID            int64
	PatientID     int64
	PatientName   string
	Items         []BillItem
	Paid          bool
	PaymentMethod *PaymentMethod
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	kind          BillType
	appointmentID int64
}

func NewAppointmentBill(patientID int64, patientName string, appointmentID int64, items ...BillItem) *Bill {
	return &Bill{
		PatientID:     patientID,
		PatientName:   patientName,
		Items:         items,
		kind:          BillTypeAppointment,
		appointmentID: appointmentID,
	}
}

func NewTestOnlyBill(patientID int64, patientName string, items ...BillItem) *Bill {
	return &Bill{
		PatientID:   patientID,
		PatientName: patientName,
		Items:       items,
		kind:        BillTypeTestOnly,
	}
}

func (b *Bill) Type() BillType {
	return b.kind
}

// AppointmentID returns the linked appointment; ok is false for test-only bills.
func (b *Bill) AppointmentID() (id int64, ok bool) {
	if b.kind != BillTypeAppointment {
		return 0, false
	}
	return b.appointmentID, true
}

// Total is always derived from the items.
func (b *Bill) Total() decimal.Decimal {
	return fee.BillTotal(b.Items)
}

// HasTest reports whether a line for testID is already on the bill.
func (b *Bill) HasTest(testID int64) bool {
	for _, item := range b.Items {
		if item.TestID != nil && *item.TestID == testID {
			return true
		}
	}
	return false
}

// Item looks up a line by ID.
func (b *Bill) Item(itemID int64) (BillItem, bool) {
	for _, item := range b.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return BillItem{}, false
}

// CheckAddTest validates adding test t without mutating the bill.
func (b *Bill) CheckAddTest(t MedicalTest) error {
	if b.Paid {
		return apperrors.NewInvalidState("cannot modify a paid bill")
	}
	if !t.Active {
		return apperrors.NewBadRequest(fmt.Sprintf("medical test %d is not active", t.ID), nil)
	}
	if b.HasTest(t.ID) {
		return apperrors.NewInvalidState(fmt.Sprintf("medical test %d is already on the bill", t.ID))
	}
	return nil
}

// CheckRemoveItem validates removing itemID without mutating the bill.
func (b *Bill) CheckRemoveItem(itemID int64) (BillItem, error) {
	item, ok := b.Item(itemID)
	if !ok {
		return BillItem{}, apperrors.NewNotFound("bill item", nil)
	}
	if b.Paid {
		return BillItem{}, apperrors.NewInvalidState("cannot modify a paid bill")
	}
	if item.ItemType.Protected() {
		return BillItem{}, apperrors.NewInvalidState(fmt.Sprintf("%s items cannot be removed", item.ItemType))
	}
	return item, nil
}

// CheckPay validates paying the bill.
func (b *Bill) CheckPay() error {
	if b.Paid {
		return apperrors.NewInvalidState("bill is already paid")
	}
	if len(b.Items) == 0 {
		return apperrors.NewInvalidState("cannot pay a bill without items")
	}
	return nil
}

type billJSON struct {
	ID            int64           `json:"id"`
	BillType      BillType        `json:"bill_type"`
	AppointmentID *int64          `json:"appointment_id,omitempty"`
	PatientID     int64           `json:"patient_id"`
	PatientName   string          `json:"patient_name"`
	Items         []BillItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Paid          bool            `json:"paid"`
	PaymentMethod *PaymentMethod  `json:"payment_method,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (b *Bill) MarshalJSON() ([]byte, error) {
	items := b.Items
	if items == nil {
		items = []BillItem{}
	}
	out := billJSON{
		ID:            b.ID,
		BillType:      b.kind,
		PatientID:     b.PatientID,
		PatientName:   b.PatientName,
		Items:         items,
		TotalAmount:   b.Total(),
		Paid:          b.Paid,
		PaymentMethod: b.PaymentMethod,
		PaidAt:        b.PaidAt,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if id, ok := b.AppointmentID(); ok {
		out.AppointmentID = &id
	}
	return json.Marshal(out)
}

func (b *Bill) UnmarshalJSON(data []byte) error {
	var in billJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var restored *Bill
	switch in.BillType {
	case BillTypeAppointment:
		if in.AppointmentID == nil {
			return fmt.Errorf("appointment bill %d has no appointment_id", in.ID)
		}
		restored = NewAppointmentBill(in.PatientID, in.PatientName, *in.AppointmentID, in.Items...)
	case BillTypeTestOnly:
		if in.AppointmentID != nil {
			return fmt.Errorf("test-only bill %d must not reference an appointment", in.ID)
		}
		restored = NewTestOnlyBill(in.PatientID, in.PatientName, in.Items...)
	default:
		return fmt.Errorf("unknown bill type %q", in.BillType)
	}
	restored.ID = in.ID
	restored.Paid = in.Paid
	restored.PaymentMethod = in.PaymentMethod
	restored.PaidAt = in.PaidAt
	restored.CreatedAt = in.CreatedAt
	restored.UpdatedAt = in.UpdatedAt
	*b = *restored
	return nil
}

// Payment records the settlement of a bill.
type Payment struct {
	ID     int64           `db:"id" json:"id"`
	BillID int64           `db:"bill_id" json:"bill_id"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
	Method PaymentMethod   `db:"method" json:"method"`
	PaidAt time.Time       `db:"paid_at" json:"paid_at"`
	PaidBy int64           `db:"paid_by" json:"paid_by"`
}

type CreateTestBillRequest struct {
	TestIDs []int64 `json:"test_ids" binding:"required,min=1,dive,gt=0"`
}

type PayBillRequest struct {
	PaymentMethod string `json:"payment_method" binding:"omitempty,payment_method"`
}

// RevenueSummary is the sum of all paid bills.
type RevenueSummary struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	PaidBills    int             `json:"paid_bills"`
}
