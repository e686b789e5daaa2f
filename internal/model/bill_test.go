package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

func appointmentBill() *Bill {
	b := NewAppointmentBill(3, "Nimal Perera", 42,
		BillItem{ID: 1, ItemName: "Doctor Channeling Fee - Dr. Silva", ItemType: ItemTypeDoctorFee, Price: decimal.RequireFromString("2000.00")},
		BillItem{ID: 2, ItemName: "Hospital Charge", ItemType: ItemTypeHospitalFee, Price: decimal.RequireFromString("750.00")},
	)
	b.ID = 9
	return b
}

func TestBill_Variants(t *testing.T) {
	b := appointmentBill()
	id, ok := b.AppointmentID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, BillTypeAppointment, b.Type())

	testOnly := NewTestOnlyBill(3, "Nimal Perera")
	_, ok = testOnly.AppointmentID()
	assert.False(t, ok)
	assert.Equal(t, BillTypeTestOnly, testOnly.Type())
	assert.True(t, testOnly.Total().IsZero())
}

func TestBill_TotalFollowsItems(t *testing.T) {
	b := appointmentBill()
	assert.True(t, b.Total().Equal(decimal.RequireFromString("2750")))

	b.Items = append(b.Items, TestItem(MedicalTest{Base: Base{ID: 5}, Name: "FBC", Price: decimal.RequireFromString("850.00"), Active: true}))
	assert.True(t, b.Total().Equal(decimal.RequireFromString("3600")))
}

func TestBill_ProtectedItemsCannotBeRemoved(t *testing.T) {
	b := appointmentBill()

	_, err := b.CheckRemoveItem(1)
	assert.True(t, errors.Is(err, apperrors.InvalidStateErr))
	_, err = b.CheckRemoveItem(2)
	assert.True(t, errors.Is(err, apperrors.InvalidStateErr))
	_, err = b.CheckRemoveItem(99)
	assert.True(t, errors.Is(err, apperrors.NotFoundErr))
}

func TestBill_CheckAddTest(t *testing.T) {
	b := appointmentBill()
	test := MedicalTest{Base: Base{ID: 5}, Name: "FBC", Price: decimal.RequireFromString("850.00"), Active: true}

	require.NoError(t, b.CheckAddTest(test))
	b.Items = append(b.Items, TestItem(test))
	assert.True(t, errors.Is(b.CheckAddTest(test), apperrors.InvalidStateErr))

	inactive := test
	inactive.ID = 6
	inactive.Active = false
	assert.True(t, errors.Is(b.CheckAddTest(inactive), apperrors.InvalidArgumentErr))

	b.Paid = true
	other := test
	other.ID = 7
	assert.True(t, errors.Is(b.CheckAddTest(other), apperrors.InvalidStateErr))
}

func TestBill_CheckPay(t *testing.T) {
	assert.True(t, errors.Is(NewTestOnlyBill(1, "x").CheckPay(), apperrors.InvalidStateErr))

	b := appointmentBill()
	require.NoError(t, b.CheckPay())
	b.Paid = true
	assert.True(t, errors.Is(b.CheckPay(), apperrors.InvalidStateErr))
}

func TestBill_JSONKeepsVariant(t *testing.T) {
	data, err := json.Marshal(appointmentBill())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_amount":"2750"`)
	assert.Contains(t, string(data), `"appointment_id":42`)

	var decoded Bill
	require.NoError(t, json.Unmarshal(data, &decoded))
	id, ok := decoded.AppointmentID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Len(t, decoded.Items, 2)

	err = json.Unmarshal([]byte(`{"id":1,"bill_type":"TEST_ONLY","appointment_id":4}`), &decoded)
	assert.Error(t, err)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCash, m)

	m, err = ParsePaymentMethod(" card ")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCard, m)

	_, err = ParsePaymentMethod("CHEQUE")
	assert.True(t, errors.Is(err, apperrors.InvalidArgumentErr))
}
