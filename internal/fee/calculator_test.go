package fee

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

type price string

func (p price) Amount() decimal.Decimal { return decimal.RequireFromString(string(p)) }

func TestAppointmentFee(t *testing.T) {
	got, err := AppointmentFee(decimal.RequireFromString("2000.00"), decimal.RequireFromString("750.00"))
	require.NoError(t, err)
	assert.Equal(t, "2750", got.String())

	_, err = AppointmentFee(decimal.RequireFromString("-1"), DefaultHospitalCharge)
	assert.True(t, errors.Is(err, apperrors.InvalidArgumentErr))

	_, err = AppointmentFee(decimal.Zero, decimal.RequireFromString("-0.01"))
	assert.True(t, errors.Is(err, apperrors.InvalidArgumentErr))
}

func TestBillTotal_Exact(t *testing.T) {
	items := []price{"0.10", "0.20", "1500.00", "850.00"}
	assert.True(t, BillTotal(items).Equal(decimal.RequireFromString("2350.30")))
	assert.True(t, BillTotal([]price{}).IsZero())
}

func TestSplitAppointmentFee(t *testing.T) {
	doctor, hospital, err := SplitAppointmentFee(decimal.RequireFromString("2750.00"), DefaultHospitalCharge)
	require.NoError(t, err)
	assert.Equal(t, "2000", doctor.String())
	assert.Equal(t, "750", hospital.String())

	// Charge raised above a frozen fee: hospital part is capped.
	doctor, hospital, err = SplitAppointmentFee(decimal.RequireFromString("500"), DefaultHospitalCharge)
	require.NoError(t, err)
	assert.True(t, doctor.IsZero())
	assert.True(t, hospital.Equal(decimal.RequireFromString("500")))
}
