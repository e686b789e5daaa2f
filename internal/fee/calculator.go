// Package fee computes appointment fees and bill totals with exact decimal
// arithmetic.
package fee

import (
	"github.com/shopspring/decimal"

	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

// DefaultHospitalCharge applies when no hospital charge has been configured.
var DefaultHospitalCharge = decimal.RequireFromString("750.00")

// Priced is anything that contributes an amount to a bill.
type Priced interface {
	Amount() decimal.Decimal
}

// AppointmentFee is the doctor's channeling fee plus the hospital charge.
func AppointmentFee(channelingFee, hospitalCharge decimal.Decimal) (decimal.Decimal, error) {
	if channelingFee.IsNegative() {
		return decimal.Zero, apperrors.NewBadRequest("channeling fee must not be negative", nil)
	}
	if hospitalCharge.IsNegative() {
		return decimal.Zero, apperrors.NewBadRequest("hospital charge must not be negative", nil)
	}
	return channelingFee.Add(hospitalCharge), nil
}

// BillTotal sums item amounts. An empty bill totals zero.
func BillTotal[T Priced](items []T) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount())
	}
	return total
}

// SplitAppointmentFee divides a frozen appointment fee into its doctor and
// hospital parts. The parts always add up to fee; when the current hospital
// charge exceeds the fee the hospital part is capped at fee.
func SplitAppointmentFee(fee, hospitalCharge decimal.Decimal) (doctor, hospital decimal.Decimal, err error) {
	if fee.IsNegative() {
		return decimal.Zero, decimal.Zero, apperrors.NewBadRequest("appointment fee must not be negative", nil)
	}
	if hospitalCharge.IsNegative() {
		return decimal.Zero, decimal.Zero, apperrors.NewBadRequest("hospital charge must not be negative", nil)
	}
	hospital = decimal.Min(hospitalCharge, fee)
	return fee.Sub(hospital), hospital, nil
}
