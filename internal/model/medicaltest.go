package model

import (
	"github.com/shopspring/decimal"
)

// MedicalTest is a billable laboratory or imaging test.
type MedicalTest struct {
	Base
	Name   string          `db:"name" json:"name"`
	Type   string          `db:"type" json:"type"`
	Price  decimal.Decimal `db:"price" json:"price"`
	Active bool            `db:"active" json:"active"`
}
