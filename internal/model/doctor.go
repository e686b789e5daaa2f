package model

import (
	"github.com/shopspring/decimal"
)

type Doctor struct {
	Base
	Name           string          `db:"name" json:"name"`
	Specialization string          `db:"specialization" json:"specialization"`
	Phone          string          `db:"phone" json:"phone"`
	Email          string          `db:"email" json:"email"`
	ChannelingFee  decimal.Decimal `db:"channeling_fee" json:"channeling_fee"`
}

// Schedule is a weekly recurring slot of a doctor. Times are "HH:MM".
type Schedule struct {
	Base
	DoctorID   int64   `db:"doctor_id" json:"doctor_id"`
	DoctorName string  `db:"doctor_name" json:"doctor_name,omitempty"`
	Day        Weekday `db:"day" json:"day"`
	StartTime  string  `db:"start_time" json:"start_time"`
	EndTime    string  `db:"end_time" json:"end_time"`
}

// AvailableDatesResponse lists the upcoming dates a schedule can be booked on.
type AvailableDatesResponse struct {
	ScheduleID int64   `json:"schedule_id"`
	Day        Weekday `json:"day"`
	Dates      []Date  `json:"dates"`
}
