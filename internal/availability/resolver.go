// Package availability maps a doctor's weekly schedule onto concrete
// calendar dates. It is shared by the API server and internal/client so both
// sides validate bookings identically.
package availability

import (
	"iter"
	"time"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

// DefaultUpcomingCount is the number of dates offered when none is requested.
const DefaultUpcomingCount = 8

// Clock supplies the current calendar date.
type Clock interface {
	Today() model.Date
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() model.Date {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return model.DateOf(time.Now().In(loc))
}

// FixedClock always returns the same date.
type FixedClock model.Date

func (c FixedClock) Today() model.Date {
	return model.Date(c)
}

// UpcomingDatesForDay yields the next count dates strictly after today that
// fall on day. Ranging over the result again starts over from today. An
// unrecognised day or a non-positive count yields nothing.
func UpcomingDatesForDay(day string, count int, today model.Date) iter.Seq[model.Date] {
	return func(yield func(model.Date) bool) {
		w, ok := model.ParseWeekday(day)
		if !ok || count <= 0 {
			return
		}
		next := NextDateAfter(w, today)
		for i := 0; i < count; i++ {
			if !yield(next) {
				return
			}
			next = next.AddDays(7)
		}
	}
}

// NextDateAfter returns the earliest date strictly after `after` that falls
// on day. day must be a recognised weekday.
func NextDateAfter(day model.Weekday, after model.Date) model.Date {
	target, _ := day.TimeWeekday()
	delta := (int(target) - int(after.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return after.AddDays(delta)
}

// IsDateConsistentWithSchedule reports whether date falls on day. The day is
// compared case-insensitively after trimming whitespace; an unknown day is
// simply not consistent.
func IsDateConsistentWithSchedule(date string, day string) (bool, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return false, apperrors.NewBadRequest("appointment date must be YYYY-MM-DD", err)
	}
	return DateMatchesDay(d, day), nil
}

// DateMatchesDay is IsDateConsistentWithSchedule for an already parsed date.
func DateMatchesDay(d model.Date, day string) bool {
	w, ok := model.ParseWeekday(day)
	if !ok {
		return false
	}
	return model.WeekdayOf(d) == w
}

// FilterSchedulesForDate keeps the schedules that run on date.
func FilterSchedulesForDate(date model.Date, schedules []model.Schedule) []model.Schedule {
	out := make([]model.Schedule, 0, len(schedules))
	for _, s := range schedules {
		if DateMatchesDay(date, string(s.Day)) {
			out = append(out, s)
		}
	}
	return out
}
