package model

import (
	"strings"
	"time"
)

// Weekday is the upper-case day name a schedule repeats on.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdays = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// ParseWeekday accepts any casing and surrounding whitespace.
func ParseWeekday(s string) (Weekday, bool) {
	w := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := weekdays[w]
	return w, ok
}

// WeekdayOf names the weekday of a calendar date.
func WeekdayOf(d Date) Weekday {
	target := d.Weekday()
	for w, tw := range weekdays {
		if tw == target {
			return w
		}
	}
	return ""
}

// TimeWeekday converts to the standard library weekday. ok is false for
// unrecognised names.
func (w Weekday) TimeWeekday() (time.Weekday, bool) {
	tw, ok := weekdays[w]
	return tw, ok
}
