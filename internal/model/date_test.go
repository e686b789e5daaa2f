package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_AddDaysAcrossBoundaries(t *testing.T) {
	assert.Equal(t, "2024-03-01", MustParseDate("2024-02-28").AddDays(2).String())
	assert.Equal(t, "2025-01-01", MustParseDate("2024-12-31").AddDays(1).String())
	assert.Equal(t, "2024-03-31", MustParseDate("2024-03-30").AddDays(1).String())
	assert.Equal(t, "2024-02-29", MustParseDate("2024-03-01").AddDays(-1).String())
}

func TestDate_Weekday(t *testing.T) {
	assert.Equal(t, time.Monday, MustParseDate("2024-01-01").Weekday())
	assert.Equal(t, Monday, WeekdayOf(MustParseDate("2024-01-01")))
}

func TestDate_Compare(t *testing.T) {
	a := MustParseDate("2024-01-01")
	b := MustParseDate("2024-01-02")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("2024-13-01")
	assert.Error(t, err)
	_, err = ParseDate("tomorrow")
	assert.Error(t, err)
}

func TestDate_ScanTime(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-06", d.String())
}

func TestParseWeekday(t *testing.T) {
	w, ok := ParseWeekday("  monday ")
	assert.True(t, ok)
	assert.Equal(t, Monday, w)

	_, ok = ParseWeekday("Funday")
	assert.False(t, ok)
}
