package domain

import (
	"fmt"
	"time"
)

const WeekKeyLayout = "2006-01-02"

// WeekStart returns midnight UTC of the Monday starting t's calendar week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday == 0
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
}

// WeekKey is the bucket identifier of t's calendar week.
func WeekKey(t time.Time) string {
	return WeekStart(t).Format(WeekKeyLayout)
}

// PreviousWeekKey is the key of the calendar week before the one containing now.
func PreviousWeekKey(now time.Time) string {
	return WeekStart(now).AddDate(0, 0, -7).Format(WeekKeyLayout)
}

// ParseWeekKey accepts any date and normalizes it to its week's key.
func ParseWeekKey(s string) (string, error) {
	t, err := time.Parse(WeekKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: week must be YYYY-MM-DD: %v", ErrValidation, err)
	}
	return WeekKey(t), nil
}
