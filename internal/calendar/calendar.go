// Package calendar provides the simulated date and whole-year arithmetic.
// Dates are UTC midnights; only the day component is meaningful.
package calendar

import (
	"fmt"
	"time"
)

// DaysPerYear is the day-of-year range used for generated birthdays.
const DaysPerYear = 365

// Date truncates t to a UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FromYearDay returns the date for the given year and 1-based day of year.
func FromYearDay(year, yday int) (time.Time, error) {
	if yday < 1 || yday > 366 {
		return time.Time{}, fmt.Errorf("day of year %d out of range", yday)
	}
	d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, yday-1)
	if d.Year() != year {
		return time.Time{}, fmt.Errorf("day of year %d out of range for %d", yday, year)
	}
	return d, nil
}

// YearsSince returns the whole years elapsed from then to now.
// The second result is false when then lies after now.
func YearsSince(now, then time.Time) (int, bool) {
	now, then = Date(now), Date(then)
	if then.After(now) {
		return 0, false
	}
	years := now.Year() - then.Year()
	m, d := anniversary(then, now.Year())
	if now.Month() < m || (now.Month() == m && now.Day() < d) {
		years--
	}
	return years, true
}

// anniversary returns the month and day on which then recurs in year.
// A Feb 29 date recurs on Feb 28 in common years.
func anniversary(then time.Time, year int) (time.Month, int) {
	m, d := then.Month(), then.Day()
	if m == time.February && d == 29 && !IsLeap(year) {
		return time.February, 28
	}
	return m, d
}

// IsLeap reports whether year has a Feb 29.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysSince returns the whole days from then to now (negative if then is later).
func DaysSince(now, then time.Time) int {
	return int(Date(now).Sub(Date(then)).Hours() / 24)
}

// IsAnniversary reports whether date is the yearly recurrence of then.
// Feb 29 dates recur on Feb 28 in common years.
func IsAnniversary(date, then time.Time) bool {
	m, d := anniversary(then, date.Year())
	return date.Month() == m && date.Day() == d
}

// Format renders a date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format("2006-01-02")
}

// Clock holds the current simulated date.
type Clock struct {
	start   time.Time
	current time.Time
}

// NewClock creates a clock at start.
func NewClock(start time.Time) *Clock {
	start = Date(start)
	return &Clock{start: start, current: start}
}

// Now returns the current simulated date.
func (c *Clock) Now() time.Time { return c.current }

// Start returns the date the clock was created at.
func (c *Clock) Start() time.Time { return c.start }

// Advance moves the clock one day forward and returns the new date.
func (c *Clock) Advance() time.Time {
	c.current = c.current.AddDate(0, 0, 1)
	return c.current
}

// Set moves the clock to d (used when restoring saved state).
func (c *Clock) Set(d time.Time) {
	c.current = Date(d)
}

// DaysElapsed returns the days since the clock's start date.
func (c *Clock) DaysElapsed() int {
	return DaysSince(c.current, c.start)
}
