// Package timebucket maps instants onto business days, weeks and months.
//
// A business day rolls over at a fixed wall-clock offset after local midnight
// (02:00 in Europe/Prague by default), so activity between 00:00 and the offset
// belongs to the previous calendar date.
package timebucket

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	// DefaultTimezone is the zone used when a team has no explicit setting.
	DefaultTimezone = "Europe/Prague"
	// DefaultOffset is the wall-clock shift applied before truncating to a date.
	DefaultOffset = 2 * time.Hour
)

// Bucketer converts instants to business-period keys. Keys are civil dates
// represented as time.Time values at 00:00 UTC.
type Bucketer struct {
	Location *time.Location
	Offset   time.Duration
}

// New loads the named zone and returns a Bucketer with the given offset.
func New(timezone string, offset time.Duration) (Bucketer, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Bucketer{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return Bucketer{Location: loc, Offset: offset}, nil
}

// Default returns the legacy Europe/Prague, two hour Bucketer.
func Default() Bucketer {
	b, err := New(DefaultTimezone, DefaultOffset)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Bucketer) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

// Day returns the business day t falls on.
func (b Bucketer) Day(t time.Time) time.Time {
	local := t.In(b.location())
	wall := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
	wall = wall.Add(-b.Offset)
	return time.Date(wall.Year(), wall.Month(), wall.Day(), 0, 0, 0, 0, time.UTC)
}

// Week returns the Monday of the business week t falls in.
func (b Bucketer) Week(t time.Time) time.Time {
	return WeekStart(b.Day(t))
}

// Month returns the first day of the business month t falls in.
func (b Bucketer) Month(t time.Time) time.Time {
	return MonthStart(b.Day(t))
}

// Weekday returns the weekday of the business day t falls on.
func (b Bucketer) Weekday(t time.Time) time.Weekday {
	return b.Day(t).Weekday()
}

// DayStart returns the earliest instant that Day maps onto the given business
// day.
func (b Bucketer) DayStart(day time.Time) time.Time {
	key := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	wall := key.Add(b.Offset)
	start := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), b.location())

	// A repeated wall clock (autumn fall-back) resolves to its later instant.
	// Re-resolve with the offset in effect the day before and keep it when
	// that earlier instant already belongs to the day.
	_, prev := start.Add(-24 * time.Hour).Zone()
	earlier := wall.Add(-time.Duration(prev) * time.Second).In(b.location())
	if earlier.Before(start) && b.Day(earlier).Equal(key) {
		return earlier
	}
	return start
}

// WeekStart truncates a business day to the Monday of its week.
func WeekStart(day time.Time) time.Time {
	shift := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -shift)
}

// MonthStart truncates a business day to the first of its month.
func MonthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Format renders a business day key as YYYY-MM-DD.
func Format(day time.Time) string {
	return day.Format(time.DateOnly)
}
