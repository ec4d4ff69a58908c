package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Date range used by diff aggregation
// =============================================================================

// Period is the half-open day range [Start, End).
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the calendar day of t is within [Start, End).
// Dates are compared by their year, month and day, whatever their locations.
func (p Period) Contains(t TimePoint) bool {
	return DaysBetween(p.Start, t) >= 0 && DaysBetween(t, p.End) > 0
}

// Days returns all days in the period.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.Before(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}

// MondayOf returns the Monday starting the week of date:
// date - ((weekday - 1) mod 7) days, with Sunday = 0.
func MondayOf(date TimePoint) TimePoint {
	offset := (int(date.Weekday()) - 1 + 7) % 7
	return date.AddDays(-offset)
}

// WeekPeriod runs from Monday 00:00 to the following Monday (exclusive).
func WeekPeriod(ref TimePoint) Period {
	start := MondayOf(ref)
	return Period{Start: start, End: start.AddDays(7)}
}

// MonthPeriod covers the calendar month of ref.
func MonthPeriod(ref TimePoint) Period {
	start := NewTimePointIn(ref.Year(), ref.Month(), 1, ref.Location())
	return Period{Start: start, End: start.AddMonths(1)}
}

// =============================================================================
// DAY FILTERS - Range predicates for aggregation
// =============================================================================

// DayFilter decides whether a day takes part in an aggregate.
type DayFilter func(day TimePoint) bool

// WeekOf selects days in the Monday-based week containing ref.
func WeekOf(ref TimePoint) DayFilter {
	start := MondayOf(ref)
	return func(day TimePoint) bool {
		n := DaysBetween(start, day)
		return n >= 0 && n < 7
	}
}

// MonthOf selects days in the same calendar year and month as ref.
func MonthOf(ref TimePoint) DayFilter {
	return func(day TimePoint) bool {
		return day.Year() == ref.Year() && day.Month() == ref.Month()
	}
}

// SameDay selects only ref itself.
func SameDay(ref TimePoint) DayFilter {
	return func(day TimePoint) bool {
		return day.Year() == ref.Year() && day.Month() == ref.Month() && day.Day() == ref.Day()
	}
}

// AllTime selects every day.
func AllTime() DayFilter {
	return func(TimePoint) bool { return true }
}

// MonthKey selects days whose "YYYY-MM" key equals key.
func MonthKey(key string) DayFilter {
	return func(day TimePoint) bool { return day.MonthKey() == key }
}

// ParseMonthKey validates a "YYYY-MM" key.
func ParseMonthKey(key string) (string, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return "", fmt.Errorf("%w: month key %q", ErrInvalidInput, key)
	}
	return t.Format("2006-01"), nil
}
