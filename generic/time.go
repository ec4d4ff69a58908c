package generic

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// =============================================================================
// TIME POINT - Calendar day in the reference location
// =============================================================================

// TimePoint is a calendar day. Time always holds midnight of that day in
// the location it was created for, so two TimePoints for the same date in
// the same location compare equal.
type TimePoint struct {
	Time time.Time
}

// DefaultLocationName is the reference time zone punches are grouped in.
const DefaultLocationName = "Europe/Berlin"

// LoadLocation resolves a zone name, falling back to UTC when the name is
// empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func NewTimePointIn(year int, month time.Month, day int, loc *time.Location) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// DateOf returns the calendar day t falls on in loc.
func DateOf(t time.Time, loc *time.Location) TimePoint {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return NewTimePointIn(lt.Year(), lt.Month(), lt.Day(), loc)
}

// ParseDate parses "2006-01-02" into a day in loc.
func ParseDate(s string, loc *time.Location) (TimePoint, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return TimePoint{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, s)
	}
	return TimePoint{Time: t}, nil
}

func Today(loc *time.Location) TimePoint { return DateOf(time.Now(), loc) }

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int                { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month        { return tp.Time.Month() }
func (tp TimePoint) Day() int                 { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday    { return tp.Time.Weekday() }
func (tp TimePoint) Location() *time.Location { return tp.Time.Location() }
func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (tp TimePoint) IsWorkday() bool { return !tp.IsWeekend() }
func (tp TimePoint) IsZero() bool    { return tp.Time.IsZero() }

// WeekdayName is the lowercase English long weekday name ("monday").
func (tp TimePoint) WeekdayName() string { return strings.ToLower(tp.Weekday().String()) }

// MonthKey is the "YYYY-MM" bucket the day belongs to.
func (tp TimePoint) MonthKey() string { return tp.Time.Format("2006-01") }

func (tp TimePoint) String() string { return tp.Time.Format("2006-01-02") }

// =============================================================================
// SCHEDULE EPOCH - Anchor for rotating week schedules
// =============================================================================

// ScheduleEpoch is the fixed anchor of schedule rotations: 2020-01-01, a Wednesday.
var ScheduleEpoch = NewTimePoint(2020, time.January, 1)

// WeeksSince returns floor((date - epoch) / 7 days) using calendar days, so
// DST transitions in the date's location do not shift the result.
func WeeksSince(epoch, date TimePoint) int {
	days := DaysBetween(epoch, date)
	weeks := days / 7
	if days%7 != 0 && days < 0 {
		weeks--
	}
	return weeks
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween counts calendar days from -> to, ignoring the locations'
// offsets.
func DaysBetween(from, to TimePoint) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// MinutesSinceMidnight is the wall-clock minute of t in loc (seconds dropped).
func MinutesSinceMidnight(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Hour()*60 + t.Minute()
}

// ParseClock parses "HH:MM:SS" (or "HH:MM") into minutes since midnight.
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// FormatClock renders t as "HH:MM:SS" in loc.
func FormatClock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04:05")
}
