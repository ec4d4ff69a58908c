/*
Package schedule resolves how many hours an employee is expected to work on
a given calendar day.

PURPOSE:
  Salaried employees carry either a flat daily target or a rotating weekly
  schedule. The resolver turns a Profile plus a date into expected hours.
  Hourly employees have no expectation at all.

ROTATION:
  A profile with ScheduleCycle = N and N week definitions rotates through
  them week by week. The active week for a date is

    floor((date - 2020-01-01) / 7 days) mod N

  normalised to a non-negative index for dates before the epoch.

FALLBACK:
  Resolution never fails. A missing schedule, an out-of-range week index,
  a missing weekday entry or a non-numeric value all fall back to the
  profile's daily hours (default 8).

SEE ALSO:
  - worktime/engine.go: Consumes ExpectedHours per day
  - factory/profile.go: Builds Profiles from JSON
*/
package schedule

import (
	"bytes"
	"encoding/json"

	"github.com/chrono/chrono-engine/generic"
)

// DefaultDailyHours applies when a profile has no daily hours configured.
const DefaultDailyHours = 8.0

// =============================================================================
// PROFILE
// =============================================================================

// Profile is the per-user work configuration.
type Profile struct {
	Username           string           `json:"username"`
	IsHourly           bool             `json:"isHourly"`
	DailyWorkHours     float64          `json:"dailyWorkHours"`
	WeeklySchedule     []WeekDefinition `json:"weeklySchedule,omitempty"`
	ScheduleCycle      int              `json:"scheduleCycle,omitempty"`
	AnnualVacationDays float64          `json:"annualVacationDays"`
}

// DailyHours returns the configured daily hours or DefaultDailyHours.
func (p Profile) DailyHours() float64 {
	if p.DailyWorkHours <= 0 {
		return DefaultDailyHours
	}
	return p.DailyWorkHours
}

// HasRotation reports whether the weekly schedule is usable at all.
func (p Profile) HasRotation() bool {
	return len(p.WeeklySchedule) > 0 && p.ScheduleCycle > 0
}

// WeekDefinition maps a lowercase weekday name to expected hours.
type WeekDefinition map[string]Hours

// Hours is a schedule cell. Only JSON numbers are Valid; strings, null,
// booleans and objects decode without error but are ignored by the resolver.
type Hours struct {
	Value float64
	Valid bool
}

// H builds a valid cell.
func H(v float64) Hours { return Hours{Value: v, Valid: true} }

func (h *Hours) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v float64
	if len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')) {
		if err := json.Unmarshal(data, &v); err == nil {
			*h = Hours{Value: v, Valid: true}
			return nil
		}
	}
	*h = Hours{}
	return nil
}

func (h Hours) MarshalJSON() ([]byte, error) {
	if !h.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(h.Value)
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver computes expected hours. The zero value uses generic.ScheduleEpoch.
type Resolver struct {
	Epoch generic.TimePoint
}

func NewResolver() Resolver {
	return Resolver{Epoch: generic.ScheduleEpoch}
}

func (r Resolver) epoch() generic.TimePoint {
	if r.Epoch.IsZero() {
		return generic.ScheduleEpoch
	}
	return r.Epoch
}

// ExpectedHours resolves with the profile's own daily hours as fallback.
func (r Resolver) ExpectedHours(date generic.TimePoint, p Profile) float64 {
	return r.ExpectedHoursWithFallback(date, p, p.DailyHours())
}

// ExpectedHoursWithFallback resolves with an explicit fallback.
func (r Resolver) ExpectedHoursWithFallback(date generic.TimePoint, p Profile, fallback float64) float64 {
	if p.IsHourly {
		return 0
	}
	if p.HasRotation() {
		idx := r.CycleIndex(date, p.ScheduleCycle)
		if idx < len(p.WeeklySchedule) {
			if h, ok := p.WeeklySchedule[idx][date.WeekdayName()]; ok && h.Valid {
				return h.Value
			}
		}
	}
	return fallback
}

// CycleIndex is the active week definition for date in an N-week rotation.
func (r Resolver) CycleIndex(date generic.TimePoint, cycle int) int {
	if cycle <= 0 {
		return 0
	}
	idx := generic.WeeksSince(r.epoch(), date) % cycle
	if idx < 0 {
		idx += cycle
	}
	return idx
}
