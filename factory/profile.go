/*
Package factory converts external JSON and YAML documents into the engine
types.

PURPOSE:
  Profiles arrive as JSON from the Chrono API and from the profile endpoint;
  the feature catalog can be overridden by a YAML file next to the binary.
  The factory applies defaults and rejects structurally broken documents,
  while leaving soft problems (a non-numeric schedule cell) for the engines
  to absorb.

PROFILE JSON:
  {
    "username": "anna",
    "isHourly": false,
    "dailyWorkHours": 8,
    "scheduleCycle": 2,
    "weeklySchedule": [
      {"monday": 8, "tuesday": 8, "wednesday": 8, "thursday": 8, "friday": 6},
      {"monday": 8, "tuesday": 8, "wednesday": 8, "thursday": 8}
    ],
    "annualVacationDays": 30
  }

CATALOG YAML:
  base:
    key: timeTracking
    price: 5
    price_type: perEmployee
  features:
    - key: vacation
      price: 1
      price_type: perEmployee
      always_available: true

SEE ALSO:
  - schedule/schedule.go: Profile and tolerant Hours decoding
  - pricing/catalog.go: Catalog type and default catalog
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/schedule"
)

// =============================================================================
// PROFILE PARSING
// =============================================================================

// ParseProfile decodes a profile document and applies defaults.
func ParseProfile(data []byte) (schedule.Profile, error) {
	var p schedule.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return schedule.Profile{}, fmt.Errorf("%w: invalid profile JSON: %v", generic.ErrInvalidInput, err)
	}
	return NormalizeProfile(p)
}

// NormalizeProfile validates p and fills in defaults.
func NormalizeProfile(p schedule.Profile) (schedule.Profile, error) {
	p.Username = strings.TrimSpace(p.Username)
	if p.DailyWorkHours < 0 || p.DailyWorkHours > 24 {
		return schedule.Profile{}, &generic.FieldError{Field: "dailyWorkHours", Message: "must be between 0 and 24"}
	}
	if p.DailyWorkHours == 0 {
		p.DailyWorkHours = schedule.DefaultDailyHours
	}
	if p.ScheduleCycle < 0 {
		return schedule.Profile{}, &generic.FieldError{Field: "scheduleCycle", Message: "must not be negative"}
	}
	if p.AnnualVacationDays < 0 {
		return schedule.Profile{}, &generic.FieldError{Field: "annualVacationDays", Message: "must not be negative"}
	}
	for i, week := range p.WeeklySchedule {
		for day := range week {
			if !isWeekday(day) {
				return schedule.Profile{}, &generic.FieldError{
					Field:   fmt.Sprintf("weeklySchedule[%d]", i),
					Message: fmt.Sprintf("unknown weekday %q", day),
				}
			}
		}
	}
	return p, nil
}

// MarshalProfile is the inverse of ParseProfile.
func MarshalProfile(p schedule.Profile) ([]byte, error) {
	return json.Marshal(p)
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func isWeekday(s string) bool { return weekdays[s] }
