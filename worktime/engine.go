/*
Package worktime computes the deviation between worked and expected time.

PURPOSE:
  Dashboards show how far an employee is ahead of or behind their schedule
  for today, this week, this month, every past month and overall. All of
  these are sums of one daily figure computed from the four punches of a
  day.

DAILY DIFF:
  A day is complete when it has punches 1 (work start), 2 (break start),
  3 (break end) and 4 (work end). Incomplete days contribute 0.

    work   = end(4) - start(1)
    break  = breakEnd(3) - breakStart(2)
    diff   = (work - break) - expectedHours*60

  Times are minutes since midnight in the reference location. A work end
  after midnight is not shifted by a day, so such a day yields a large
  negative diff.

AGGREGATION:
  Records are grouped into days by the calendar date of StartTime. A
  DayFilter (generic.WeekOf, MonthOf, AllTime, MonthKey) selects the days,
  the schedule resolver supplies expected hours for each, and the daily
  diffs are summed. Hourly profiles always aggregate to 0.

SEE ALSO:
  - schedule/schedule.go: Expected hours per day
  - generic/period.go: Range predicates
  - format.go: Human-readable diffs
*/
package worktime

import (
	"math"
	"sort"
	"time"

	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/schedule"
)

// =============================================================================
// DAY GROUPS
// =============================================================================

// DayGroup is every clock punch sharing a calendar day.
type DayGroup struct {
	Date    generic.TimePoint
	Records []PunchRecord
}

// Complete reports whether all four punch orders are present.
func (d DayGroup) Complete() bool {
	return isComplete(d.Records)
}

func isComplete(records []PunchRecord) bool {
	var seen [5]bool
	for _, r := range records {
		if r.PunchOrder.IsClockEvent() {
			seen[r.PunchOrder] = true
		}
	}
	return seen[OrderWorkStart] && seen[OrderBreakStart] && seen[OrderBreakEnd] && seen[OrderWorkEnd]
}

// GroupByDay buckets clock punches (orders 1-4) by the date of StartTime in
// loc. Days are returned in ascending order.
func GroupByDay(records []PunchRecord, loc *time.Location) []DayGroup {
	byDate := make(map[string]*DayGroup)
	var keys []string
	for _, r := range records {
		if !r.PunchOrder.IsClockEvent() {
			continue
		}
		day := generic.DateOf(r.StartTime, loc)
		k := day.String()
		g, ok := byDate[k]
		if !ok {
			g = &DayGroup{Date: day}
			byDate[k] = g
			keys = append(keys, k)
		}
		g.Records = append(g.Records, r)
	}
	sort.Strings(keys)

	groups := make([]DayGroup, len(keys))
	for i, k := range keys {
		groups[i] = *byDate[k]
	}
	return groups
}

// =============================================================================
// DAILY DIFF
// =============================================================================

// DailyDiffMinutes returns (worked - expected) in whole minutes for one day,
// or 0 when the day is incomplete. When an order appears more than once the
// first record wins.
func DailyDiffMinutes(dayRecords []PunchRecord, expectedHours float64, loc *time.Location) int {
	var byOrder [5]*PunchRecord
	for i := range dayRecords {
		o := dayRecords[i].PunchOrder
		if o.IsClockEvent() && byOrder[o] == nil {
			byOrder[o] = &dayRecords[i]
		}
	}
	for o := OrderWorkStart; o <= OrderWorkEnd; o++ {
		if byOrder[o] == nil {
			return 0
		}
	}

	workDuration := WorkEndMinutes(*byOrder[OrderWorkEnd], loc) - WorkStartMinutes(*byOrder[OrderWorkStart], loc)
	breakDuration := BreakEndMinutes(*byOrder[OrderBreakEnd], loc) - BreakStartMinutes(*byOrder[OrderBreakStart], loc)
	actual := float64(workDuration - breakDuration)

	return int(math.Round(actual - expectedHours*60))
}

// =============================================================================
// ENGINE - Aggregates over day groups
// =============================================================================

// Engine aggregates daily diffs. Location is the zone punches are grouped
// and read in; nil means UTC.
type Engine struct {
	Resolver schedule.Resolver
	Location *time.Location
}

func NewEngine(loc *time.Location) *Engine {
	return &Engine{Resolver: schedule.NewResolver(), Location: loc}
}

func (e *Engine) loc() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

// ExpectedHours resolves the profile's expectation for a day.
func (e *Engine) ExpectedHours(day generic.TimePoint, p schedule.Profile) float64 {
	return e.Resolver.ExpectedHours(day, p)
}

// AggregateDiff sums daily diffs over the days accepted by filter. A
// fallback <= 0 means the profile's own daily hours.
func (e *Engine) AggregateDiff(records []PunchRecord, p schedule.Profile, fallback float64, filter generic.DayFilter) int {
	if p.IsHourly {
		return 0
	}
	if filter == nil {
		filter = generic.AllTime()
	}
	total := 0
	for _, day := range GroupByDay(records, e.loc()) {
		if !filter(day.Date) {
			continue
		}
		total += e.dayDiff(day, p, fallback)
	}
	return total
}

func (e *Engine) dayDiff(day DayGroup, p schedule.Profile, fallback float64) int {
	if fallback <= 0 {
		fallback = p.DailyHours()
	}
	expected := e.Resolver.ExpectedHoursWithFallback(day.Date, p, fallback)
	return DailyDiffMinutes(day.Records, expected, e.loc())
}

// DayDiff is the diff of the single day ref.
func (e *Engine) DayDiff(records []PunchRecord, p schedule.Profile, ref generic.TimePoint) int {
	return e.AggregateDiff(records, p, 0, generic.SameDay(ref))
}

// WeekDiff covers the Monday-based week containing ref.
func (e *Engine) WeekDiff(records []PunchRecord, p schedule.Profile, ref generic.TimePoint) int {
	return e.AggregateDiff(records, p, 0, generic.WeekOf(ref))
}

// MonthDiff covers the calendar month of ref.
func (e *Engine) MonthDiff(records []PunchRecord, p schedule.Profile, ref generic.TimePoint) int {
	return e.AggregateDiff(records, p, 0, generic.MonthOf(ref))
}

// TotalDiff covers every recorded day.
func (e *Engine) TotalDiff(records []PunchRecord, p schedule.Profile) int {
	return e.AggregateDiff(records, p, 0, generic.AllTime())
}

// MonthDiffEntry is one "YYYY-MM" bucket of the per-month breakdown.
type MonthDiffEntry struct {
	Key     string `json:"key"`
	Minutes int    `json:"minutes"`
}

// MonthlyBreakdown reports one aggregate per month that has punches, in
// ascending key order.
func (e *Engine) MonthlyBreakdown(records []PunchRecord, p schedule.Profile, fallback float64) []MonthDiffEntry {
	var out []MonthDiffEntry
	index := make(map[string]int)
	for _, day := range GroupByDay(records, e.loc()) {
		key := day.Date.MonthKey()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, MonthDiffEntry{Key: key})
		}
		if !p.IsHourly {
			out[i].Minutes += e.dayDiff(day, p, fallback)
		}
	}
	return out
}

// =============================================================================
// SUMMARY - Everything a dashboard shows
// =============================================================================

type Summary struct {
	Reference generic.TimePoint
	Day       int
	Week      int
	Month     int
	Total     int
	Months    []MonthDiffEntry
}

// Summarize computes all dashboard aggregates relative to ref.
func (e *Engine) Summarize(records []PunchRecord, p schedule.Profile, ref generic.TimePoint) Summary {
	return Summary{
		Reference: ref,
		Day:       e.DayDiff(records, p, ref),
		Week:      e.WeekDiff(records, p, ref),
		Month:     e.MonthDiff(records, p, ref),
		Total:     e.TotalDiff(records, p),
		Months:    e.MonthlyBreakdown(records, p, 0),
	}
}
