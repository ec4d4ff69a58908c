package worktime

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chrono/chrono-engine/generic"
)

// =============================================================================
// PUNCH RECORD
// =============================================================================

// PunchOrder is the position of a punch within a working day.
type PunchOrder int

const (
	OrderDailyNote  PunchOrder = 0
	OrderWorkStart  PunchOrder = 1
	OrderBreakStart PunchOrder = 2
	OrderBreakEnd   PunchOrder = 3
	OrderWorkEnd    PunchOrder = 4
)

// IsClockEvent reports whether the order takes part in diff calculation.
func (o PunchOrder) IsClockEvent() bool {
	return o >= OrderWorkStart && o <= OrderWorkEnd
}

func (o PunchOrder) String() string {
	switch o {
	case OrderDailyNote:
		return "daily_note"
	case OrderWorkStart:
		return "work_start"
	case OrderBreakStart:
		return "break_start"
	case OrderBreakEnd:
		return "break_end"
	case OrderWorkEnd:
		return "work_end"
	default:
		return "unknown"
	}
}

// PunchRecord is one clock event. StartTime is the anchor every record
// carries; EndTime is set on work-end records and BreakStart/BreakEnd
// ("HH:MM:SS") override the anchor for break records.
type PunchRecord struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	PunchOrder PunchOrder `json:"punchOrder"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	BreakStart string     `json:"breakStart,omitempty"`
	BreakEnd   string     `json:"breakEnd,omitempty"`
	DailyNote  string     `json:"dailyNote,omitempty"`
}

// =============================================================================
// FIELD RESOLUTION
// =============================================================================

// WorkStartMinutes is the anchor time of a work-start record.
func WorkStartMinutes(rec PunchRecord, loc *time.Location) int {
	return generic.MinutesSinceMidnight(rec.StartTime, loc)
}

// WorkEndMinutes uses EndTime, or the anchor when EndTime is missing.
func WorkEndMinutes(rec PunchRecord, loc *time.Location) int {
	if rec.EndTime != nil {
		return generic.MinutesSinceMidnight(*rec.EndTime, loc)
	}
	return generic.MinutesSinceMidnight(rec.StartTime, loc)
}

// BreakStartMinutes prefers the explicit BreakStart clock, else the anchor.
func BreakStartMinutes(rec PunchRecord, loc *time.Location) int {
	return clockOrAnchor(rec.BreakStart, rec, loc)
}

// BreakEndMinutes prefers the explicit BreakEnd clock, else the anchor.
func BreakEndMinutes(rec PunchRecord, loc *time.Location) int {
	return clockOrAnchor(rec.BreakEnd, rec, loc)
}

func clockOrAnchor(clock string, rec PunchRecord, loc *time.Location) int {
	if m, ok := generic.ParseClock(clock); ok {
		return m
	}
	return generic.MinutesSinceMidnight(rec.StartTime, loc)
}

// =============================================================================
// RECORDING - Manual button and NFC scans
// =============================================================================

// NextPunchOrder returns the order the next punch of the day takes.
func NextPunchOrder(dayRecords []PunchRecord) (PunchOrder, error) {
	last := PunchOrder(0)
	for _, r := range dayRecords {
		if r.PunchOrder.IsClockEvent() && r.PunchOrder > last {
			last = r.PunchOrder
		}
	}
	if last >= OrderWorkEnd {
		return 0, generic.ErrDayComplete
	}
	return last + 1, nil
}

// NewPunch builds a record for order at time at. Break punches also carry
// their clock string, work-end punches their EndTime.
func NewPunch(username string, order PunchOrder, at time.Time, loc *time.Location) PunchRecord {
	if loc != nil {
		at = at.In(loc)
	}
	rec := PunchRecord{
		ID:         uuid.New().String(),
		Username:   username,
		PunchOrder: order,
		StartTime:  at,
	}
	switch order {
	case OrderBreakStart:
		rec.BreakStart = generic.FormatClock(at, loc)
	case OrderBreakEnd:
		rec.BreakEnd = generic.FormatClock(at, loc)
	case OrderWorkEnd:
		end := at
		rec.EndTime = &end
	}
	return rec
}

// SortPunches orders records by anchor time, then punch order.
func SortPunches(records []PunchRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].StartTime.Equal(records[j].StartTime) {
			return records[i].StartTime.Before(records[j].StartTime)
		}
		return records[i].PunchOrder < records[j].PunchOrder
	})
}
