// Package vacation validates vacation requests and tracks how many of an
// employee's annual days are left.
package vacation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chrono/chrono-engine/generic"
)

// =============================================================================
// REQUEST
// =============================================================================

type Type string

const (
	TypeFull          Type = "full"
	TypeHalfMorning   Type = "half_morning"
	TypeHalfAfternoon Type = "half_afternoon"
)

func (t Type) IsHalfDay() bool { return t == TypeHalfMorning || t == TypeHalfAfternoon }

func (t Type) Valid() bool { return t == TypeFull || t.IsHalfDay() }

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a vacation request over the inclusive day range [Start, End].
type Request struct {
	ID        string
	Username  string
	Start     generic.TimePoint
	End       generic.TimePoint
	Type      Type
	Status    Status
	Reason    string
	CreatedAt time.Time
}

// NewRequest validates the input and returns a pending request.
func NewRequest(username string, start, end generic.TimePoint, typ Type, reason string) (Request, error) {
	if typ == "" {
		typ = TypeFull
	}
	req := Request{
		ID:        uuid.New().String(),
		Username:  username,
		Start:     start,
		End:       end,
		Type:      typ,
		Status:    StatusPending,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := Validate(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the range and the half-day rule: a half-day request must
// start and end on the same day.
func Validate(req Request) error {
	if req.Username == "" {
		return &generic.FieldError{Field: "username", Message: "required"}
	}
	if !req.Type.Valid() {
		return &generic.FieldError{Field: "type", Message: fmt.Sprintf("unknown vacation type %q", req.Type)}
	}
	if req.End.Before(req.Start) {
		return fmt.Errorf("vacation %s..%s: %w", req.Start, req.End, generic.ErrInvalidPeriod)
	}
	if req.Type.IsHalfDay() && generic.DaysBetween(req.Start, req.End) != 0 {
		return fmt.Errorf("vacation %s..%s: %w", req.Start, req.End, generic.ErrHalfDayRange)
	}
	return nil
}

// =============================================================================
// ACCOUNTING
// =============================================================================

var halfDay = decimal.RequireFromString("0.5")

// DaysUsed counts the vacation days a request consumes: half a day for
// half-day types, otherwise the workdays (Mon-Fri) in the range.
func DaysUsed(req Request) generic.Amount {
	if req.Type.IsHalfDay() {
		if req.Start.IsWeekend() {
			return generic.NewAmountFromInt(0, generic.UnitDays)
		}
		return generic.Amount{Value: halfDay, Unit: generic.UnitDays}
	}
	n := 0
	for d := req.Start; d.BeforeOrEqual(req.End); d = d.AddDays(1) {
		if d.IsWorkday() {
			n++
		}
	}
	return generic.NewAmountFromInt(n, generic.UnitDays)
}

// DaysUsedInYear counts only the workdays of the request that fall in year.
func DaysUsedInYear(req Request, year int) generic.Amount {
	if req.Start.Year() == year && req.End.Year() == year {
		return DaysUsed(req)
	}
	clipped := req
	if clipped.Start.Year() < year {
		clipped.Start = generic.NewTimePointIn(year, time.January, 1, req.Start.Location())
	}
	if clipped.End.Year() > year {
		clipped.End = generic.NewTimePointIn(year, time.December, 31, req.End.Location())
	}
	if clipped.End.Before(clipped.Start) {
		return generic.NewAmountFromInt(0, generic.UnitDays)
	}
	return DaysUsed(clipped)
}

// Balance summarises an employee's vacation year.
type Balance struct {
	Year      int
	Annual    generic.Amount
	Approved  generic.Amount
	Pending   generic.Amount
	Remaining generic.Amount
}

// ComputeBalance subtracts approved days in year from the annual allowance.
// Pending days are reported but not subtracted.
func ComputeBalance(annualDays float64, requests []Request, year int) Balance {
	b := Balance{
		Year:     year,
		Annual:   generic.NewAmount(annualDays, generic.UnitDays),
		Approved: generic.NewAmountFromInt(0, generic.UnitDays),
		Pending:  generic.NewAmountFromInt(0, generic.UnitDays),
	}
	for _, r := range requests {
		switch r.Status {
		case StatusApproved:
			b.Approved = b.Approved.Add(DaysUsedInYear(r, year))
		case StatusPending:
			b.Pending = b.Pending.Add(DaysUsedInYear(r, year))
		}
	}
	b.Remaining = b.Annual.Sub(b.Approved)
	return b
}
