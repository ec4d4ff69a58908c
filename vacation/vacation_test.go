package vacation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/vacation"
)

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func TestNewRequest_HalfDayMustBeSingleDay(t *testing.T) {
	// GIVEN: A half-day request spanning two days
	// THEN: It is rejected with ErrHalfDayRange
	_, err := vacation.NewRequest("anna", date(2025, time.March, 3), date(2025, time.March, 4), vacation.TypeHalfMorning, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrHalfDayRange)
	assert.True(t, generic.IsClientError(err))

	req, err := vacation.NewRequest("anna", date(2025, time.March, 3), date(2025, time.March, 3), vacation.TypeHalfAfternoon, "")
	require.NoError(t, err)
	assert.Equal(t, vacation.StatusPending, req.Status)
	assert.NotEmpty(t, req.ID)
}

func TestNewRequest_RejectsReversedRange(t *testing.T) {
	_, err := vacation.NewRequest("anna", date(2025, time.March, 5), date(2025, time.March, 3), vacation.TypeFull, "")
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestNewRequest_RejectsUnknownType(t *testing.T) {
	_, err := vacation.NewRequest("anna", date(2025, time.March, 3), date(2025, time.March, 3), "sabbatical", "")
	var fe *generic.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "type", fe.Field)
}

func TestNewRequest_DefaultsToFullDay(t *testing.T) {
	req, err := vacation.NewRequest("anna", date(2025, time.March, 3), date(2025, time.March, 7), "", "")
	require.NoError(t, err)
	assert.Equal(t, vacation.TypeFull, req.Type)
}

func TestDaysUsed_CountsWorkdaysOnly(t *testing.T) {
	// Friday 2025-03-07 .. Tuesday 2025-03-11 spans a weekend
	req := vacation.Request{Start: date(2025, time.March, 7), End: date(2025, time.March, 11), Type: vacation.TypeFull}
	assert.Equal(t, 3.0, vacation.DaysUsed(req).Float())

	half := vacation.Request{Start: date(2025, time.March, 7), End: date(2025, time.March, 7), Type: vacation.TypeHalfMorning}
	assert.Equal(t, 0.5, vacation.DaysUsed(half).Float())
}

func TestComputeBalance_SubtractsApprovedInYear(t *testing.T) {
	requests := []vacation.Request{
		{Start: date(2025, time.March, 3), End: date(2025, time.March, 7), Type: vacation.TypeFull, Status: vacation.StatusApproved},
		{Start: date(2025, time.April, 1), End: date(2025, time.April, 1), Type: vacation.TypeHalfMorning, Status: vacation.StatusApproved},
		{Start: date(2025, time.May, 5), End: date(2025, time.May, 6), Type: vacation.TypeFull, Status: vacation.StatusPending},
		{Start: date(2025, time.June, 2), End: date(2025, time.June, 6), Type: vacation.TypeFull, Status: vacation.StatusRejected},
		// Mon 2024-12-30 .. Fri 2025-01-03: 3 workdays fall into 2025
		{Start: date(2024, time.December, 30), End: date(2025, time.January, 3), Type: vacation.TypeFull, Status: vacation.StatusApproved},
	}

	b := vacation.ComputeBalance(30, requests, 2025)
	assert.Equal(t, 8.5, b.Approved.Float())
	assert.Equal(t, 2.0, b.Pending.Float())
	assert.Equal(t, 21.5, b.Remaining.Float())

	prev := vacation.ComputeBalance(30, requests, 2024)
	assert.Equal(t, 2.0, prev.Approved.Float())
}
