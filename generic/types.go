/*
Package generic provides the domain-agnostic building blocks shared by the
Chrono engines.

PURPOSE:
  Calendar days, date ranges and quantities are needed by the schedule
  resolver, the work-time diff engine, the pricing engine and vacation
  accounting. They live here so none of those packages depend on each other.

KEY CONCEPTS:
  - TimePoint: A calendar day in the reference location (time.go)
  - Period / DayFilter: Week, month and month-key ranges (period.go)
  - Amount: A decimal quantity with a unit (days, hours, EUR)

DESIGN PRINCIPLES:
  1. Precision: Money and fractional days use decimal.Decimal
  2. Purity: Nothing here holds state or performs I/O

SEE ALSO:
  - errors.go: Sentinel errors used by the collaborator layer
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays    Unit = "days"
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
	UnitEUR     Unit = "EUR"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

// Float returns the value as float64 for DTOs.
func (a Amount) Float() float64 {
	f, _ := a.Value.Float64()
	return f
}
