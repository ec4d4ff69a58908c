/*
Package pricing computes the price breakdown shown in the registration funnel.

PURPOSE:
  A prospective customer picks add-ons, an employee count and a billing
  period. The engine returns an itemized breakdown; the same values are
  echoed into the registration submission, so the field set is a contract
  with that endpoint.

ALGORITHM:
  base      = basePrice * employees
  addOnPE   = sum(perEmployee add-on prices) * employees
  addOnFlat = sum(flat add-on prices)
  rate      = 15% if add-ons >= 5, 10% if >= 3, else 0 (add-ons only)
  discount  = (addOnPE + addOnFlat) * rate
  monthly   = base + addOnPE + addOnFlat - discount
  period    = monthly * 10 for yearly billing (two months free), else monthly
  first     = period + installation fee (250) + optional training (120)

  The per-employee figure shown in the UI subtracts the share of the
  discount that falls on per-employee add-ons, spread over the employees.

PRECISION:
  All arithmetic uses decimal.Decimal; identical inputs give identical
  outputs.

SEE ALSO:
  - catalog.go: Feature descriptors and visibility
  - api/dto.go: QuoteDTO, the wire form of Breakdown
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// BillingPeriod is "monthly" or "yearly".
type BillingPeriod string

const (
	Monthly BillingPeriod = "monthly"
	Yearly  BillingPeriod = "yearly"
)

// Valid reports whether p is a known billing period.
func (p BillingPeriod) Valid() bool { return p == Monthly || p == Yearly }

// Label is the period suffix shown next to totals.
func (p BillingPeriod) Label() string {
	if p == Yearly {
		return "per year"
	}
	return "per month"
}

const (
	MinEmployees = 1
	MaxEmployees = 200
)

var (
	InstallationFee     = decimal.NewFromInt(250)
	TrainingFee         = decimal.NewFromInt(120)
	YearlyBilledMonths  = decimal.NewFromInt(10)
	smallBundleDiscount = decimal.RequireFromString("0.10")
	largeBundleDiscount = decimal.RequireFromString("0.15")
)

// ClampEmployees bounds a requested head count to [1, 200].
func ClampEmployees(n int) int {
	if n < MinEmployees {
		return MinEmployees
	}
	if n > MaxEmployees {
		return MaxEmployees
	}
	return n
}

// DiscountRate is the bundle discount for a number of add-ons.
func DiscountRate(addOnCount int) decimal.Decimal {
	switch {
	case addOnCount >= 5:
		return largeBundleDiscount
	case addOnCount >= 3:
		return smallBundleDiscount
	default:
		return decimal.Zero
	}
}

// =============================================================================
// SELECTION & BREAKDOWN
// =============================================================================

// Selection is the input snapshot. Employees is expected to be clamped by
// the caller already.
type Selection struct {
	Features  []string
	Employees int
	Period    BillingPeriod
	Training  bool
}

// Breakdown is the itemized result.
type Breakdown struct {
	EffectivePerEmployeeRate decimal.Decimal
	BasePerEmployeeMonthly   decimal.Decimal
	AddOnPerEmployeeMonthly  decimal.Decimal
	FlatAddOnMonthly         decimal.Decimal
	AddOnTotalBeforeDiscount decimal.Decimal
	DiscountRate             decimal.Decimal
	DiscountValue            decimal.Decimal
	TotalPerPeriod           decimal.Decimal
	MonthlyEquivalent        decimal.Decimal
	InstallationFee          decimal.Decimal
	OptionalTraining         decimal.Decimal
	CalculatedPrice          decimal.Decimal
	AddOnCount               int
	Period                   BillingPeriod
	PeriodLabel              string
	Features                 []string
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Catalog Catalog
}

func NewEngine(catalog Catalog) *Engine {
	return &Engine{Catalog: catalog}
}

// ComputePrice prices a selection. Unknown keys, duplicates and the base
// feature key are ignored; any period other than yearly bills monthly.
func (e *Engine) ComputePrice(sel Selection) Breakdown {
	employees := decimal.NewFromInt(int64(sel.Employees))

	perEmployeeRate := decimal.Zero
	flatMonthly := decimal.Zero
	selected := e.Catalog.FilterKnown(sel.Features)
	for _, key := range selected {
		f, _ := e.Catalog.Lookup(key)
		switch f.PriceType {
		case Flat:
			flatMonthly = flatMonthly.Add(f.Price)
		default:
			perEmployeeRate = perEmployeeRate.Add(f.Price)
		}
	}

	baseMonthly := e.Catalog.Base.Price.Mul(employees)
	addOnPerEmployeeMonthly := perEmployeeRate.Mul(employees)
	addOnCount := len(selected)

	rate := DiscountRate(addOnCount)
	addOnTotal := addOnPerEmployeeMonthly.Add(flatMonthly)
	discountValue := addOnTotal.Mul(rate)

	discountShare := decimal.Zero
	if addOnTotal.IsPositive() {
		heads := sel.Employees
		if heads < 1 {
			heads = 1
		}
		discountShare = discountValue.
			Mul(addOnPerEmployeeMonthly.Div(addOnTotal)).
			Div(decimal.NewFromInt(int64(heads)))
	}
	effectiveRate := e.Catalog.Base.Price.Add(perEmployeeRate).Sub(discountShare)

	monthly := baseMonthly.Add(addOnTotal).Sub(discountValue)
	period := sel.Period
	if !period.Valid() {
		period = Monthly
	}
	totalPerPeriod := monthly
	if period == Yearly {
		totalPerPeriod = monthly.Mul(YearlyBilledMonths)
	}

	training := decimal.Zero
	if sel.Training {
		training = TrainingFee
	}

	return Breakdown{
		EffectivePerEmployeeRate: effectiveRate,
		BasePerEmployeeMonthly:   baseMonthly,
		AddOnPerEmployeeMonthly:  addOnPerEmployeeMonthly,
		FlatAddOnMonthly:         flatMonthly,
		AddOnTotalBeforeDiscount: addOnTotal,
		DiscountRate:             rate,
		DiscountValue:            discountValue,
		TotalPerPeriod:           totalPerPeriod,
		MonthlyEquivalent:        monthly,
		InstallationFee:          InstallationFee,
		OptionalTraining:         training,
		CalculatedPrice:          totalPerPeriod.Add(InstallationFee).Add(training),
		AddOnCount:               addOnCount,
		Period:                   period,
		PeriodLabel:              period.Label(),
		Features:                 selected,
	}
}
