package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrono/chrono-engine/pricing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func newEngine() *pricing.Engine {
	return pricing.NewEngine(pricing.DefaultCatalog())
}

// =============================================================================
// BREAKDOWN TESTS
// =============================================================================

func TestComputePrice_SingleAddOnExample(t *testing.T) {
	// GIVEN: 10 employees, base 5/employee, one per-employee add-on at 1
	// THEN: 50 + 10 = 60 monthly, first payment 60 + 250 = 310
	b := newEngine().ComputePrice(pricing.Selection{
		Features:  []string{"vacation"},
		Employees: 10,
		Period:    pricing.Monthly,
	})

	assertDecimal(t, "50", b.BasePerEmployeeMonthly)
	assertDecimal(t, "10", b.AddOnPerEmployeeMonthly)
	assert.Equal(t, 1, b.AddOnCount)
	assertDecimal(t, "0", b.DiscountRate)
	assertDecimal(t, "60", b.MonthlyEquivalent)
	assertDecimal(t, "60", b.TotalPerPeriod)
	assertDecimal(t, "250", b.InstallationFee)
	assertDecimal(t, "0", b.OptionalTraining)
	assertDecimal(t, "310", b.CalculatedPrice)
	assertDecimal(t, "6", b.EffectivePerEmployeeRate)
	assert.Equal(t, "per month", b.PeriodLabel)
}

func TestComputePrice_DiscountTierBoundaries(t *testing.T) {
	keys := []string{"vacation", "corrections", "nfc", "projects", "payroll", "pdfReports"}
	cases := []struct {
		count int
		rate  string
	}{
		{0, "0"}, {1, "0"}, {2, "0"}, {3, "0.10"}, {4, "0.10"}, {5, "0.15"}, {6, "0.15"},
	}
	e := newEngine()
	for _, tc := range cases {
		b := e.ComputePrice(pricing.Selection{Features: keys[:tc.count], Employees: 10, Period: pricing.Monthly})
		assert.Equal(t, tc.count, b.AddOnCount)
		assertDecimal(t, tc.rate, b.DiscountRate)
	}
}

func TestComputePrice_DiscountAppliesToAddOnsOnly(t *testing.T) {
	// GIVEN: 3 per-employee add-ons (1 + 0.5 + 1.5) and 4 employees
	b := newEngine().ComputePrice(pricing.Selection{
		Features:  []string{"vacation", "corrections", "nfc"},
		Employees: 4,
		Period:    pricing.Monthly,
	})

	assertDecimal(t, "20", b.BasePerEmployeeMonthly)
	assertDecimal(t, "12", b.AddOnPerEmployeeMonthly)
	assertDecimal(t, "12", b.AddOnTotalBeforeDiscount)
	assertDecimal(t, "1.2", b.DiscountValue)
	assertDecimal(t, "30.8", b.MonthlyEquivalent)
	// 5 + 3 - 1.2/4
	assertDecimal(t, "7.7", b.EffectivePerEmployeeRate)
}

func TestComputePrice_DiscountShareSplitsFlatAndPerEmployee(t *testing.T) {
	// GIVEN: 2 per-employee (1 + 1) and 1 flat (14.9) add-on, 10 employees
	b := newEngine().ComputePrice(pricing.Selection{
		Features:  []string{"vacation", "projects", "customers"},
		Employees: 10,
		Period:    pricing.Monthly,
	})

	assertDecimal(t, "20", b.AddOnPerEmployeeMonthly)
	assertDecimal(t, "14.9", b.FlatAddOnMonthly)
	assertDecimal(t, "34.9", b.AddOnTotalBeforeDiscount)
	assertDecimal(t, "3.49", b.DiscountValue)
	// 50 + 34.9 - 3.49
	assertDecimal(t, "81.41", b.MonthlyEquivalent)
	// per-employee share of the discount: 3.49 * 20/34.9 / 10 = 0.2
	assert.True(t, b.EffectivePerEmployeeRate.Round(6).Equal(decimal.RequireFromString("6.8")),
		"got %s", b.EffectivePerEmployeeRate)
}

func TestComputePrice_FlatOnlyKeepsBaseRate(t *testing.T) {
	b := newEngine().ComputePrice(pricing.Selection{Features: []string{"pdfReports"}, Employees: 3, Period: pricing.Monthly})

	assertDecimal(t, "5", b.EffectivePerEmployeeRate)
	assertDecimal(t, "24.9", b.MonthlyEquivalent)
}

func TestComputePrice_NoAddOnsGuardsDivision(t *testing.T) {
	b := newEngine().ComputePrice(pricing.Selection{Employees: 1, Period: pricing.Monthly})

	assert.Equal(t, 0, b.AddOnCount)
	assertDecimal(t, "5", b.EffectivePerEmployeeRate)
	assertDecimal(t, "255", b.CalculatedPrice)
}

func TestComputePrice_YearlyIsTenMonths(t *testing.T) {
	e := newEngine()
	sels := [][]string{
		nil,
		{"vacation"},
		{"vacation", "corrections", "customers"},
		{"vacation", "corrections", "nfc", "projects", "payroll", "customers"},
	}
	for _, f := range sels {
		monthly := e.ComputePrice(pricing.Selection{Features: f, Employees: 37, Period: pricing.Monthly})
		yearly := e.ComputePrice(pricing.Selection{Features: f, Employees: 37, Period: pricing.Yearly})

		assert.True(t, yearly.TotalPerPeriod.Equal(monthly.TotalPerPeriod.Mul(decimal.NewFromInt(10))), "features %v", f)
		assert.True(t, yearly.MonthlyEquivalent.Equal(monthly.MonthlyEquivalent))
		assert.Equal(t, "per year", yearly.PeriodLabel)
	}
}

func TestComputePrice_TrainingAddsFixedFee(t *testing.T) {
	b := newEngine().ComputePrice(pricing.Selection{Features: []string{"vacation"}, Employees: 10, Period: pricing.Yearly, Training: true})

	assertDecimal(t, "120", b.OptionalTraining)
	// 60 * 10 + 250 + 120
	assertDecimal(t, "970", b.CalculatedPrice)
}

func TestComputePrice_IgnoresUnknownDuplicateAndBaseKeys(t *testing.T) {
	b := newEngine().ComputePrice(pricing.Selection{
		Features:  []string{"vacation", "vacation", "timeTracking", "teleportation"},
		Employees: 10,
		Period:    "weekly",
	})

	assert.Equal(t, 1, b.AddOnCount)
	assert.Equal(t, []string{"vacation"}, b.Features)
	assert.Equal(t, pricing.Monthly, b.Period)
	assertDecimal(t, "310", b.CalculatedPrice)
}

func TestComputePrice_Idempotent(t *testing.T) {
	e := newEngine()
	sel := pricing.Selection{Features: []string{"vacation", "nfc", "customers", "payroll"}, Employees: 13, Period: pricing.Yearly, Training: true}

	first := e.ComputePrice(sel)
	second := e.ComputePrice(sel)
	assert.Equal(t, first, second)
}

func TestClampEmployees(t *testing.T) {
	assert.Equal(t, 1, pricing.ClampEmployees(0))
	assert.Equal(t, 1, pricing.ClampEmployees(-4))
	assert.Equal(t, 57, pricing.ClampEmployees(57))
	assert.Equal(t, 200, pricing.ClampEmployees(999))
}

// =============================================================================
// VISIBILITY TESTS
// =============================================================================

func TestSelectable_AlwaysAvailablePlusEnabled(t *testing.T) {
	c := pricing.DefaultCatalog()

	base := c.Selectable(nil)
	var keys []string
	for _, f := range base {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"vacation", "corrections", "pdfReports"}, keys)

	withNFC := c.Selectable([]string{"nfc", "bogus", "timeTracking"})
	keys = keys[:0]
	for _, f := range withNFC {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"vacation", "corrections", "pdfReports", "nfc"}, keys)
}

func TestFilterKnown_DropsUnknownKeys(t *testing.T) {
	c := pricing.DefaultCatalog()
	assert.Equal(t, []string{"nfc", "payroll"}, c.FilterKnown([]string{"nfc", "x", "payroll", "nfc"}))
	assert.Empty(t, c.FilterKnown([]string{"x"}))
}

func TestDefaultCatalog_SingleRequiredBase(t *testing.T) {
	c := pricing.DefaultCatalog()
	require.True(t, c.Base.Required)
	assert.True(t, c.Base.AlwaysAvailable)
	assert.Equal(t, pricing.PerEmployee, c.Base.PriceType)
	for _, f := range c.Features {
		assert.False(t, f.Required, f.Key)
	}
}
