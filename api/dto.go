/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Money and day counts
  are decimals inside the engines and plain JSON numbers on the wire.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Punches:       PunchDTO, RecordPunchRequest
  Diffs:         DiffSummaryDTO, DiffDTO, ExpectedHoursDTO
  Vacations:     VacationDTO, VacationListDTO, CreateVacationRequest
  Pricing:       FeatureDTO, CatalogDTO, CompanyFeaturesDTO, QuoteRequest, QuoteDTO
  Registrations: RegistrationRequest, RegistrationDTO
  NFC:           BindCardRequest

VALIDATION:
  Validation is done in handlers and domain packages, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chrono/chrono-engine/pricing"
	"github.com/chrono/chrono-engine/vacation"
	"github.com/chrono/chrono-engine/worktime"
)

// =============================================================================
// PUNCHES
// =============================================================================

type PunchDTO struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	PunchOrder int        `json:"punchOrder"`
	Kind       string     `json:"kind"`
	Date       string     `json:"date"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	BreakStart string     `json:"breakStart,omitempty"`
	BreakEnd   string     `json:"breakEnd,omitempty"`
	DailyNote  string     `json:"dailyNote,omitempty"`
}

// RecordPunchRequest is the manual punch button. At defaults to now; a
// non-empty DailyNote records a note instead of a clock event.
type RecordPunchRequest struct {
	At        *time.Time `json:"at,omitempty"`
	DailyNote string     `json:"dailyNote,omitempty"`
}

func toPunchDTO(rec worktime.PunchRecord, loc *time.Location) PunchDTO {
	start := rec.StartTime.In(loc)
	return PunchDTO{
		ID:         rec.ID,
		Username:   rec.Username,
		PunchOrder: int(rec.PunchOrder),
		Kind:       rec.PunchOrder.String(),
		Date:       start.Format("2006-01-02"),
		StartTime:  start,
		EndTime:    rec.EndTime,
		BreakStart: rec.BreakStart,
		BreakEnd:   rec.BreakEnd,
		DailyNote:  rec.DailyNote,
	}
}

// =============================================================================
// DIFFS
// =============================================================================

// DiffDTO is a signed minute count with its display label.
type DiffDTO struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

type MonthDiffDTO struct {
	Key     string `json:"key"`
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

type DiffSummaryDTO struct {
	Username  string         `json:"username"`
	Reference string         `json:"reference"`
	Hourly    bool           `json:"hourly"`
	Day       DiffDTO        `json:"day"`
	Week      DiffDTO        `json:"week"`
	Month     DiffDTO        `json:"month"`
	Total     DiffDTO        `json:"total"`
	Months    []MonthDiffDTO `json:"months"`
}

type ExpectedHoursDTO struct {
	Username   string  `json:"username"`
	Date       string  `json:"date"`
	Weekday    string  `json:"weekday"`
	Hours      float64 `json:"hours"`
	CycleIndex int     `json:"cycleIndex"`
}

func diffDTO(minutes int, labels worktime.Labels) DiffDTO {
	return DiffDTO{Minutes: minutes, Label: worktime.FormatDiff(minutes, labels)}
}

func toDiffSummaryDTO(username string, hourly bool, s worktime.Summary, labels worktime.Labels) DiffSummaryDTO {
	months := make([]MonthDiffDTO, len(s.Months))
	for i, m := range s.Months {
		months[i] = MonthDiffDTO{Key: m.Key, Minutes: m.Minutes, Label: worktime.FormatDiff(m.Minutes, labels)}
	}
	return DiffSummaryDTO{
		Username:  username,
		Reference: s.Reference.String(),
		Hourly:    hourly,
		Day:       diffDTO(s.Day, labels),
		Week:      diffDTO(s.Week, labels),
		Month:     diffDTO(s.Month, labels),
		Total:     diffDTO(s.Total, labels),
		Months:    months,
	}
}

// =============================================================================
// VACATIONS
// =============================================================================

type CreateVacationRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Type      string `json:"type"`
	Reason    string `json:"reason,omitempty"`
}

type VacationDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Days      float64   `json:"days"`
	CreatedAt time.Time `json:"createdAt"`
}

type VacationBalanceDTO struct {
	Year      int     `json:"year"`
	Annual    float64 `json:"annual"`
	Approved  float64 `json:"approved"`
	Pending   float64 `json:"pending"`
	Remaining float64 `json:"remaining"`
}

type VacationListDTO struct {
	Requests []VacationDTO      `json:"requests"`
	Balance  VacationBalanceDTO `json:"balance"`
}

func toVacationDTO(req vacation.Request) VacationDTO {
	return VacationDTO{
		ID:        req.ID,
		Username:  req.Username,
		StartDate: req.Start.String(),
		EndDate:   req.End.String(),
		Type:      string(req.Type),
		Status:    string(req.Status),
		Reason:    req.Reason,
		Days:      vacation.DaysUsed(req).Float(),
		CreatedAt: req.CreatedAt,
	}
}

func toVacationBalanceDTO(b vacation.Balance) VacationBalanceDTO {
	return VacationBalanceDTO{
		Year:      b.Year,
		Annual:    b.Annual.Float(),
		Approved:  b.Approved.Float(),
		Pending:   b.Pending.Float(),
		Remaining: b.Remaining.Float(),
	}
}

// =============================================================================
// PRICING
// =============================================================================

type FeatureDTO struct {
	Key             string  `json:"key"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	PriceType       string  `json:"priceType"`
	Required        bool    `json:"required"`
	AlwaysAvailable bool    `json:"alwaysAvailable"`
}

type CatalogDTO struct {
	Base     FeatureDTO   `json:"base"`
	Features []FeatureDTO `json:"features"`
}

type CompanyFeaturesDTO struct {
	CompanyID  string       `json:"companyId"`
	Enabled    []string     `json:"enabled"`
	Selectable []FeatureDTO `json:"selectable"`
}

type SetFeaturesRequest struct {
	Features []string `json:"features"`
}

type QuoteRequest struct {
	Features      []string `json:"features"`
	Employees     int      `json:"employees"`
	BillingPeriod string   `json:"billingPeriod"`
	Training      bool     `json:"training"`
}

// QuoteDTO is the itemized price shown next to the order form.
type QuoteDTO struct {
	Employees                int      `json:"employees"`
	Features                 []string `json:"features"`
	AddOnCount               int      `json:"addOnCount"`
	BillingPeriod            string   `json:"billingPeriod"`
	PeriodLabel              string   `json:"periodLabel"`
	EffectivePerEmployeeRate float64  `json:"effectivePerEmployeeRate"`
	BasePerEmployeeMonthly   float64  `json:"basePerEmployeeMonthly"`
	AddOnPerEmployeeMonthly  float64  `json:"addOnPerEmployeeMonthly"`
	FlatAddOnMonthly         float64  `json:"flatAddOnMonthly"`
	AddOnTotalBeforeDiscount float64  `json:"addOnTotalBeforeDiscount"`
	DiscountRate             float64  `json:"discountRate"`
	DiscountValue            float64  `json:"discountValue"`
	TotalPerPeriod           float64  `json:"totalPerPeriod"`
	MonthlyEquivalent        float64  `json:"monthlyEquivalent"`
	InstallationFee          float64  `json:"installationFee"`
	OptionalTraining         float64  `json:"optionalTraining"`
	CalculatedPrice          float64  `json:"calculatedPrice"`
}

func toFeatureDTO(f pricing.FeatureDescriptor) FeatureDTO {
	return FeatureDTO{
		Key:             f.Key,
		Name:            f.Name,
		Description:     f.Description,
		Price:           money(f.Price),
		PriceType:       string(f.PriceType),
		Required:        f.Required,
		AlwaysAvailable: f.AlwaysAvailable,
	}
}

func toFeatureDTOs(fs []pricing.FeatureDescriptor) []FeatureDTO {
	out := make([]FeatureDTO, len(fs))
	for i, f := range fs {
		out[i] = toFeatureDTO(f)
	}
	return out
}

func toQuoteDTO(employees int, b pricing.Breakdown) QuoteDTO {
	features := b.Features
	if features == nil {
		features = []string{}
	}
	return QuoteDTO{
		Employees:                employees,
		Features:                 features,
		AddOnCount:               b.AddOnCount,
		BillingPeriod:            string(b.Period),
		PeriodLabel:              b.PeriodLabel,
		EffectivePerEmployeeRate: money(b.EffectivePerEmployeeRate),
		BasePerEmployeeMonthly:   money(b.BasePerEmployeeMonthly),
		AddOnPerEmployeeMonthly:  money(b.AddOnPerEmployeeMonthly),
		FlatAddOnMonthly:         money(b.FlatAddOnMonthly),
		AddOnTotalBeforeDiscount: money(b.AddOnTotalBeforeDiscount),
		DiscountRate:             b.DiscountRate.InexactFloat64(),
		DiscountValue:            money(b.DiscountValue),
		TotalPerPeriod:           money(b.TotalPerPeriod),
		MonthlyEquivalent:        money(b.MonthlyEquivalent),
		InstallationFee:          money(b.InstallationFee),
		OptionalTraining:         money(b.OptionalTraining),
		CalculatedPrice:          money(b.CalculatedPrice),
	}
}

// money rounds to cents for display.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// =============================================================================
// REGISTRATIONS
// =============================================================================

// RegistrationRequest is the order form. Unknown fields are kept in the
// stored payload.
type RegistrationRequest struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	QuoteRequest
}

type RegistrationDTO struct {
	ID          string          `json:"id"`
	CompanyName string          `json:"companyName"`
	Email       string          `json:"email"`
	CreatedAt   time.Time       `json:"createdAt"`
	Quote       QuoteDTO        `json:"quote"`
	Payload     json.RawMessage `json:"payload"`
}

// =============================================================================
// NFC
// =============================================================================

type BindCardRequest struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
