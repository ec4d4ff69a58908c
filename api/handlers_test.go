/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Punch recording through the manual button and NFC sink
- Dashboard diff summary and expected hours
- Profile validation
- Vacation submission, approval and balance
- Catalog, company features, quotes and registrations
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/pricing"
	"github.com/chrono/chrono-engine/store"
	"github.com/chrono/chrono-engine/worktime"
)

// Monday 2024-03-04, 18:00 in Berlin.
var testNow = time.Date(2024, time.March, 4, 17, 0, 0, 0, time.UTC)

type testServer struct {
	h      *Handler
	router http.Handler
	store  *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(st, pricing.DefaultCatalog(), generic.LoadLocation("Europe/Berlin"), logger)
	h.Now = func() time.Time { return testNow }
	return &testServer{h: h, router: NewRouter(h, RouterOptions{}), store: st}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func punchAt(t *testing.T, s *testServer, username, at string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/users/"+username+"/punches", map[string]string{"at": at})
}

// =============================================================================
// PUNCHES AND DIFFS
// =============================================================================

func TestRecordPunch_FullDayThenDiff(t *testing.T) {
	// GIVEN: A salaried user with the default 8h day
	s := newTestServer(t)

	// WHEN: Punching 08:00, 12:00, 12:30 and 17:00 Berlin time
	times := []string{
		"2024-03-04T08:00:00+01:00",
		"2024-03-04T12:00:00+01:00",
		"2024-03-04T12:30:00+01:00",
		"2024-03-04T17:00:00+01:00",
	}
	for i, at := range times {
		rec := punchAt(t, s, "anna", at)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		dto := decode[PunchDTO](t, rec)
		assert.Equal(t, i+1, dto.PunchOrder)
		assert.Equal(t, "2024-03-04", dto.Date)
	}

	// THEN: A fifth punch is rejected because the day is complete
	rec := punchAt(t, s, "anna", "2024-03-04T17:05:00+01:00")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// AND: The dashboard shows 8h30 worked against 8h expected
	rec = s.do(t, http.MethodGet, "/api/users/anna/diff?ref=2024-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[DiffSummaryDTO](t, rec)
	assert.Equal(t, 30, summary.Day.Minutes)
	assert.Equal(t, "+0h 30min", summary.Day.Label)
	assert.Equal(t, 30, summary.Week.Minutes)
	assert.Equal(t, 30, summary.Month.Minutes)
	assert.Equal(t, 30, summary.Total.Minutes)
	require.Len(t, summary.Months, 1)
	assert.Equal(t, "2024-03", summary.Months[0].Key)

	// AND: The punch log is filtered by date
	rec = s.do(t, http.MethodGet, "/api/users/anna/punches?from=2024-03-04&to=2024-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]PunchDTO](t, rec), 4)

	rec = s.do(t, http.MethodGet, "/api/users/anna/punches?from=2024-03-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]PunchDTO](t, rec))
}

func TestRecordPunch_DefaultsToNow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/users/anna/punches", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dto := decode[PunchDTO](t, rec)
	assert.Equal(t, "work_start", dto.Kind)
	assert.True(t, dto.StartTime.Equal(testNow))
}

func TestRecordPunch_DailyNoteDoesNotAdvanceOrder(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/users/anna/punches", map[string]string{"dailyNote": "dentist"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "daily_note", decode[PunchDTO](t, rec).Kind)

	rec = s.do(t, http.MethodPost, "/api/users/anna/punches", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, decode[PunchDTO](t, rec).PunchOrder)
}

func TestDiffSummary_HourlyIsZero(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/users/max/profile", map[string]any{"isHourly": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	punchAt(t, s, "max", "2024-03-04T08:00:00+01:00")

	rec = s.do(t, http.MethodGet, "/api/users/max/diff", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[DiffSummaryDTO](t, rec)
	assert.True(t, summary.Hourly)
	assert.Equal(t, "2024-03-04", summary.Reference)
	assert.Equal(t, 0, summary.Total.Minutes)
}

func TestDiffSummary_InvalidRef(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/users/anna/diff?ref=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpectedHours_RotatingSchedule(t *testing.T) {
	// GIVEN: A two-week rotation
	s := newTestServer(t)
	profile := `{
		"dailyWorkHours": 8,
		"scheduleCycle": 2,
		"weeklySchedule": [{"monday": 8}, {"monday": 4}]
	}`
	rec := s.do(t, http.MethodPut, "/api/users/ben/profile", profile)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN/THEN: Consecutive Mondays alternate
	rec = s.do(t, http.MethodGet, "/api/users/ben/expected?date=2020-01-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[ExpectedHoursDTO](t, rec)

	rec = s.do(t, http.MethodGet, "/api/users/ben/expected?date=2020-01-13", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[ExpectedHoursDTO](t, rec)

	assert.Equal(t, "monday", first.Weekday)
	assert.NotEqual(t, first.CycleIndex, second.CycleIndex)
	assert.ElementsMatch(t, []float64{8, 4}, []float64{first.Hours, second.Hours})
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfile_GetMissingAndInvalidPut(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/users/nobody/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPut, "/api/users/anna/profile", map[string]any{"dailyWorkHours": 30})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/users/anna/profile", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// VACATIONS
// =============================================================================

func TestVacation_SubmitApproveBalance(t *testing.T) {
	// GIVEN: A user with 25 vacation days
	s := newTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/users/anna/profile", map[string]any{"annualVacationDays": 25})
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: A Monday-Friday request is submitted and approved
	rec = s.do(t, http.MethodPost, "/api/users/anna/vacations", CreateVacationRequest{
		StartDate: "2024-07-01", EndDate: "2024-07-05", Type: "full",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[VacationDTO](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 5.0, created.Days)

	rec = s.do(t, http.MethodPost, "/api/vacations/"+created.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: The balance drops by five days
	rec = s.do(t, http.MethodGet, "/api/users/anna/vacations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[VacationListDTO](t, rec)
	require.Len(t, list.Requests, 1)
	assert.Equal(t, 2024, list.Balance.Year)
	assert.Equal(t, 5.0, list.Balance.Approved)
	assert.Equal(t, 20.0, list.Balance.Remaining)

	// AND: A decided request cannot be decided again
	rec = s.do(t, http.MethodPost, "/api/vacations/"+created.ID+"/reject", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVacation_Rejections(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]CreateVacationRequest{
		"half day range": {StartDate: "2024-07-08", EndDate: "2024-07-09", Type: "half_morning"},
		"reversed":       {StartDate: "2024-07-09", EndDate: "2024-07-08"},
		"bad date":       {StartDate: "July", EndDate: "2024-07-08"},
		"bad type":       {StartDate: "2024-07-08", EndDate: "2024-07-08", Type: "sabbatical"},
	}
	for name, body := range cases {
		rec := s.do(t, http.MethodPost, "/api/users/anna/vacations", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	rec := s.do(t, http.MethodPost, "/api/vacations/missing/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PRICING AND REGISTRATIONS
// =============================================================================

func TestQuote_ClampsEmployees(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/pricing/quote", QuoteRequest{
		Features: []string{"vacation"}, Employees: 10, BillingPeriod: "monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[QuoteDTO](t, rec)
	assert.Equal(t, 310.0, q.CalculatedPrice)
	assert.Equal(t, "per month", q.PeriodLabel)

	rec = s.do(t, http.MethodPost, "/api/pricing/quote", QuoteRequest{Employees: 500})
	require.Equal(t, http.StatusOK, rec.Code)
	q = decode[QuoteDTO](t, rec)
	assert.Equal(t, 200, q.Employees)
	assert.Equal(t, "monthly", q.BillingPeriod)
	assert.Equal(t, []string{}, q.Features)
}

func TestCompanyFeatures_SelectableAndFiltered(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/companies/acme/features", SetFeaturesRequest{
		Features: []string{"nfc", "bogus", "nfc"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[CompanyFeaturesDTO](t, rec)
	assert.Equal(t, []string{"nfc"}, dto.Enabled)

	rec = s.do(t, http.MethodGet, "/api/companies/acme/features", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto = decode[CompanyFeaturesDTO](t, rec)

	var keys []string
	for _, f := range dto.Selectable {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"vacation", "corrections", "pdfReports", "nfc"}, keys)
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	c := decode[CatalogDTO](t, rec)
	assert.Equal(t, "timeTracking", c.Base.Key)
	assert.True(t, c.Base.Required)
	assert.Len(t, c.Features, len(pricing.DefaultCatalog().Features))
}

func TestRegistration_EchoesQuoteIntoPayload(t *testing.T) {
	// GIVEN: An order form with an extra field the server does not model
	s := newTestServer(t)
	body := `{
		"companyName": "Acme",
		"email": "ops@acme.test",
		"phone": "+49 30 1234",
		"employees": 10,
		"features": ["vacation"],
		"billingPeriod": "monthly"
	}`

	// WHEN: It is submitted
	rec := s.do(t, http.MethodPost, "/api/registrations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RegistrationDTO](t, rec)

	// THEN: The stored payload holds the original fields and the breakdown
	assert.Equal(t, 310.0, created.Quote.CalculatedPrice)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(created.Payload, &payload))
	assert.Equal(t, "+49 30 1234", payload["phone"])
	quote, ok := payload["quote"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 310.0, quote["calculatedPrice"])

	// AND: It can be read back
	rec = s.do(t, http.MethodGet, "/api/registrations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[RegistrationDTO](t, rec)
	assert.Equal(t, created.Quote, got.Quote)
	assert.Equal(t, "Acme", got.CompanyName)
}

func TestRegistration_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/registrations", `{"email": "ops@acme.test"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/registrations", `{"companyName": "Acme", "email": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/registrations", `null`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/registrations", `{"companyName": "Acme", "email": "ops@acme.test", "employees": "many"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid registration", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/registrations", `{"companyName": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/registrations/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// NFC
// =============================================================================

func TestRecordCard_UsesBoundUser(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.h.RecordCard(ctx, "04:AA"), generic.ErrUnknownCard)

	rec := s.do(t, http.MethodPost, "/api/nfc/cards", BindCardRequest{UID: "04:AA", Username: "anna"})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, s.h.RecordCard(ctx, "04:AA"))
	recs, err := s.store.ListPunches(ctx, "anna", store.TimeRange{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, int(recs[0].PunchOrder))

	rec = s.do(t, http.MethodPost, "/api/nfc/cards", BindCardRequest{UID: " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// slowPunchStore widens the gap between listing a day and appending to it.
type slowPunchStore struct {
	store.Store
}

func (s slowPunchStore) ListPunches(ctx context.Context, username string, r store.TimeRange) ([]worktime.PunchRecord, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.ListPunches(ctx, username, r)
}

func TestRecordCard_ConcurrentWithButtonTakesNextOrder(t *testing.T) {
	// GIVEN: a card bound to anna and a store with a slow day listing
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.store.BindCard(ctx, "card-1", "anna"))
	s.h.Store = slowPunchStore{Store: s.store}

	// WHEN: the card and the button punch at the same time
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = s.h.RecordCard(ctx, "card-1")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = s.h.recordNextPunch(ctx, "anna", testNow)
	}()
	wg.Wait()

	// THEN: the two punches get distinct consecutive orders
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	recs, err := s.store.ListPunches(ctx, "anna", store.TimeRange{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	orders := []int{int(recs[0].PunchOrder), int(recs[1].PunchOrder)}
	assert.ElementsMatch(t, []int{1, 2}, orders)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
