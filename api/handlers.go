/*
handlers.go - HTTP API handlers for the time tracking front end

PURPOSE:
  Exposes the work-time and pricing engines via REST API. Handlers load
  snapshots from the store, run the pure engines and serialize the result.

ENDPOINTS:
  Users:
    GET    /api/users/{username}/profile     Schedule profile
    PUT    /api/users/{username}/profile     Replace schedule profile
    GET    /api/users/{username}/punches     Punch log (?from=&to= dates)
    POST   /api/users/{username}/punches     Manual punch button
    GET    /api/users/{username}/expected    Expected hours (?date=)
    GET    /api/users/{username}/diff        Dashboard diffs (?ref=)
    GET    /api/users/{username}/vacations   Requests and balance (?year=)
    POST   /api/users/{username}/vacations   Submit request

  Vacations:
    POST   /api/vacations/{id}/approve
    POST   /api/vacations/{id}/reject

  NFC:
    POST   /api/nfc/cards                    Bind card uid to user

  Pricing:
    GET    /api/catalog                      Feature catalog
    GET    /api/companies/{id}/features      Selectable features
    PUT    /api/companies/{id}/features      Replace enabled add-ons
    POST   /api/pricing/quote                Live price breakdown

  Registrations:
    POST   /api/registrations                Submit order form
    GET    /api/registrations/{id}

ARCHITECTURE:
  Handler struct holds all dependencies explicitly (store, engines, clock,
  logger). There is no package-level mutable state.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, complete day, unknown card
  - 404: Resource not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chrono/chrono-engine/factory"
	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/pricing"
	"github.com/chrono/chrono-engine/schedule"
	"github.com/chrono/chrono-engine/store"
	"github.com/chrono/chrono-engine/vacation"
	"github.com/chrono/chrono-engine/worktime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    store.Store
	WorkTime *worktime.Engine
	Pricing  *pricing.Engine
	Location *time.Location
	Labels   worktime.Labels
	Now      func() time.Time
	Logger   *slog.Logger

	// punchLocks holds one *sync.Mutex per username.
	punchLocks sync.Map
}

// NewHandler wires a handler for the given store and catalog. Days are
// evaluated in loc.
func NewHandler(st store.Store, catalog pricing.Catalog, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = generic.LoadLocation(generic.DefaultLocationName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:    st,
		WorkTime: worktime.NewEngine(loc),
		Pricing:  pricing.NewEngine(catalog),
		Location: loc,
		Labels:   worktime.DefaultLabels,
		Now:      time.Now,
		Logger:   logger,
	}
}

func (h *Handler) today() generic.TimePoint {
	return generic.DateOf(h.Now(), h.Location)
}

// profileOrDefault returns the stored profile, or a salaried 8h profile for
// users that never saved one.
func (h *Handler) profileOrDefault(ctx context.Context, username string) (schedule.Profile, error) {
	p, err := h.Store.GetProfile(ctx, username)
	if generic.IsNotFound(err) {
		return schedule.Profile{Username: username, DailyWorkHours: 8}, nil
	}
	return p, err
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// GetProfile returns a user's schedule profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	p, err := h.Store.GetProfile(r.Context(), username)
	if err != nil {
		h.handleError(w, "Failed to get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutProfile validates and stores a profile. The username in the path wins
// over the body.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var p schedule.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	p.Username = username

	p, err := factory.NormalizeProfile(p)
	if err != nil {
		h.handleError(w, "Invalid profile", err)
		return
	}
	if err := h.Store.SaveProfile(r.Context(), p); err != nil {
		h.handleError(w, "Failed to save profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// ListPunches returns a user's punches between the from and to dates
// (inclusive, both optional).
func (h *Handler) ListPunches(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var rng store.TimeRange
	if s := r.URL.Query().Get("from"); s != "" {
		from, err := generic.ParseDate(s, h.Location)
		if err != nil {
			h.handleError(w, "Invalid from date", err)
			return
		}
		rng.From = from.Time
	}
	if s := r.URL.Query().Get("to"); s != "" {
		to, err := generic.ParseDate(s, h.Location)
		if err != nil {
			h.handleError(w, "Invalid to date", err)
			return
		}
		rng.To = to.AddDays(1).Time
	}

	recs, err := h.Store.ListPunches(r.Context(), username, rng)
	if err != nil {
		h.handleError(w, "Failed to list punches", err)
		return
	}

	dtos := make([]PunchDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toPunchDTO(rec, h.Location)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPunch is the manual punch button.
func (h *Handler) RecordPunch(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req RecordPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	at := h.Now()
	if req.At != nil {
		at = *req.At
	}

	var (
		rec worktime.PunchRecord
		err error
	)
	if strings.TrimSpace(req.DailyNote) != "" {
		rec, err = h.recordNote(r.Context(), username, at, req.DailyNote)
	} else {
		rec, err = h.recordNextPunch(r.Context(), username, at)
	}
	if err != nil {
		h.handleError(w, "Failed to record punch", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPunchDTO(rec, h.Location))
}

// recordNextPunch appends the next punch of the day containing at. Both the
// button and NFC scans go through here, so listing the day and appending the
// next order run under the user's lock.
func (h *Handler) recordNextPunch(ctx context.Context, username string, at time.Time) (worktime.PunchRecord, error) {
	unlock := h.lockPunches(username)
	defer unlock()

	day := generic.DateOf(at, h.Location)
	dayRecords, err := h.Store.ListPunches(ctx, username, store.TimeRange{
		From: day.Time,
		To:   day.AddDays(1).Time,
	})
	if err != nil {
		return worktime.PunchRecord{}, err
	}

	order, err := worktime.NextPunchOrder(dayRecords)
	if err != nil {
		return worktime.PunchRecord{}, fmt.Errorf("%s on %s: %w", username, day, err)
	}

	rec := worktime.NewPunch(username, order, at, h.Location)
	if err := h.Store.AppendPunch(ctx, rec); err != nil {
		return worktime.PunchRecord{}, err
	}
	h.Logger.Info("punch recorded", "username", username, "order", order.String(), "date", day.String())
	return rec, nil
}

func (h *Handler) lockPunches(username string) func() {
	mu, _ := h.punchLocks.LoadOrStore(username, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (h *Handler) recordNote(ctx context.Context, username string, at time.Time, note string) (worktime.PunchRecord, error) {
	rec := worktime.NewPunch(username, worktime.OrderDailyNote, at, h.Location)
	rec.DailyNote = strings.TrimSpace(note)
	if err := h.Store.AppendPunch(ctx, rec); err != nil {
		return worktime.PunchRecord{}, err
	}
	return rec, nil
}

// RecordCard is the NFC poller's sink: it resolves the card owner and
// records their next punch at the current time.
func (h *Handler) RecordCard(ctx context.Context, uid string) error {
	username, err := h.Store.LookupCard(ctx, uid)
	if err != nil {
		return fmt.Errorf("card %s: %w", uid, err)
	}
	_, err = h.recordNextPunch(ctx, username, h.Now())
	return err
}

// =============================================================================
// DIFF HANDLERS
// =============================================================================

// GetExpectedHours returns the scheduled hours for a date (default today).
func (h *Handler) GetExpectedHours(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	date, err := h.dateParam(r, "date")
	if err != nil {
		h.handleError(w, "Invalid date", err)
		return
	}
	p, err := h.profileOrDefault(r.Context(), username)
	if err != nil {
		h.handleError(w, "Failed to get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, ExpectedHoursDTO{
		Username:   username,
		Date:       date.String(),
		Weekday:    date.WeekdayName(),
		Hours:      h.WorkTime.ExpectedHours(date, p),
		CycleIndex: h.WorkTime.Resolver.CycleIndex(date, p.ScheduleCycle),
	})
}

// GetDiffSummary returns the day, week, month, total and per-month diffs
// relative to ref (default today).
func (h *Handler) GetDiffSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	ref, err := h.dateParam(r, "ref")
	if err != nil {
		h.handleError(w, "Invalid reference date", err)
		return
	}
	p, err := h.profileOrDefault(ctx, username)
	if err != nil {
		h.handleError(w, "Failed to get profile", err)
		return
	}
	recs, err := h.Store.ListPunches(ctx, username, store.TimeRange{})
	if err != nil {
		h.handleError(w, "Failed to list punches", err)
		return
	}

	summary := h.WorkTime.Summarize(recs, p, ref)
	writeJSON(w, http.StatusOK, toDiffSummaryDTO(username, p.IsHourly, summary, h.Labels))
}

func (h *Handler) dateParam(r *http.Request, name string) (generic.TimePoint, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return h.today(), nil
	}
	return generic.ParseDate(s, h.Location)
}

// =============================================================================
// VACATION HANDLERS
// =============================================================================

// ListVacations returns a user's requests and the balance for ?year=
// (default the current year).
func (h *Handler) ListVacations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	year := h.today().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	p, err := h.profileOrDefault(ctx, username)
	if err != nil {
		h.handleError(w, "Failed to get profile", err)
		return
	}
	reqs, err := h.Store.ListVacations(ctx, username)
	if err != nil {
		h.handleError(w, "Failed to list vacations", err)
		return
	}

	dtos := make([]VacationDTO, len(reqs))
	for i, req := range reqs {
		dtos[i] = toVacationDTO(req)
	}
	balance := vacation.ComputeBalance(p.AnnualVacationDays, reqs, year)
	writeJSON(w, http.StatusOK, VacationListDTO{Requests: dtos, Balance: toVacationBalanceDTO(balance)})
}

// CreateVacation submits a pending request.
func (h *Handler) CreateVacation(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var body CreateVacationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	start, err := generic.ParseDate(body.StartDate, time.UTC)
	if err != nil {
		h.handleError(w, "Invalid startDate", err)
		return
	}
	end, err := generic.ParseDate(body.EndDate, time.UTC)
	if err != nil {
		h.handleError(w, "Invalid endDate", err)
		return
	}

	req, err := vacation.NewRequest(username, start, end, vacation.Type(body.Type), body.Reason)
	if err != nil {
		h.handleError(w, "Invalid vacation request", err)
		return
	}
	if err := h.Store.SaveVacation(r.Context(), req); err != nil {
		h.handleError(w, "Failed to save vacation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVacationDTO(req))
}

// ApproveVacation marks a request approved.
func (h *Handler) ApproveVacation(w http.ResponseWriter, r *http.Request) {
	h.setVacationStatus(w, r, vacation.StatusApproved)
}

// RejectVacation marks a request rejected.
func (h *Handler) RejectVacation(w http.ResponseWriter, r *http.Request) {
	h.setVacationStatus(w, r, vacation.StatusRejected)
}

func (h *Handler) setVacationStatus(w http.ResponseWriter, r *http.Request, status vacation.Status) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	req, err := h.Store.GetVacation(ctx, id)
	if err != nil {
		h.handleError(w, "Failed to get vacation", err)
		return
	}
	if req.Status != vacation.StatusPending {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "Request already decided",
			Code:  "conflict",
			Details: map[string]string{
				"status": string(req.Status),
			},
		})
		return
	}
	if err := h.Store.UpdateVacationStatus(ctx, id, status); err != nil {
		h.handleError(w, "Failed to update vacation", err)
		return
	}
	req.Status = status
	writeJSON(w, http.StatusOK, toVacationDTO(req))
}

// =============================================================================
// NFC HANDLERS
// =============================================================================

// BindCard assigns a card uid to a user.
func (h *Handler) BindCard(w http.ResponseWriter, r *http.Request) {
	var req BindCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	req.Username = strings.TrimSpace(req.Username)
	if req.UID == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "uid and username are required", nil)
		return
	}
	if err := h.Store.BindCard(r.Context(), req.UID, req.Username); err != nil {
		h.handleError(w, "Failed to bind card", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// PRICING HANDLERS
// =============================================================================

// GetCatalog returns the base feature and all add-ons.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c := h.Pricing.Catalog
	writeJSON(w, http.StatusOK, CatalogDTO{
		Base:     toFeatureDTO(c.Base),
		Features: toFeatureDTOs(c.Features),
	})
}

// GetCompanyFeatures returns the add-ons a company may select: those always
// available plus those it was granted.
func (h *Handler) GetCompanyFeatures(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")

	keys, err := h.Store.EnabledFeatures(r.Context(), companyID)
	if err != nil {
		h.handleError(w, "Failed to get features", err)
		return
	}
	h.writeCompanyFeatures(w, companyID, keys)
}

// PutCompanyFeatures replaces a company's granted add-ons. Unknown keys are
// dropped before they are stored.
func (h *Handler) PutCompanyFeatures(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")

	var req SetFeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	keys := h.Pricing.Catalog.FilterKnown(req.Features)
	if err := h.Store.SetEnabledFeatures(r.Context(), companyID, keys); err != nil {
		h.handleError(w, "Failed to save features", err)
		return
	}
	h.writeCompanyFeatures(w, companyID, keys)
}

func (h *Handler) writeCompanyFeatures(w http.ResponseWriter, companyID string, keys []string) {
	enabled := h.Pricing.Catalog.FilterKnown(keys)
	if enabled == nil {
		enabled = []string{}
	}
	writeJSON(w, http.StatusOK, CompanyFeaturesDTO{
		CompanyID:  companyID,
		Enabled:    enabled,
		Selectable: toFeatureDTOs(h.Pricing.Catalog.Selectable(keys)),
	})
}

// Quote prices a selection.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	writeJSON(w, http.StatusOK, h.quote(req))
}

func (h *Handler) quote(req QuoteRequest) QuoteDTO {
	employees := pricing.ClampEmployees(req.Employees)
	b := h.Pricing.ComputePrice(pricing.Selection{
		Features:  req.Features,
		Employees: employees,
		Period:    pricing.BillingPeriod(req.BillingPeriod),
		Training:  req.Training,
	})
	return toQuoteDTO(employees, b)
}

// =============================================================================
// REGISTRATION HANDLERS
// =============================================================================

// CreateRegistration prices the submitted order and stores the submission
// with the breakdown echoed in as "quote".
func (h *Handler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	var req RegistrationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registration", err)
		return
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Email = strings.TrimSpace(req.Email)
	if req.CompanyName == "" {
		h.handleError(w, "Invalid registration", &generic.FieldError{Field: "companyName", Message: "required"})
		return
	}
	if !strings.Contains(req.Email, "@") {
		h.handleError(w, "Invalid registration", &generic.FieldError{Field: "email", Message: "must be an email address"})
		return
	}

	q := h.quote(req.QuoteRequest)
	quoteJSON, err := json.Marshal(q)
	if err != nil {
		h.handleError(w, "Failed to encode quote", err)
		return
	}
	raw["quote"] = quoteJSON
	payload, err := json.Marshal(raw)
	if err != nil {
		h.handleError(w, "Failed to encode registration", err)
		return
	}

	reg := store.Registration{
		ID:          uuid.New().String(),
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Payload:     payload,
		CreatedAt:   h.Now().UTC(),
	}
	if err := h.Store.SaveRegistration(r.Context(), reg); err != nil {
		h.handleError(w, "Failed to save registration", err)
		return
	}
	h.Logger.Info("registration received", "id", reg.ID, "company", reg.CompanyName, "calculated_price", q.CalculatedPrice)
	writeJSON(w, http.StatusCreated, RegistrationDTO{
		ID:          reg.ID,
		CompanyName: reg.CompanyName,
		Email:       reg.Email,
		CreatedAt:   reg.CreatedAt,
		Quote:       q,
		Payload:     reg.Payload,
	})
}

// GetRegistration returns a stored submission.
func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reg, err := h.Store.GetRegistration(r.Context(), id)
	if err != nil {
		h.handleError(w, "Failed to get registration", err)
		return
	}

	var echoed struct {
		Quote QuoteDTO `json:"quote"`
	}
	if err := json.Unmarshal(reg.Payload, &echoed); err != nil {
		h.handleError(w, "Corrupt registration payload", err)
		return
	}
	writeJSON(w, http.StatusOK, RegistrationDTO{
		ID:          reg.ID,
		CompanyName: reg.CompanyName,
		Email:       reg.Email,
		CreatedAt:   reg.CreatedAt,
		Quote:       echoed.Quote,
		Payload:     reg.Payload,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: codeFor(status)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// handleError maps domain errors onto HTTP statuses.
func (h *Handler) handleError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	default:
		return "internal"
	}
}
