/*
Package store defines persistence for the snapshots the engines consume.

PURPOSE:
  The engines are pure; everything they read (punches, profiles, company
  feature grants) and everything the API accepts (vacation requests,
  registrations, NFC card bindings) is kept behind this interface.

KEY INTERFACES:
  PunchStore:        Append-only punch log, listed per user and time range
  ProfileStore:      Per-user schedule profile
  FeatureStore:      Company -> enabled add-on keys
  VacationStore:     Vacation requests and their status
  RegistrationStore: Submitted registration payloads
  CardStore:         NFC card uid -> username

APPEND-ONLY PUNCHES:
  Punches are never updated in place. Corrections are new records; a
  duplicate ID is rejected with generic.ErrDuplicateID.

IMPLEMENTATIONS:
  - memory.go: In-memory, for tests and development
  - store/sqlite: SQLite, for production

SEE ALSO:
  - api/handlers.go: The only consumer
*/
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chrono/chrono-engine/schedule"
	"github.com/chrono/chrono-engine/vacation"
	"github.com/chrono/chrono-engine/worktime"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// TimeRange bounds punch queries on StartTime, [From, To). Zero values are
// unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

type PunchStore interface {
	// AppendPunch persists a punch. Returns generic.ErrDuplicateID if the ID exists.
	AppendPunch(ctx context.Context, rec worktime.PunchRecord) error

	// ListPunches returns a user's punches in range, ordered by StartTime.
	ListPunches(ctx context.Context, username string, r TimeRange) ([]worktime.PunchRecord, error)
}

type ProfileStore interface {
	// GetProfile returns a *generic.NotFoundError when the user has no profile.
	GetProfile(ctx context.Context, username string) (schedule.Profile, error)
	SaveProfile(ctx context.Context, p schedule.Profile) error
}

type FeatureStore interface {
	// EnabledFeatures returns the raw keys granted to a company; unknown
	// companies have none.
	EnabledFeatures(ctx context.Context, companyID string) ([]string, error)
	SetEnabledFeatures(ctx context.Context, companyID string, keys []string) error
}

type VacationStore interface {
	SaveVacation(ctx context.Context, req vacation.Request) error
	GetVacation(ctx context.Context, id string) (vacation.Request, error)
	ListVacations(ctx context.Context, username string) ([]vacation.Request, error)
	UpdateVacationStatus(ctx context.Context, id string, status vacation.Status) error
}

type RegistrationStore interface {
	SaveRegistration(ctx context.Context, reg Registration) error
	GetRegistration(ctx context.Context, id string) (Registration, error)
}

type CardStore interface {
	BindCard(ctx context.Context, uid, username string) error
	// LookupCard returns generic.ErrUnknownCard for unbound cards.
	LookupCard(ctx context.Context, uid string) (string, error)
}

// Store is everything the API needs.
type Store interface {
	PunchStore
	ProfileStore
	FeatureStore
	VacationStore
	RegistrationStore
	CardStore
}

// =============================================================================
// RECORDS
// =============================================================================

// Registration is a submitted sign-up. Payload holds the request body with
// the computed price breakdown echoed into it, exactly as returned to the
// client.
type Registration struct {
	ID          string
	CompanyName string
	Email       string
	Payload     json.RawMessage
	CreatedAt   time.Time
}
