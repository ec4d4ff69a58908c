package store

import (
	"context"
	"sort"
	"sync"

	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/schedule"
	"github.com/chrono/chrono-engine/vacation"
	"github.com/chrono/chrono-engine/worktime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	punches       map[string][]worktime.PunchRecord
	punchIDs      map[string]bool
	profiles      map[string]schedule.Profile
	features      map[string][]string
	vacations     map[string]vacation.Request
	registrations map[string]Registration
	cards         map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		punches:       make(map[string][]worktime.PunchRecord),
		punchIDs:      make(map[string]bool),
		profiles:      make(map[string]schedule.Profile),
		features:      make(map[string][]string),
		vacations:     make(map[string]vacation.Request),
		registrations: make(map[string]Registration),
		cards:         make(map[string]string),
	}
}

// AppendPunch inserts keeping each user's log sorted by StartTime.
func (m *Memory) AppendPunch(_ context.Context, rec worktime.PunchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID != "" && m.punchIDs[rec.ID] {
		return generic.ErrDuplicateID
	}
	recs := m.punches[rec.Username]

	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].StartTime.After(rec.StartTime)
	})
	recs = append(recs, worktime.PunchRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	m.punches[rec.Username] = recs

	if rec.ID != "" {
		m.punchIDs[rec.ID] = true
	}
	return nil
}

func (m *Memory) ListPunches(_ context.Context, username string, r TimeRange) ([]worktime.PunchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []worktime.PunchRecord
	for _, rec := range m.punches[username] {
		if r.Contains(rec.StartTime) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) GetProfile(_ context.Context, username string) (schedule.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[username]
	if !ok {
		return schedule.Profile{}, &generic.NotFoundError{Kind: "profile", Key: username}
	}
	return p, nil
}

func (m *Memory) SaveProfile(_ context.Context, p schedule.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Username] = p
	return nil
}

func (m *Memory) EnabledFeatures(_ context.Context, companyID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.features[companyID]...), nil
}

func (m *Memory) SetEnabledFeatures(_ context.Context, companyID string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool, len(keys))
	var out []string
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	m.features[companyID] = out
	return nil
}

func (m *Memory) SaveVacation(_ context.Context, req vacation.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vacations[req.ID]; ok {
		return generic.ErrDuplicateID
	}
	m.vacations[req.ID] = req
	return nil
}

func (m *Memory) GetVacation(_ context.Context, id string) (vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.vacations[id]
	if !ok {
		return vacation.Request{}, &generic.NotFoundError{Kind: "vacation", Key: id}
	}
	return req, nil
}

func (m *Memory) ListVacations(_ context.Context, username string) ([]vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []vacation.Request
	for _, req := range m.vacations {
		if req.Username == username {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) UpdateVacationStatus(_ context.Context, id string, status vacation.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.vacations[id]
	if !ok {
		return &generic.NotFoundError{Kind: "vacation", Key: id}
	}
	req.Status = status
	m.vacations[id] = req
	return nil
}

func (m *Memory) SaveRegistration(_ context.Context, reg Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registrations[reg.ID]; ok {
		return generic.ErrDuplicateID
	}
	m.registrations[reg.ID] = reg
	return nil
}

func (m *Memory) GetRegistration(_ context.Context, id string) (Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reg, ok := m.registrations[id]
	if !ok {
		return Registration{}, &generic.NotFoundError{Kind: "registration", Key: id}
	}
	return reg, nil
}

func (m *Memory) BindCard(_ context.Context, uid, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[uid] = username
	return nil
}

func (m *Memory) LookupCard(_ context.Context, uid string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	username, ok := m.cards[uid]
	if !ok {
		return "", generic.ErrUnknownCard
	}
	return username, nil
}
