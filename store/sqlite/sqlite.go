/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists punches, profiles, company feature grants, vacation requests,
  registrations and NFC card bindings. The same schema ports to PostgreSQL
  with minor dialect changes.

KEY TABLES:
  punches:          Append-only punch log (one row per clock event)
  profiles:         Profile JSON per username
  company_features: (company_id, feature_key) grants
  vacations:        Vacation requests with status
  registrations:    Registration payloads with the echoed price breakdown
  nfc_cards:        Card uid -> username

TIME ENCODING:
  Instants are stored as RFC3339 text in UTC so lexical order equals
  chronological order; calendar days as "2006-01-02".

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode.

USAGE:
  store, err := sqlite.New("./data/chrono.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chrono/chrono-engine/factory"
	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/schedule"
	"github.com/chrono/chrono-engine/store"
	"github.com/chrono/chrono-engine/vacation"
	"github.com/chrono/chrono-engine/worktime"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Punches (append-only)
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		punch_order INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		break_start TEXT,
		break_end TEXT,
		daily_note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_user_start
		ON punches(username, start_time);

	-- Profiles
	CREATE TABLE IF NOT EXISTS profiles (
		username TEXT PRIMARY KEY,
		profile_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Company feature grants
	CREATE TABLE IF NOT EXISTS company_features (
		company_id TEXT NOT NULL,
		feature_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (company_id, feature_key)
	);

	-- Vacation requests
	CREATE TABLE IF NOT EXISTS vacations (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		vacation_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vacations_user
		ON vacations(username, start_date);

	-- Registrations
	CREATE TABLE IF NOT EXISTS registrations (
		id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		email TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- NFC cards
	CREATE TABLE IF NOT EXISTS nfc_cards (
		uid TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCH STORE
// =============================================================================

// AppendPunch adds a punch to the log.
func (s *Store) AppendPunch(ctx context.Context, rec worktime.PunchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endTime sql.NullString
	if rec.EndTime != nil {
		endTime = nullString(formatInstant(*rec.EndTime))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO punches
		(id, username, punch_order, start_time, end_time, break_start, break_end, daily_note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Username,
		int(rec.PunchOrder),
		formatInstant(rec.StartTime),
		endTime,
		nullString(rec.BreakStart),
		nullString(rec.BreakEnd),
		nullString(rec.DailyNote),
		formatInstant(time.Now()),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateID
		}
		return fmt.Errorf("failed to append punch: %w", err)
	}
	return nil
}

// ListPunches returns a user's punches within r, ordered by start time.
func (s *Store) ListPunches(ctx context.Context, username string, r store.TimeRange) ([]worktime.PunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, username, punch_order, start_time, end_time, break_start, break_end, daily_note
		FROM punches
		WHERE username = ?`
	args := []any{username}
	if !r.From.IsZero() {
		query += " AND start_time >= ?"
		args = append(args, formatInstant(r.From))
	}
	if !r.To.IsZero() {
		query += " AND start_time < ?"
		args = append(args, formatInstant(r.To))
	}
	query += " ORDER BY start_time ASC, punch_order ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var out []worktime.PunchRecord
	for rows.Next() {
		var (
			rec                             worktime.PunchRecord
			order                           int
			start                           string
			end, breakStart, breakEnd, note sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Username, &order, &start, &end, &breakStart, &breakEnd, &note); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		rec.PunchOrder = worktime.PunchOrder(order)
		if rec.StartTime, err = parseInstant(start); err != nil {
			return nil, fmt.Errorf("punch %s: %w", rec.ID, err)
		}
		if end.Valid {
			t, err := parseInstant(end.String)
			if err != nil {
				return nil, fmt.Errorf("punch %s: %w", rec.ID, err)
			}
			rec.EndTime = &t
		}
		rec.BreakStart = breakStart.String
		rec.BreakEnd = breakEnd.String
		rec.DailyNote = note.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// PROFILE STORE
// =============================================================================

func (s *Store) GetProfile(ctx context.Context, username string) (schedule.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT profile_json FROM profiles WHERE username = ?", username).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return schedule.Profile{}, &generic.NotFoundError{Kind: "profile", Key: username}
	}
	if err != nil {
		return schedule.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return factory.ParseProfile([]byte(raw))
}

func (s *Store) SaveProfile(ctx context.Context, p schedule.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := factory.MarshalProfile(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (username, profile_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at
	`, p.Username, string(raw), formatInstant(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// =============================================================================
// FEATURE STORE
// =============================================================================

func (s *Store) EnabledFeatures(ctx context.Context, companyID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT feature_key FROM company_features WHERE company_id = ? ORDER BY position ASC", companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan feature: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SetEnabledFeatures replaces a company's grants atomically.
func (s *Store) SetEnabledFeatures(ctx context.Context, companyID string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM company_features WHERE company_id = ?", companyID); err != nil {
		return fmt.Errorf("failed to clear features: %w", err)
	}
	seen := make(map[string]bool)
	for i, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO company_features (company_id, feature_key, position) VALUES (?, ?, ?)",
			companyID, k, i); err != nil {
			return fmt.Errorf("failed to insert feature: %w", err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// VACATION STORE
// =============================================================================

func (s *Store) SaveVacation(ctx context.Context, req vacation.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vacations (id, username, start_date, end_date, vacation_type, status, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.ID, req.Username, req.Start.String(), req.End.String(), string(req.Type), string(req.Status),
		nullString(req.Reason), formatInstant(created), formatInstant(time.Now()),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateID
		}
		return fmt.Errorf("failed to save vacation: %w", err)
	}
	return nil
}

func (s *Store) GetVacation(ctx context.Context, id string) (vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs, err := s.queryVacations(ctx, "WHERE id = ?", id)
	if err != nil {
		return vacation.Request{}, err
	}
	if len(reqs) == 0 {
		return vacation.Request{}, &generic.NotFoundError{Kind: "vacation", Key: id}
	}
	return reqs[0], nil
}

func (s *Store) ListVacations(ctx context.Context, username string) ([]vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryVacations(ctx, "WHERE username = ?", username)
}

func (s *Store) UpdateVacationStatus(ctx context.Context, id string, status vacation.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE vacations SET status = ?, updated_at = ? WHERE id = ?",
		string(status), formatInstant(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update vacation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "vacation", Key: id}
	}
	return nil
}

func (s *Store) queryVacations(ctx context.Context, where string, args ...any) ([]vacation.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, start_date, end_date, vacation_type, status, reason, created_at
		FROM vacations `+where+` ORDER BY start_date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacations: %w", err)
	}
	defer rows.Close()

	var out []vacation.Request
	for rows.Next() {
		var (
			req                         vacation.Request
			start, end, typ, st, create string
			reason                      sql.NullString
		)
		if err := rows.Scan(&req.ID, &req.Username, &start, &end, &typ, &st, &reason, &create); err != nil {
			return nil, fmt.Errorf("failed to scan vacation: %w", err)
		}
		if req.Start, err = generic.ParseDate(start, time.UTC); err != nil {
			return nil, fmt.Errorf("vacation %s: %w", req.ID, err)
		}
		if req.End, err = generic.ParseDate(end, time.UTC); err != nil {
			return nil, fmt.Errorf("vacation %s: %w", req.ID, err)
		}
		req.Type = vacation.Type(typ)
		req.Status = vacation.Status(st)
		req.Reason = reason.String
		req.CreatedAt, _ = parseInstant(create)
		out = append(out, req)
	}
	return out, rows.Err()
}

// =============================================================================
// REGISTRATION STORE
// =============================================================================

func (s *Store) SaveRegistration(ctx context.Context, reg store.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := reg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (id, company_name, email, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, reg.ID, reg.CompanyName, reg.Email, string(reg.Payload), formatInstant(created))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateID
		}
		return fmt.Errorf("failed to save registration: %w", err)
	}
	return nil
}

func (s *Store) GetRegistration(ctx context.Context, id string) (store.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		reg              store.Registration
		payload, created string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_name, email, payload_json, created_at FROM registrations WHERE id = ?", id,
	).Scan(&reg.ID, &reg.CompanyName, &reg.Email, &payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Registration{}, &generic.NotFoundError{Kind: "registration", Key: id}
	}
	if err != nil {
		return store.Registration{}, fmt.Errorf("failed to get registration: %w", err)
	}
	reg.Payload = []byte(payload)
	reg.CreatedAt, _ = parseInstant(created)
	return reg, nil
}

// =============================================================================
// CARD STORE
// =============================================================================

func (s *Store) BindCard(ctx context.Context, uid, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nfc_cards (uid, username, created_at) VALUES (?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET username = excluded.username
	`, uid, username, formatInstant(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to bind card: %w", err)
	}
	return nil
}

func (s *Store) LookupCard(ctx context.Context, uid string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var username string
	err := s.db.QueryRowContext(ctx, "SELECT username FROM nfc_cards WHERE uid = ?", uid).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", generic.ErrUnknownCard
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up card: %w", err)
	}
	return username, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseInstant(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
