package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studyplan/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a week.
var ErrNotFound = errors.New("not found")

const weekKeyLayout = "2006-01-02"

// Store persists fetched weeks for offline viewing and the publish state of
// events. Rows belong to the account the store is scoped to.
type Store struct {
	DB      *sql.DB
	account string
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// ForAccount returns a store sharing the database but scoped to account.
func (s *Store) ForAccount(account string) *Store {
	return &Store{DB: s.DB, account: account}
}

// Account returns the account the store is scoped to.
func (s *Store) Account() string {
	return s.account
}

// CurrentAccount returns the account recorded at the last login, or "".
func (s *Store) CurrentAccount(ctx context.Context) (string, error) {
	var account string
	err := s.DB.QueryRowContext(ctx, `SELECT account FROM current_account WHERE id = 1`).Scan(&account)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load current account: %w", err)
	}
	return account, nil
}

// SwitchAccount records account as the current one and returns a store scoped to it.
func (s *Store) SwitchAccount(ctx context.Context, account string) (*Store, error) {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO current_account (id, account) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET account = excluded.account`, account)
	if err != nil {
		return nil, fmt.Errorf("save current account: %w", err)
	}
	return s.ForAccount(account), nil
}

// ForgetSnapshots deletes every offline snapshot of the scoped account.
func (s *Store) ForgetSnapshots(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM snapshots WHERE account = ?`, s.account); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Snapshot is the last successfully fetched event list for a week.
type Snapshot struct {
	WeekStart time.Time
	FetchedAt time.Time
	Events    []models.ScheduleEvent
}

type storedEvent struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id,omitempty"`
	SubjectID   string    `json:"subject_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Color       string    `json:"color,omitempty"`
}

// SaveWeek replaces the snapshot of the week starting at weekStart.
func (s *Store) SaveWeek(ctx context.Context, weekStart time.Time, events []models.ScheduleEvent) error {
	stored := make([]storedEvent, 0, len(events))
	for _, e := range events {
		stored = append(stored, storedEvent(e))
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode week snapshot: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO snapshots (account, week_start, fetched_at, events) VALUES (?, ?, ?, ?)
		 ON CONFLICT(account, week_start) DO UPDATE SET fetched_at = excluded.fetched_at, events = excluded.events`,
		s.account, weekStart.Format(weekKeyLayout), time.Now().UTC(), string(data))
	if err != nil {
		return fmt.Errorf("save week snapshot: %w", err)
	}
	return nil
}

// LoadWeek returns the snapshot of the week starting at weekStart, or ErrNotFound.
func (s *Store) LoadWeek(ctx context.Context, weekStart time.Time) (Snapshot, error) {
	var fetchedAt time.Time
	var data string
	err := s.DB.QueryRowContext(ctx,
		`SELECT fetched_at, events FROM snapshots WHERE account = ? AND week_start = ?`,
		s.account, weekStart.Format(weekKeyLayout)).Scan(&fetchedAt, &data)
	if err == sql.ErrNoRows {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load week snapshot: %w", err)
	}

	var stored []storedEvent
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return Snapshot{}, fmt.Errorf("decode week snapshot: %w", err)
	}
	events := make([]models.ScheduleEvent, 0, len(stored))
	for _, e := range stored {
		events = append(events, models.ScheduleEvent(e))
	}
	return Snapshot{WeekStart: weekStart, FetchedAt: fetchedAt, Events: events}, nil
}

// Publication records that an event was written to an external calendar.
type Publication struct {
	Target      string
	EventID     string
	RemoteUID   string
	Fingerprint string
	StartsAt    time.Time // Start of the event as published
	PublishedAt time.Time
}

// GetPublication returns the publish record of an event for a target, or ErrNotFound.
func (s *Store) GetPublication(ctx context.Context, target, eventID string) (Publication, error) {
	p := Publication{Target: target, EventID: eventID}
	var startsAt int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT remote_uid, fingerprint, starts_at, published_at FROM publications
		 WHERE account = ? AND target = ? AND event_id = ?`,
		s.account, target, eventID).Scan(&p.RemoteUID, &p.Fingerprint, &startsAt, &p.PublishedAt)
	if err == sql.ErrNoRows {
		return Publication{}, ErrNotFound
	}
	if err != nil {
		return Publication{}, fmt.Errorf("load publication: %w", err)
	}
	p.StartsAt = time.Unix(startsAt, 0).UTC()
	return p, nil
}

// SavePublication inserts or updates a publish record.
func (s *Store) SavePublication(ctx context.Context, p Publication) error {
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO publications (account, target, event_id, remote_uid, fingerprint, starts_at, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account, target, event_id) DO UPDATE SET remote_uid = excluded.remote_uid,
		     fingerprint = excluded.fingerprint, starts_at = excluded.starts_at, published_at = excluded.published_at`,
		s.account, p.Target, p.EventID, p.RemoteUID, p.Fingerprint, p.StartsAt.Unix(), p.PublishedAt)
	if err != nil {
		return fmt.Errorf("save publication: %w", err)
	}
	return nil
}

// ListPublications returns the records for target whose event starts in [from, to).
func (s *Store) ListPublications(ctx context.Context, target string, from, to time.Time) ([]Publication, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT event_id, remote_uid, fingerprint, starts_at, published_at FROM publications
		 WHERE account = ? AND target = ? AND starts_at >= ? AND starts_at < ?
		 ORDER BY starts_at`,
		s.account, target, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		p := Publication{Target: target}
		var startsAt int64
		if err := rows.Scan(&p.EventID, &p.RemoteUID, &p.Fingerprint, &startsAt, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		p.StartsAt = time.Unix(startsAt, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePublication forgets the publish record of an event.
func (s *Store) DeletePublication(ctx context.Context, target, eventID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM publications WHERE account = ? AND target = ? AND event_id = ?`,
		s.account, target, eventID)
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	return nil
}

// CountPublications returns how many events have been published to target.
func (s *Store) CountPublications(ctx context.Context, target string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM publications WHERE account = ? AND target = ?`, s.account, target).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count publications: %w", err)
	}
	return n, nil
}
