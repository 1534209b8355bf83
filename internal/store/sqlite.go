package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS archived_tests (
    id TEXT PRIMARY KEY,
    article_id TEXT NOT NULL,
    status TEXT NOT NULL,
    winner_id TEXT,
    variants TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    completed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archived_article ON archived_tests(article_id);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    test_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    value REAL NOT NULL DEFAULT 0,
    visitor_id TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_events_test ON events(test_id);
CREATE INDEX IF NOT EXISTS idx_events_test_type ON events(test_id, event_type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup
    ON events(test_id, variant_id, event_type, visitor_id)
    WHERE visitor_id <> '' AND event_type <> 'engagement';
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ArchiveTest upserts a completed test, so the completion hook firing
// more than once across restarts stays harmless.
func (s *SQLiteStore) ArchiveTest(ctx context.Context, t *ArchivedTest) error {
	variantsJSON, err := json.Marshal(t.Variants)
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO archived_tests (id, article_id, status, winner_id, variants, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     status = excluded.status,
		     winner_id = excluded.winner_id,
		     variants = excluded.variants,
		     completed_at = excluded.completed_at`,
		t.ID, t.ArticleID, t.Status, nullableText(t.WinnerID), string(variantsJSON),
		t.StartedAt.Unix(), t.CompletedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive test: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetArchivedTest(ctx context.Context, id string) (*ArchivedTest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, article_id, status, winner_id, variants, started_at, completed_at
		 FROM archived_tests WHERE id = ?`, id,
	)

	t, err := scanArchivedTest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archived test: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListArchivedTests(ctx context.Context) ([]*ArchivedTest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, article_id, status, winner_id, variants, started_at, completed_at
		 FROM archived_tests ORDER BY completed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived tests: %w", err)
	}
	defer rows.Close()

	var tests []*ArchivedTest
	for rows.Next() {
		t, err := scanArchivedTest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived test: %w", err)
		}
		tests = append(tests, t)
	}

	return tests, rows.Err()
}

func scanArchivedTest(scan func(...any) error) (*ArchivedTest, error) {
	var t ArchivedTest
	var winnerID sql.NullString
	var variantsJSON string
	var startedAt, completedAt int64

	if err := scan(&t.ID, &t.ArticleID, &t.Status, &winnerID, &variantsJSON, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(variantsJSON), &t.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}

	if winnerID.Valid {
		t.WinnerID = winnerID.String
	}
	t.StartedAt = time.Unix(startedAt, 0)
	t.CompletedAt = time.Unix(completedAt, 0)

	return &t, nil
}

// RecordEvent appends one telemetry beacon. Impression and click events
// carrying a visitor id are deduplicated per visitor via the unique
// index; engagement samples are always kept.
func (s *SQLiteStore) RecordEvent(ctx context.Context, testID, variantID, eventType, visitorID string, value float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (id, test_id, variant_id, event_type, value, visitor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), testID, variantID, eventType, value, visitorID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetEvents(ctx context.Context, testID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_id, variant_id, event_type, value, visitor_id, created_at
		 FROM events WHERE test_id = ? ORDER BY created_at DESC`,
		testID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.TestID, &e.VariantID, &e.EventType, &e.Value, &e.VisitorID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &e)
	}

	return events, rows.Err()
}

// DB returns the underlying database handle for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func nullableText(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
