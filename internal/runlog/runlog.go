// Package runlog keeps a SQLite history of parse and import runs so that
// `wantlist history` can show what happened to each row across invocations.
package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"wantlist/internal/album"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
// Users will need to delete their history database after schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Run is one recorded invocation of a command that touched a list file.
type Run struct {
	ID         int64
	Command    string
	CSVPath    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    Summary
}

// Summary holds the per-class row counts recorded when a run finishes.
type Summary struct {
	Processed int
	Succeeded int
	Skipped   int
	Pending   int
	Failed    int
}

// Event is a single row outcome within a run.
type Event struct {
	ID        int64
	RunID     int64
	EntryID   string
	Artist    string
	Album     string
	Status    album.Status
	Message   string
	CreatedAt time.Time
}

// Store persists run history in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// StartRun records the beginning of a command invocation and returns its id.
func (s *Store) StartRun(ctx context.Context, command, csvPath string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (command, csv_path, started_at) VALUES (?, ?, ?)",
		command, nullableString(csvPath), now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's end time and records its summary counts.
func (s *Store) FinishRun(ctx context.Context, runID int64, summary Summary) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs
		 SET finished_at = ?, processed = ?, succeeded = ?, skipped = ?, pending = ?, failed = ?
		 WHERE id = ?`,
		now, summary.Processed, summary.Succeeded, summary.Skipped, summary.Pending, summary.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// AppendEvent records a single row outcome for a run.
func (s *Store) AppendEvent(ctx context.Context, runID int64, entry album.Entry, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO row_events (run_id, entry_id, artist, album, status, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, nullableString(entry.ID), entry.Artist, entry.Album, string(entry.Status), nullableString(message), now,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

const runColumns = "id, command, csv_path, started_at, finished_at, processed, succeeded, skipped, pending, failed"

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by id.
func (s *Store) GetRun(ctx context.Context, runID int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &run, nil
}

// EventsForRun returns the row outcomes of a run in insertion order.
func (s *Store) EventsForRun(ctx context.Context, runID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, entry_id, artist, album, status, message, created_at
		 FROM row_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			entryID    sql.NullString
			statusStr  string
			message    sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&event.ID, &event.RunID, &entryID, &event.Artist, &event.Album, &statusStr, &message, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.EntryID = entryID.String
		event.Status = album.Status(statusStr)
		event.Message = message.String
		if created, err := parseTimeString(createdRaw); err == nil {
			event.CreatedAt = created
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Prune deletes all but the most recent keep runs and returns how many were removed.
// Row events are removed with their runs via the foreign key cascade.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
		     SELECT id FROM runs ORDER BY id DESC LIMIT ?
		 )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows: %w", err)
	}
	return affected, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		csvPath     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Command,
		&csvPath,
		&startedRaw,
		&finishedRaw,
		&run.Summary.Processed,
		&run.Summary.Succeeded,
		&run.Summary.Skipped,
		&run.Summary.Pending,
		&run.Summary.Failed,
	); err != nil {
		return Run{}, err
	}
	run.CSVPath = csvPath.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
