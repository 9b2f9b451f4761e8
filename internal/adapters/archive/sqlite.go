// Package archive keeps a local history of generation runs in SQLite,
// so past games can be listed and reopened without rescanning the
// output directory.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aledesanfer/mysteryforge/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// RunRecord is one archived generation run. It carries no spoilers:
// the killer lives only inside the game package itself.
type RunRecord struct {
	GameID       string
	CreatedAt    time.Time
	Status       string
	Reason       string
	Theme        string
	Epoch        string
	Language     string
	Players      int
	Difficulty   string
	OutputDir    string
	Duration     time.Duration
	WorldRetries int
	LogicRetries int
}

// NewRecord builds an archive record from a finished run.
func NewRecord(state *core.GameState, status, reason string, duration time.Duration) RunRecord {
	rec := RunRecord{
		GameID:       string(state.Meta.ID),
		CreatedAt:    state.Meta.CreatedAt,
		Status:       status,
		Reason:       reason,
		Theme:        state.Config.Theme,
		Epoch:        state.Config.Epoch,
		Language:     state.Config.Language,
		Players:      state.Config.Players.Total,
		Difficulty:   string(state.Config.Difficulty),
		Duration:     duration,
		WorldRetries: state.RetryCount("world_validation"),
		LogicRetries: state.RetryCount("game_logic_validation"),
	}
	if state.Packaging != nil {
		rec.OutputDir = state.Packaging.OutputDir
	}
	return rec
}

// Store is a SQLite-backed run archive. Writes go through a single
// connection in WAL mode; reads use a small read-only pool.
type Store struct {
	dbPath string
	db     *sql.DB
	readDB *sql.DB
	mu     sync.RWMutex

	maxRetries    int
	baseRetryWait time.Duration
}

// NewStore opens (and if necessary creates) the archive at dbPath.
func NewStore(dbPath string) (*Store, error) {
	s := &Store{
		dbPath:        dbPath,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	readDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(2)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS archive_schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM archive_schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	migrations := []string{migrationV1}
	for i, migration := range migrations {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration transaction: %w", err)
		}
		for _, stmt := range splitStatements(migration) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("executing migration v%d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO archive_schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", version, err)
		}
	}

	return nil
}

func splitStatements(script string) []string {
	var statements []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		lines := strings.Split(stmt, "\n")
		var sqlLines []string
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				sqlLines = append(sqlLines, line)
			}
		}
		if len(sqlLines) > 0 {
			statements = append(statements, strings.Join(sqlLines, "\n"))
		}
	}
	return statements
}

func (s *Store) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := fn(); err != nil {
			if isSQLiteBusy(err) {
				lastErr = err
				wait := s.baseRetryWait * time.Duration(1<<attempt)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
					continue
				}
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, s.maxRetries, lastErr)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// Save upserts a run record.
func (s *Store) Save(ctx context.Context, rec RunRecord) error {
	return s.retryWrite(ctx, "Save", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO runs (game_id, created_at, status, reason, theme, epoch, language,
				players, difficulty, output_dir, duration_ms, world_retries, logic_retries)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(game_id) DO UPDATE SET
				status = excluded.status,
				reason = excluded.reason,
				output_dir = excluded.output_dir,
				duration_ms = excluded.duration_ms,
				world_retries = excluded.world_retries,
				logic_retries = excluded.logic_retries
		`,
			rec.GameID,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			rec.Status,
			rec.Reason,
			rec.Theme,
			rec.Epoch,
			rec.Language,
			rec.Players,
			rec.Difficulty,
			rec.OutputDir,
			rec.Duration.Milliseconds(),
			rec.WorldRetries,
			rec.LogicRetries,
		)
		return err
	})
}

// Get returns the record for a game id, or nil if it was never
// archived.
func (s *Store) Get(ctx context.Context, gameID string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.readDB.QueryRowContext(ctx, `
		SELECT game_id, created_at, status, reason, theme, epoch, language,
			players, difficulty, output_dir, duration_ms, world_retries, logic_retries
		FROM runs WHERE game_id = ?
	`, gameID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return rec, nil
}

// List returns all archived runs, newest first.
func (s *Store) List(ctx context.Context) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT game_id, created_at, status, reason, theme, epoch, language,
			players, difficulty, output_dir, duration_ms, world_retries, logic_retries
		FROM runs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a run record.
func (s *Store) Delete(ctx context.Context, gameID string) error {
	return s.retryWrite(ctx, "Delete", func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE game_id = ?", gameID)
		return err
	})
}

// Close closes both database connections.
func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing read connection: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing write connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var createdAt string
	var reason, outputDir sql.NullString
	var durationMS int64

	err := row.Scan(&rec.GameID, &createdAt, &rec.Status, &reason,
		&rec.Theme, &rec.Epoch, &rec.Language, &rec.Players, &rec.Difficulty,
		&outputDir, &durationMS, &rec.WorldRetries, &rec.LogicRetries)
	if err != nil {
		return nil, err
	}

	rec.Reason = reason.String
	rec.OutputDir = outputDir.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
