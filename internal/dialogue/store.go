package dialogue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"skitflow/internal/config"
)

// ErrNotFound is returned when an attempt references an unknown line
// identity. This is an integration error and is always surfaced.
var ErrNotFound = errors.New("dialogue line not found")

// Store manages dialogue line persistence backed by SQLite. It is the sole
// source of truth for the pipeline stage; concurrent attempt-marking on the
// same identity is serialized by SQLite's atomic UPDATE semantics.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the dialogue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath}
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

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// InsertBatch appends lines preserving input order and returns the count
// inserted. The batch runs in one transaction; on failure nothing is
// committed, but callers must still treat the batch state as unknown and
// re-query before retrying.
func (s *Store) InsertBatch(ctx context.Context, lines []LineInput) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dialogue_lines
        (sentence, character, image, image_search, audio_processed, retry_count)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx,
			line.Sentence,
			nullableString(line.Character),
			nullableString(line.Image),
			nullableString(line.ImageSearch),
			boolToInt(line.AudioProcessed),
			line.RetryCount,
		); err != nil {
			return 0, fmt.Errorf("insert line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return len(lines), nil
}

// Classify derives the current pipeline stage from the store's contents.
// For StagePending the snapshot carries up to three eligible lines, oldest
// identity first. Repeated calls without mutation return the same snapshot.
func (s *Store) Classify(ctx context.Context) (Snapshot, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dialogue_lines`).Scan(&total); err != nil {
		return Snapshot{}, fmt.Errorf("count lines: %w", err)
	}
	if total == 0 {
		return Snapshot{Stage: StageEmpty}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+lineColumns+` FROM dialogue_lines
        WHERE audio_processed = 0 AND retry_count < ?
        ORDER BY id ASC LIMIT ?`, MaxRetries, classifyBatchLimit)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query eligible lines: %w", err)
	}
	defer rows.Close()

	var eligible []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return Snapshot{}, err
		}
		eligible = append(eligible, line)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate eligible lines: %w", err)
	}

	if len(eligible) > 0 {
		return Snapshot{Stage: StagePending, Eligible: eligible}, nil
	}
	return Snapshot{Stage: StageReady}, nil
}

// FetchProcessed returns all processed lines ordered by identity ascending.
// This ordering is load-bearing: it becomes playback order in the compositor.
func (s *Store) FetchProcessed(ctx context.Context) ([]Line, error) {
	return s.queryLines(ctx, `SELECT `+lineColumns+` FROM dialogue_lines
        WHERE audio_processed = 1 ORDER BY id ASC`)
}

// List returns every line in identity order, including exhausted ones, for
// audits and CLI output.
func (s *Store) List(ctx context.Context) ([]Line, error) {
	return s.queryLines(ctx, `SELECT `+lineColumns+` FROM dialogue_lines ORDER BY id ASC`)
}

// GetByID fetches a single line, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (Line, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+lineColumns+` FROM dialogue_lines WHERE id = ?`, id)
	line, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Line{}, ErrNotFound
	}
	if err != nil {
		return Line{}, fmt.Errorf("get line: %w", err)
	}
	return line, nil
}

// MarkAttempt records the outcome of one synthesis attempt. Both branches
// increment the retry counter: a successful attempt also consumes budget so
// repeated reprocessing cannot loop forever. A processed line is never reset
// to unprocessed within a cycle.
func (s *Store) MarkAttempt(ctx context.Context, id int64, succeeded bool) error {
	var res sql.Result
	var err error
	if succeeded {
		res, err = s.db.ExecContext(ctx, `UPDATE dialogue_lines
            SET audio_processed = 1, retry_count = retry_count + 1
            WHERE id = ?`, id)
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE dialogue_lines
            SET retry_count = retry_count + 1
            WHERE id = ?`, id)
	}
	if err != nil {
		return fmt.Errorf("mark attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark attempt rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// Reset deletes all lines and reinitializes the identity counter so the next
// cycle starts at 1. Runs in one transaction; it never partially succeeds
// from the caller's perspective.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dialogue_lines`); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'dialogue_lines'`); err != nil {
		return fmt.Errorf("reset identity counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

// Stats aggregates line counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(*),
        COALESCE(SUM(audio_processed), 0),
        COALESCE(SUM(CASE WHEN audio_processed = 0 AND retry_count < ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN audio_processed = 0 AND retry_count >= ? THEN 1 ELSE 0 END), 0)
        FROM dialogue_lines`, MaxRetries, MaxRetries)

	var summary Summary
	if err := row.Scan(&summary.Total, &summary.Processed, &summary.Eligible, &summary.Exhausted); err != nil {
		return Summary{}, fmt.Errorf("line stats: %w", err)
	}
	return summary, nil
}

// DatabaseHealth captures diagnostic information about the store.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalLines       int
	Error            string
}

// CheckHealth returns diagnostic information about the dialogue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat dialogue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("dialogue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if err := s.db.PingContext(ctx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping dialogue database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'dialogue_lines'")
	if err := row.Scan(&tableName); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
		row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dialogue_lines")
		if err := row.Scan(&health.TotalLines); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count lines: %w", err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = integrity == "ok"

	return health, nil
}

const lineColumns = "id, sentence, character, image, image_search, audio_processed, retry_count"

func (s *Store) queryLines(ctx context.Context, query string, args ...any) ([]Line, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanLine(scanner interface{ Scan(dest ...any) error }) (Line, error) {
	var (
		id          int64
		sentence    string
		character   sql.NullString
		image       sql.NullString
		imageSearch sql.NullString
		processed   int
		retryCount  int
	)
	if err := scanner.Scan(&id, &sentence, &character, &image, &imageSearch, &processed, &retryCount); err != nil {
		return Line{}, err
	}
	return Line{
		ID:             id,
		Sentence:       sentence,
		Character:      character.String,
		Image:          image.String,
		ImageSearch:    imageSearch.String,
		AudioProcessed: processed != 0,
		RetryCount:     retryCount,
	}, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
