// Package history records standards runs in a SQLite database so past
// results can be listed and compared.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/standards/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout sorts lexically in UTC, unlike RFC3339Nano which trims zeros
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrAmbiguousRunID is returned when a run id prefix matches several runs
var ErrAmbiguousRunID = errors.New("run id prefix matches more than one run")

// MaxStoredOutput caps the captured output kept per tool; the tail is kept
const MaxStoredOutput = 64 * 1024

// Run is one recorded standards run
type Run struct {
	ID          string
	ProjectDir  string
	StartedAt   time.Time
	Duration    time.Duration
	ExitStatus  int
	ToolCount   int
	FailedCount int
	Tools       []ToolRun
}

// Passed reports whether every tool in the run passed
func (r *Run) Passed() bool {
	return r.ExitStatus == models.ExitSuccess
}

// ToolRun is the recorded result of one tool within a run
type ToolRun struct {
	Name         string
	CommandLine  string
	Status       models.ToolStatus
	ExitCode     int
	Duration     time.Duration
	Output       string
	ErrorMessage string
}

// ToolStats aggregates the recorded results of one tool across runs
type ToolStats struct {
	Name         string
	Runs         int
	Failures     int
	LastExitCode int
	AvgDuration  time.Duration
}

// FailureRate returns the fraction of runs in which the tool failed
func (ts ToolStats) FailureRate() float64 {
	if ts.Runs == 0 {
		return 0
	}
	return float64(ts.Failures) / float64(ts.Runs)
}

// NewRunID returns a fresh identifier for a run
func NewRunID() string {
	return uuid.New().String()
}

// NewRun converts a completed RunResult into a Run ready to be recorded
func NewRun(id, projectDir string, startedAt time.Time, duration time.Duration, result *models.RunResult) *Run {
	run := &Run{
		ID:          id,
		ProjectDir:  projectDir,
		StartedAt:   startedAt,
		Duration:    duration,
		ExitStatus:  result.ExitStatus(),
		ToolCount:   result.Len(),
		FailedCount: len(result.Failed()),
	}

	for _, res := range result.Results() {
		tr := ToolRun{
			Name:        res.Tool.Name,
			CommandLine: res.Tool.CommandLine(),
			Status:      res.Status,
			ExitCode:    res.ExitCode,
			Duration:    res.Duration,
			Output:      truncateOutput(res.Output),
		}
		if res.Err != nil {
			tr.ErrorMessage = res.Err.Error()
		}
		run.Tools = append(run.Tools, tr)
	}

	return run
}

func truncateOutput(output string) string {
	if len(output) <= MaxStoredOutput {
		return output
	}
	return output[len(output)-MaxStoredOutput:]
}

// Store manages the run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every pooled connection to ":memory:" would be a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement, backing off on "database is locked".
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database location
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a run and its tool results in one transaction
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("record run: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, project_dir, started_at, duration_ms, exit_status, tool_count, failed_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ProjectDir,
		run.StartedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.ExitStatus,
		run.ToolCount,
		run.FailedCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, tr := range run.Tools {
		_, err := tx.ExecContext(ctx, `INSERT INTO tool_results
			(run_id, position, tool_name, command_line, status, exit_code, duration_ms, output, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			i,
			tr.Name,
			tr.CommandLine,
			string(tr.Status),
			tr.ExitCode,
			tr.Duration.Milliseconds(),
			tr.Output,
			tr.ErrorMessage,
		)
		if err != nil {
			return fmt.Errorf("insert tool result %s: %w", tr.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first, with their tool results.
// A limit <= 0 returns every run.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, project_dir, started_at, duration_ms, exit_status, tool_count, failed_count
		FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for _, run := range runs {
		tools, err := s.toolRuns(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		run.Tools = tools
	}

	return runs, nil
}

// GetRun returns one run by id, or nil if it was never recorded
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_dir, started_at, duration_ms, exit_status, tool_count, failed_count
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tools, err := s.toolRuns(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Tools = tools
	return run, nil
}

// ResolveRunID expands id, a full run id or a unique prefix of one such as
// the short ids "standards history" prints, to the recorded run id. It
// returns "" when nothing matches and ErrAmbiguousRunID when several runs do.
func (s *Store) ResolveRunID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? ORDER BY id LIMIT 2`, len(id), id)
	if err != nil {
		return "", fmt.Errorf("query run ids: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var match string
		if err := rows.Scan(&match); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		if match == id {
			return match, nil
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate run ids: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}
}

// GetToolStats aggregates results per tool across all recorded runs,
// most failing tools first
func (s *Store) GetToolStats(ctx context.Context) ([]ToolStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			tr.tool_name,
			COUNT(*) AS runs,
			COUNT(CASE WHEN tr.exit_code != 0 THEN 1 END) AS failures,
			AVG(tr.duration_ms) AS avg_duration,
			(SELECT t2.exit_code FROM tool_results t2
				JOIN runs r2 ON r2.id = t2.run_id
				WHERE t2.tool_name = tr.tool_name
				ORDER BY r2.started_at DESC, t2.id DESC LIMIT 1) AS last_exit_code
		FROM tool_results tr
		GROUP BY tr.tool_name
		ORDER BY failures DESC, tr.tool_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tool stats: %w", err)
	}
	defer rows.Close()

	var stats []ToolStats
	for rows.Next() {
		var ts ToolStats
		var avg sql.NullFloat64
		if err := rows.Scan(&ts.Name, &ts.Runs, &ts.Failures, &avg, &ts.LastExitCode); err != nil {
			return nil, fmt.Errorf("scan tool stats row: %w", err)
		}
		if avg.Valid {
			ts.AvgDuration = time.Duration(avg.Float64) * time.Millisecond
		}
		stats = append(stats, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool stats: %w", err)
	}

	return stats, nil
}

// CleanupOldRuns removes runs started more than keepDays ago.
// Returns the number of deleted runs; keepDays <= 0 keeps everything.
func (s *Store) CleanupOldRuns(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -keepDays).UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tool_results WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("cleanup tool results: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return deleted, nil
}

func (s *Store) toolRuns(ctx context.Context, runID string) ([]ToolRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tool_name, command_line, status, exit_code, duration_ms, output, error_message
		FROM tool_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tool results: %w", err)
	}
	defer rows.Close()

	var tools []ToolRun
	for rows.Next() {
		var tr ToolRun
		var status string
		var durationMs int64
		if err := rows.Scan(&tr.Name, &tr.CommandLine, &status, &tr.ExitCode, &durationMs, &tr.Output, &tr.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan tool result row: %w", err)
		}
		tr.Status = models.ToolStatus(status)
		tr.Duration = time.Duration(durationMs) * time.Millisecond
		tools = append(tools, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool results: %w", err)
	}

	return tools, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var durationMs int64
	err := row.Scan(&run.ID, &run.ProjectDir, &startedAt, &durationMs, &run.ExitStatus, &run.ToolCount, &run.FailedCount)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}

	ts, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	run.StartedAt = ts
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}
