package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scrapeflow/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "scrapeflow.db"

// ErrNotFound is returned by Open when the database file does not exist
// and CreateIfNotExists is false.
var ErrNotFound = errors.New("database not found")

// RunDB provides SQLite-based storage for workflow runs.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Runs store one workflow execution each
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		content_hash TEXT,
		title TEXT,
		output TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER DEFAULT 0,
		run_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished run and sets run.ID.
func (rdb *RunDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run: %w", err)
	}

	var hash, title string
	if run.Page != nil {
		hash = run.Page.Hash
		title = run.Page.Title
	}

	query := `
	INSERT INTO runs (url, status, content_hash, title, output, started_at, duration_ms, run_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := rdb.db.ExecContext(ctx, query,
		run.Request.URL,
		run.Status.String(),
		hash,
		title,
		run.Output(),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration().Milliseconds(),
		string(runJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id

	return id, nil
}

// GetRun retrieves a run by its database ID.
// It returns nil, nil when no such run exists.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	query := `SELECT id, run_json FROM runs WHERE id = ?`
	return rdb.queryRun(ctx, query, id)
}

// LatestRun retrieves the most recent run for a URL.
// It returns nil, nil when the URL was never run.
func (rdb *RunDB) LatestRun(ctx context.Context, url string) (*model.Run, error) {
	query := `
	SELECT id, run_json FROM runs
	WHERE url = ?
	ORDER BY id DESC
	LIMIT 1
	`
	return rdb.queryRun(ctx, query, url)
}

// LatestContentHash returns the content hash of the most recent run of url
// that fetched the page, or "" when there is none.
func (rdb *RunDB) LatestContentHash(ctx context.Context, url string) (string, error) {
	query := `
	SELECT content_hash FROM runs
	WHERE url = ? AND content_hash IS NOT NULL AND content_hash != ''
	ORDER BY id DESC
	LIMIT 1
	`

	var hash string
	err := rdb.db.QueryRowContext(ctx, query, url).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content hash: %w", err)
	}
	return hash, nil
}

func (rdb *RunDB) queryRun(ctx context.Context, query string, arg any) (*model.Run, error) {
	var (
		id      int64
		runJSON string
	)
	err := rdb.db.QueryRowContext(ctx, query, arg).Scan(&id, &runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	run.ID = id

	return &run, nil
}

// ListURLs returns every URL that has at least one stored run.
func (rdb *RunDB) ListURLs(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT url FROM runs
	ORDER BY url
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}

// RunMetadata contains summary information about a stored run.
// It is used for displaying history without loading full runs.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64 `json:"id"`

	// URL is the requested URL.
	URL string `json:"url"`

	// Status is the final run status.
	Status model.Status `json:"status"`

	// ContentHash is the hash of the page text, empty when the fetch failed.
	ContentHash string `json:"content_hash,omitempty"`

	// Title is the page title.
	Title string `json:"title,omitempty"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration_ns"`
}

// History retrieves run metadata for a URL, newest first.
// limit <= 0 returns every run.
func (rdb *RunDB) History(ctx context.Context, url string, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, url, status, content_hash, title, started_at, duration_ms
	FROM runs
	WHERE url = ?
	ORDER BY id DESC
	`
	args := []any{url}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	results := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			meta       RunMetadata
			status     string
			hash       sql.NullString
			title      sql.NullString
			startedAt  string
			durationMS int64
		)

		if err := rows.Scan(&meta.ID, &meta.URL, &status, &hash, &title, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		st, err := model.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", meta.ID, err)
		}
		meta.Status = st
		meta.ContentHash = hash.String
		meta.Title = title.String
		meta.StartedAt = parseTimestamp(startedAt)
		meta.Duration = time.Duration(durationMS) * time.Millisecond

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by SaveRun
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
