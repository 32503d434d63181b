package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/scrapeflow/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*RunDB, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	db, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// doneRun builds a finished successful run for url with the given page text.
func doneRun(url, text string) *model.Run {
	run := model.NewRun(model.NewWorkflowRequest(url))
	page := &model.PageContent{URL: url, FinalURL: url, StatusCode: 200, Title: "Title", Text: text}
	page.ComputeHash()
	run.SetPage(page)
	run.MarkStep("fetch")
	run.SetAnalysis(&model.AnalysisResult{Summary: "Summary of content: " + text + "..."})
	run.MarkStep("analyze")
	run.SetReport(&model.Report{Text: "Here's a detailed report based on the research: Summary of content: " + text + "..."})
	run.MarkStep("write")
	return run
}

func failedRun(url string) *model.Run {
	run := model.NewRun(model.NewWorkflowRequest(url))
	run.Fail(model.NewFetchError(url, errors.New("connection refused")))
	return run
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()

		dbDir := filepath.Join(tmpDir, "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %s, got %s", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		opts := Options{CreateIfNotExists: false, EnableWAL: true}

		db, err := Open(dbDir, opts)
		if err == nil {
			_ = db.Close()
			t.Fatal("expected error for missing database")
		}
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestSaveAndGetRun tests storing and loading runs.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	t.Run("round trips a successful run", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()

		ctx := context.Background()
		run := doneRun("https://example.com", "Hello World")

		id, err := db.SaveRun(ctx, run)
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		if id == 0 || run.ID != id {
			t.Fatalf("expected run.ID to be set, got id=%d run.ID=%d", id, run.ID)
		}

		got, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got == nil {
			t.Fatal("expected run, got nil")
		}
		if got.ID != id {
			t.Errorf("expected id %d, got %d", id, got.ID)
		}
		if got.Status != model.StatusDone {
			t.Errorf("expected done, got %v", got.Status)
		}
		if got.Output() != run.Output() {
			t.Errorf("expected output %q, got %q", run.Output(), got.Output())
		}
		if got.Page == nil || got.Page.Hash != run.Page.Hash {
			t.Error("page hash not preserved")
		}
		if len(got.PerformedSteps) != 3 {
			t.Errorf("expected 3 performed steps, got %v", got.PerformedSteps)
		}
	})

	t.Run("round trips a failed run", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()

		ctx := context.Background()
		run := failedRun("http://localhost:1")

		id, err := db.SaveRun(ctx, run)
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		got, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != model.StatusFailedAtFetch {
			t.Errorf("expected failed_at_fetch, got %v", got.Status)
		}
		if got.Output() != "Error during scraping: connection refused" {
			t.Errorf("unexpected output %q", got.Output())
		}
	})

	t.Run("missing run returns nil", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()

		got, err := db.GetRun(context.Background(), 42)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

// TestLatestRun tests retrieving the newest run for a URL.
func TestLatestRun(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	url := "https://example.com"

	if got, err := db.LatestRun(ctx, url); err != nil || got != nil {
		t.Fatalf("expected nil, nil for unknown url, got %+v, %v", got, err)
	}

	if _, err := db.SaveRun(ctx, doneRun(url, "first")); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SaveRun(ctx, doneRun(url, "second")); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SaveRun(ctx, doneRun("https://other.example", "other")); err != nil {
		t.Fatal(err)
	}

	got, err := db.LatestRun(ctx, url)
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	if got == nil || got.Page == nil || got.Page.Text != "second" {
		t.Errorf("expected latest run with text 'second', got %+v", got)
	}
}

// TestLatestContentHash tests change detection support.
func TestLatestContentHash(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	url := "https://example.com"

	hash, err := db.LatestContentHash(ctx, url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	ok := doneRun(url, "content")
	if _, err := db.SaveRun(ctx, ok); err != nil {
		t.Fatal(err)
	}
	// A later failed run has no page and must not hide the last hash.
	if _, err := db.SaveRun(ctx, failedRun(url)); err != nil {
		t.Fatal(err)
	}

	hash, err = db.LatestContentHash(ctx, url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != ok.Page.Hash {
		t.Errorf("expected %s, got %s", ok.Page.Hash, hash)
	}
}

// TestHistory tests run metadata listing.
func TestHistory(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	url := "https://example.com"

	first := doneRun(url, "one")
	if _, err := db.SaveRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SaveRun(ctx, failedRun(url)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SaveRun(ctx, doneRun(url, "three")); err != nil {
		t.Fatal(err)
	}

	t.Run("newest first", func(t *testing.T) {
		history, err := db.History(ctx, url, 0)
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(history))
		}
		if history[0].ID <= history[1].ID || history[1].ID <= history[2].ID {
			t.Errorf("expected descending ids, got %d, %d, %d", history[0].ID, history[1].ID, history[2].ID)
		}
		if history[1].Status != model.StatusFailedAtFetch {
			t.Errorf("expected failed_at_fetch, got %v", history[1].Status)
		}
		if history[1].ContentHash != "" {
			t.Errorf("failed run should have no hash, got %q", history[1].ContentHash)
		}
		if history[2].ContentHash != first.Page.Hash {
			t.Error("content hash not stored")
		}
		if history[2].StartedAt.IsZero() {
			t.Error("started_at not parsed")
		}
	})

	t.Run("limit", func(t *testing.T) {
		history, err := db.History(ctx, url, 2)
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(history) != 2 {
			t.Errorf("expected 2 entries, got %d", len(history))
		}
	})

	t.Run("unknown url", func(t *testing.T) {
		history, err := db.History(ctx, "https://unknown.example", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected empty history, got %d", len(history))
		}
	})
}

// TestListURLs tests listing distinct URLs.
func TestListURLs(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for _, u := range []string{"https://b.example", "https://a.example", "https://b.example"} {
		if _, err := db.SaveRun(ctx, doneRun(u, "x")); err != nil {
			t.Fatal(err)
		}
	}

	urls, err := db.ListURLs(ctx)
	if err != nil {
		t.Fatalf("failed to list urls: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.example" || urls[1] != "https://b.example" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

// TestParseTimestamp tests timestamp parsing with multiple formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"RFC3339Nano", "2024-01-15T10:30:00.123456789Z", time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)},
		{"RFC3339", "2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"SQLite default", "2024-01-15 10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"ISO without zone", "2024-01-15T10:30:00", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"invalid", "not a time", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
