package fetcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/nao1215/scrapeflow/internal/model"
)

// staticSites is a SiteResolver backed by a map.
type staticSites map[string]SiteSettings

func (s staticSites) SiteSettings(host string) (SiteSettings, bool) {
	site, ok := s[host]
	return site, ok
}

// TestFetch tests fetching and text extraction.
func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns visible text and metadata", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			//nolint:errcheck // test handler
			_, _ = w.Write([]byte(`<html><head><title>Greeting</title>` +
				`<meta name="description" content="A short page"></head>` +
				`<body><p>Hello <b>World</b></p><a href="/next">next</a></body></html>`))
		}))
		defer server.Close()

		page, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if page.Text != "GreetingHello Worldnext" {
			t.Errorf("unexpected text %q", page.Text)
		}
		if page.Title != "Greeting" {
			t.Errorf("expected title 'Greeting', got %q", page.Title)
		}
		if page.Description != "A short page" {
			t.Errorf("expected description, got %q", page.Description)
		}
		if page.LinkCount != 1 {
			t.Errorf("expected 1 link, got %d", page.LinkCount)
		}
		if page.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.StatusCode)
		}
		if page.Hash == "" {
			t.Error("expected content hash")
		}
		if page.FetchedAt.IsZero() {
			t.Error("expected FetchedAt to be set")
		}
	})

	t.Run("plain text body is returned as is", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("Hello World")) //nolint:errcheck
		}))
		defer server.Close()

		page, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Text != "Hello World" {
			t.Errorf("expected 'Hello World', got %q", page.Text)
		}
	})

	t.Run("sends user agent and site settings", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotCookie, gotToken string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotCookie = r.Header.Get("Cookie")
			gotToken = r.Header.Get("X-Token")
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		sites := staticSites{
			"127.0.0.1": {
				Headers:   map[string]string{"X-Token": "abc"},
				Cookie:    "session=1",
				UserAgent: "site-agent",
			},
		}
		f := New(server.Client(), WithUserAgent("scrapeflow/test"), WithSiteResolver(sites))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotUA != "site-agent" {
			t.Errorf("expected site user agent, got %q", gotUA)
		}
		if gotCookie != "session=1" {
			t.Errorf("expected cookie, got %q", gotCookie)
		}
		if gotToken != "abc" {
			t.Errorf("expected X-Token header, got %q", gotToken)
		}
	})

	t.Run("collapses whitespace when enabled", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<body>\n  <p>Hello</p>\n\n  <p>World</p>\n</body>")) //nolint:errcheck
		}))
		defer server.Close()

		page, err := New(server.Client(), WithCollapseWhitespace(true)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Text != "Hello World" {
			t.Errorf("expected 'Hello World', got %q", page.Text)
		}
	})

	t.Run("decodes declared charset", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			// "café" in Latin-1.
			_, _ = w.Write([]byte{'<', 'p', '>', 'c', 'a', 'f', 0xe9, '<', '/', 'p', '>'}) //nolint:errcheck
		}))
		defer server.Close()

		page, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Text != "café" {
			t.Errorf("expected 'café', got %q", page.Text)
		}
	})

	t.Run("statuses below 400 are not errors", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNonAuthoritativeInfo)
			_, _ = w.Write([]byte("<p>cached copy</p>")) //nolint:errcheck
		}))
		defer server.Close()

		page, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.StatusCode != http.StatusNonAuthoritativeInfo || page.Text != "cached copy" {
			t.Errorf("unexpected page: status=%d text=%q", page.StatusCode, page.Text)
		}

		for code, want := range map[int]bool{299: false, 399: false, 400: true, 404: true, 599: true, 600: false} {
			if got := isErrorStatus(code); got != want {
				t.Errorf("isErrorStatus(%d) = %v, want %v", code, got, want)
			}
		}
	})

	t.Run("limits body size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(strings.Repeat("x", 1000))) //nolint:errcheck
		}))
		defer server.Close()

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

		page, err := New(server.Client(), WithMaxBodySize(10), WithLogger(logger)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Text) != 10 {
			t.Errorf("expected 10 bytes of text, got %d", len(page.Text))
		}
		if !strings.Contains(logs.String(), "response body truncated") || !strings.Contains(logs.String(), "limit=10") {
			t.Errorf("expected truncation to be logged, got %s", logs.String())
		}
	})

	t.Run("body at the limit is not reported as truncated", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(strings.Repeat("x", 10))) //nolint:errcheck
		}))
		defer server.Close()

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

		page, err := New(server.Client(), WithMaxBodySize(10), WithLogger(logger)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Text) != 10 {
			t.Errorf("expected 10 bytes of text, got %d", len(page.Text))
		}
		if strings.Contains(logs.String(), "truncated") {
			t.Errorf("expected no truncation log, got %s", logs.String())
		}
	})
}

// TestFetchErrors tests that every failure becomes a FetchError.
func TestFetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("client error status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		}))
		defer server.Close()

		_, err := New(server.Client()).Fetch(context.Background(), server.URL+"/missing")
		if err == nil {
			t.Fatal("expected error")
		}

		want := "Error during scraping: 404 Client Error: Not Found for url: " + server.URL + "/missing"
		if err.Error() != want {
			t.Errorf("expected %q, got %q", want, err.Error())
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatal("expected StatusError cause")
		}
		if statusErr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", statusErr.Code)
		}
	})

	t.Run("server error status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.HasPrefix(err.Error(), "Error during scraping: 503 Server Error: Service Unavailable for url: ") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		addr := server.URL
		server.Close()

		_, err := New(nil).Fetch(context.Background(), addr)
		if err == nil {
			t.Fatal("expected error")
		}
		if !model.IsFetchError(err) {
			t.Errorf("expected FetchError, got %T", err)
		}
		if !strings.HasPrefix(err.Error(), model.ErrorMarker+": ") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()

		_, err := New(nil).Fetch(context.Background(), "example.com")
		if !model.IsFetchError(err) {
			t.Errorf("expected FetchError, got %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(500 * time.Millisecond)
			_, _ = w.Write([]byte("slow")) //nolint:errcheck
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := New(server.Client()).Fetch(ctx, server.URL)
		if !model.IsFetchError(err) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded cause, got %v", err)
		}
	})
}

// TestParseDocument tests visible text extraction.
func TestParseDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips tags",
			input: `<div><h1>Title</h1><p>Body <i>text</i></p></div>`,
			want:  "TitleBody text",
		},
		{
			name:  "excludes script and style",
			input: `<head><style>p{color:red}</style><script>var x = 1;</script></head><body>Visible</body>`,
			want:  "Visible",
		},
		{
			name:  "excludes comments",
			input: `<body>before<!-- hidden -->after</body>`,
			want:  "beforeafter",
		},
		{
			name:  "excludes noscript and template",
			input: `<body><noscript>enable js</noscript><template><p>tpl</p></template>shown</body>`,
			want:  "shown",
		},
		{
			name:  "keeps whitespace",
			input: "<body><p>a</p>\n<p>b</p></body>",
			want:  "a\nb",
		},
		{
			name:  "decodes entities",
			input: `<p>Fish &amp; Chips</p>`,
			want:  "Fish & Chips",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root, err := html.Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}
			if got := parseDocument(root).text; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestParseMode tests extraction mode parsing.
func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "", want: ModeText},
		{input: "text", want: ModeText},
		{input: "ARTICLE", want: ModeArticle},
		{input: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestStatusError tests HTTP status error messages.
func TestStatusError(t *testing.T) {
	t.Parallel()

	err := &StatusError{Code: 418, Reason: reasonPhrase("418 I'm a teapot", 418), URL: "http://x/"}
	if err.Error() != "418 Client Error: I'm a teapot for url: http://x/" {
		t.Errorf("unexpected message %q", err.Error())
	}

	if got := reasonPhrase("500", 500); got != "Internal Server Error" {
		t.Errorf("expected fallback reason, got %q", got)
	}
}
