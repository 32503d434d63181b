package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/scrapeflow/internal/model"
)

// Mode selects how text is extracted from a page.
type Mode string

const (
	// ModeText extracts all visible text of the document.
	ModeText Mode = "text"

	// ModeArticle extracts the main article of the document.
	ModeArticle Mode = "article"
)

// ParseMode converts a configuration value to a Mode.
// The empty string selects ModeText.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeText:
		return ModeText, nil
	case ModeArticle:
		return ModeArticle, nil
	default:
		return "", fmt.Errorf("unknown extraction mode %q (expected %q or %q)", s, ModeText, ModeArticle)
	}
}

// DefaultMaxBodySize is the default limit of bytes read from a response.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

// SiteSettings overrides request settings for one host.
// Zero values keep the fetcher defaults.
type SiteSettings struct {
	// Headers are added to the request.
	Headers map[string]string

	// Cookie is sent as the Cookie header.
	Cookie string

	// UserAgent replaces the fetcher's User-Agent.
	UserAgent string

	// Mode replaces the fetcher's extraction mode.
	Mode Mode
}

// SiteResolver looks up per-host settings.
type SiteResolver interface {
	// SiteSettings returns the settings for host and whether any exist.
	SiteSettings(host string) (SiteSettings, bool)
}

// Fetcher downloads a page and extracts its text.
// A Fetcher is safe for concurrent use when its http.Client is.
type Fetcher struct {
	// client performs the request. It decides timeouts, proxying and
	// redirect policy.
	client *http.Client

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// collapse replaces runs of whitespace in the text with one space.
	collapse bool

	// mode is the default extraction mode.
	mode Mode

	// sites provides per-host overrides. May be nil.
	sites SiteResolver

	// logger receives debug output.
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
// Values below 1 keep the default.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithCollapseWhitespace enables whitespace normalization of the text.
func WithCollapseWhitespace(collapse bool) Option {
	return func(f *Fetcher) {
		f.collapse = collapse
	}
}

// WithMode sets the default extraction mode.
func WithMode(mode Mode) Option {
	return func(f *Fetcher) {
		f.mode = mode
	}
}

// WithSiteResolver sets the source of per-host settings.
func WithSiteResolver(r SiteResolver) Option {
	return func(f *Fetcher) {
		f.sites = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher that sends requests with client.
// A nil client is replaced by http.DefaultClient.
func New(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	f := &Fetcher{
		client:      client,
		userAgent:   "scrapeflow",
		maxBodySize: DefaultMaxBodySize,
		mode:        ModeText,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch performs one GET request for rawURL and returns the page text.
// Any failure is returned as a *model.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.PageContent, error) {
	page, err := f.fetch(ctx, rawURL)
	if err != nil {
		f.logger.Debug("fetch failed", "url", rawURL, "error", err)
		return nil, model.NewFetchError(rawURL, err)
	}

	f.logger.Debug("fetched page",
		"url", rawURL,
		"status", page.StatusCode,
		"characters", page.Length(),
	)
	return page, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*model.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	site, _ := f.siteSettings(req.URL.Hostname())
	f.setHeaders(req, site)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL
	if isErrorStatus(resp.StatusCode) {
		return nil, &StatusError{
			Code:   resp.StatusCode,
			Reason: reasonPhrase(resp.Status, resp.StatusCode),
			URL:    finalURL.String(),
		}
	}

	// Read one byte past the limit to tell a full body from a cut one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		body = body[:f.maxBodySize]
		f.logger.Debug("response body truncated",
			"url", finalURL.String(),
			"limit", f.maxBodySize,
		)
	}

	contentType := resp.Header.Get("Content-Type")
	decoded, err := decode(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}
	doc := parseDocument(root)

	page := &model.PageContent{
		URL:         rawURL,
		FinalURL:    finalURL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Title:       doc.title,
		Description: doc.description,
		LinkCount:   doc.linkCount,
		Text:        f.extractText(decoded, doc, finalURL, site),
		FetchedAt:   time.Now(),
	}
	page.ComputeHash()

	return page, nil
}

// extractText applies the extraction mode to a decoded body.
func (f *Fetcher) extractText(body []byte, doc *document, pageURL *url.URL, site SiteSettings) string {
	mode := f.mode
	if site.Mode != "" {
		mode = site.Mode
	}

	if mode == ModeArticle {
		if text, ok := extractArticle(body, pageURL); ok {
			return text
		}
		f.logger.Debug("no article found, using visible text", "url", pageURL.String())
	}

	if f.collapse {
		return collapseWhitespace(doc.text)
	}
	return doc.text
}

// setHeaders sets the request headers.
func (f *Fetcher) setHeaders(req *http.Request, site SiteSettings) {
	ua := f.userAgent
	if site.UserAgent != "" {
		ua = site.UserAgent
	}

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	for k, v := range site.Headers {
		req.Header.Set(k, v)
	}
	if site.Cookie != "" {
		req.Header.Set("Cookie", site.Cookie)
	}
}

func (f *Fetcher) siteSettings(host string) (SiteSettings, bool) {
	if f.sites == nil || host == "" {
		return SiteSettings{}, false
	}
	return f.sites.SiteSettings(host)
}

// decode converts body to UTF-8 using the declared or sniffed charset.
func decode(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
