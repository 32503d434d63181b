package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// PageContent is the text extracted from a fetched page.
// It is produced by the fetcher and consumed by the analyzer.
// Only Text takes part in the workflow; the other fields are metadata
// kept for reports and history.
type PageContent struct {
	// URL is the address that was requested.
	URL string `json:"url"`

	// FinalURL is the address after redirects were followed.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the value of the Content-Type response header.
	ContentType string `json:"content_type,omitempty"`

	// Title is the text of the <title> element, if any.
	Title string `json:"title,omitempty"`

	// Description is the content of <meta name="description">, if any.
	Description string `json:"description,omitempty"`

	// LinkCount is the number of anchors with an href on the page.
	LinkCount int `json:"link_count"`

	// Text is the visible text of the document.
	Text string `json:"text"`

	// Hash is the hex encoded SHA3-256 digest of Text.
	// It is used to tell whether a page changed between runs.
	Hash string `json:"hash"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash fills Hash from the current Text.
func (p *PageContent) ComputeHash() {
	sum := sha3.Sum256([]byte(p.Text))
	p.Hash = hex.EncodeToString(sum[:])
}

// Length returns the length of Text in characters (Unicode code points).
func (p *PageContent) Length() int {
	return len([]rune(p.Text))
}
