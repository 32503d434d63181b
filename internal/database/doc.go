// Package database provides SQLite-based run history for scrapeflow.
//
// RunDB stores every finished workflow run with its status, output and the
// content hash of the fetched page, plus the full run as JSON. The history
// lets the CLI and the web UI show past runs and tell whether a page
// changed since it was last scraped.
//
// The database is a single file (modernc.org/sqlite, no cgo) in WAL mode
// with one open connection.
package database
