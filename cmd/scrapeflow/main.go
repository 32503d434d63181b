// Package main provides the entry point for the scrapeflow CLI.
//
// scrapeflow fetches a web page, summarizes its text and writes a short
// report from the summary. Runs are kept in a local history database so
// that later runs can tell whether the page changed.
//
// Usage:
//
//	scrapeflow run <url>
//	scrapeflow serve
//	scrapeflow history [url]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
