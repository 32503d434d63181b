// Package fetcher downloads a single web page and extracts its visible text.
//
// # Architecture
//
// The Fetcher type performs one blocking HTTP GET per call. It never
// follows links found on the page and never retries. Every failure, whether
// the request could not be sent or the server answered with an HTTP error
// status, is returned as a *model.FetchError whose message is
// "Error during scraping: <cause>".
//
// # Extraction modes
//
//   - ModeText (default): all text nodes of the document in document order,
//     tags stripped, comments and script/style/template/noscript contents
//     excluded. Whitespace is kept as the parser produced it unless
//     WithCollapseWhitespace is set.
//   - ModeArticle: main-content extraction with go-readability. The
//     rendered article is flattened to paragraphs with goquery, with a
//     bluemonday strict policy as the last resort. Falls back to ModeText
//     when no article is found.
//
// # Usage
//
//	f := fetcher.New(httpClient, fetcher.WithUserAgent("scrapeflow/1.0"))
//	page, err := f.Fetch(ctx, "https://example.com")
//	if err != nil {
//		// err.Error() == "Error during scraping: ..."
//	}
//
// Response bodies are decoded to UTF-8 based on the Content-Type header and
// <meta charset> declarations, and are read up to a configurable limit.
package fetcher
