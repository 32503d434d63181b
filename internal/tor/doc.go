// Package tor routes page fetches through a SOCKS5 proxy.
//
// Client wraps a golang.org/x/net/proxy SOCKS5 dialer and builds the
// *http.Client the fetcher uses. EmbeddedTor starts a private Tor daemon
// with tornago so that .onion pages can be fetched without a system Tor
// installation.
package tor
