package tor

import (
	"net/url"
	"strings"
)

// IsOnionHost reports whether host is a Tor hidden service name.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSuffix(host, ".")), ".onion")
}

// IsOnionURL reports whether the host of rawURL is a Tor hidden service.
// Unparseable URLs report false.
func IsOnionURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return IsOnionHost(u.Hostname())
}

// AnyOnion reports whether any of urls points to a hidden service.
func AnyOnion(urls []string) bool {
	for _, u := range urls {
		if IsOnionURL(u) {
			return true
		}
	}
	return false
}
