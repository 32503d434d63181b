package config

// SiteConfig holds request settings for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Mode overrides the extraction mode for this site.
	Mode string `yaml:"mode,omitempty"`
}

// IsZero reports whether the configuration sets nothing.
func (sc SiteConfig) IsZero() bool {
	return sc.Cookie == "" && len(sc.Headers) == 0 && sc.UserAgent == "" && sc.Mode == ""
}

// LLMConfig holds the narration settings of the configuration file.
// The API key is never read from this file. It comes from the environment, a
// .env file or the --api-key flag.
type LLMConfig struct {
	// Model is the chat model name.
	Model string `yaml:"model,omitempty"`

	// BaseURL is an OpenAI compatible API endpoint.
	BaseURL string `yaml:"baseURL,omitempty"`
}

// File represents the structure of the .scrapeflow configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are host names without scheme or port (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// LLM holds the narration settings.
	LLM LLMConfig `yaml:"llm,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	// Copy so that merging never writes into Defaults.Headers.
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
		if siteConfig.Mode != "" {
			result.Mode = siteConfig.Mode
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
