package fetcher

import (
	"fmt"
	"time"

	pkgconfig "feedmill/pkg/config"
)

// Config holds the security and performance limits shared by the plain and
// rendered fetch strategies.
type Config struct {
	// Timeout bounds a single HTTP round trip (or render-service call).
	Timeout time.Duration

	// MaxBodySize is the maximum response body size accepted, in bytes.
	MaxBodySize int64

	// MaxRedirects caps the redirect chain the plain fetcher will follow.
	MaxRedirects int

	// DenyPrivateIPs blocks requests (and redirect targets) that resolve to
	// a private, loopback, or link-local address (SSRF prevention).
	DenyPrivateIPs bool

	// RenderServiceURL is the base URL of the external headless-browser
	// rendering service used by the rendered fetch strategy (spec §4.3),
	// including the account segment (spec §6: ".../accounts/{acct}").
	RenderServiceURL string

	// RenderServiceToken authenticates against the rendering service, sent
	// as a bearer token. Empty disables the header (e.g. local test doubles).
	RenderServiceToken string
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:          10 * time.Second,
		MaxBodySize:      10 * 1024 * 1024,
		MaxRedirects:     5,
		DenyPrivateIPs:   true,
		RenderServiceURL: "http://localhost:9222",
	}
}

// Validate rejects configurations that would be unsafe or nonsensical.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("fetcher: timeout must be positive, got %v", c.Timeout)
	}
	minBodySize, maxBodySize := int64(1024), int64(100*1024*1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("fetcher: max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("fetcher: max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv loads FETCHER_* environment variables over the defaults,
// via the fail-open pkg/config.GetEnv* helpers (an unparseable value logs a
// warning and falls back to the current default rather than erroring).
// Validate still runs at the end to reject values that parsed fine but are
// out of the accepted range.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.Timeout = pkgconfig.GetEnvDuration("FETCHER_TIMEOUT", cfg.Timeout)
	cfg.MaxBodySize = int64(pkgconfig.GetEnvInt("FETCHER_MAX_BODY_SIZE", int(cfg.MaxBodySize)))
	cfg.MaxRedirects = pkgconfig.GetEnvInt("FETCHER_MAX_REDIRECTS", cfg.MaxRedirects)
	cfg.DenyPrivateIPs = pkgconfig.GetEnvBool("FETCHER_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)
	cfg.RenderServiceURL = pkgconfig.GetEnvString("FETCHER_RENDER_SERVICE_URL", cfg.RenderServiceURL)
	cfg.RenderServiceToken = pkgconfig.GetEnvString("FETCHER_RENDER_SERVICE_TOKEN", cfg.RenderServiceToken)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
