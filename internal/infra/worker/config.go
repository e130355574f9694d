// Package worker hosts the feedmill process's own tunables (everything not
// already owned by a sub-package's own LoadConfigFromEnv) plus the
// process-wide health server. Grounded on the teacher's
// internal/infra/worker/config.go, rewritten to drop the fail-open
// ConfigMetrics machinery in favor of the simpler pkg/config env-loading
// idiom the rest of this repo's infra packages use (see
// internal/infra/fetcher/config.go, internal/infra/db/open.go): env vars
// load straight over defaults, a bad value is a startup error, not a
// silently-applied fallback.
package worker

import (
	"fmt"
	"strings"
	"time"

	"feedmill/internal/infra/embeddings"
	"feedmill/internal/ratelimit"
	pkgconfig "feedmill/pkg/config"
)

// DispatcherConfig mirrors the environment-configurable subset of
// internal/usecase/dispatch.Config (Bus/Worker/DeadLetters/Notifier are
// wired directly in cmd/worker/main.go, not loaded from env).
type DispatcherConfig struct {
	MaxConcurrentJobs int
	MaxAttempts       int
	JobSlotTimeout    time.Duration
}

// Config aggregates every environment-configurable knob the worker process
// owns directly, beyond what each infra sub-package already self-loads
// (fetcher.Config, analyzer.Config).
type Config struct {
	// BusBufferSize sizes the in-process scraper-to-dispatcher channel
	// (internal/infra/bus.New).
	BusBufferSize int

	RateLimiter ratelimit.Config
	Dispatcher  DispatcherConfig

	// TrickyHosts lists hostnames that always use the headless-render
	// fetch strategy, never the plain one (spec §4.3).
	TrickyHosts map[string]bool

	// BlobRoot is the filesystem root internal/infra/blobstore.FileStore
	// writes raw article text under.
	BlobRoot string

	HealthPort  int
	MetricsPort int
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		BusBufferSize: 1000,
		RateLimiter: ratelimit.Config{
			MaxConcurrent:  10,
			GlobalCooldown: time.Second,
			DomainCooldown: 5 * time.Second,
		},
		Dispatcher: DispatcherConfig{
			MaxConcurrentJobs: 10,
			MaxAttempts:       5,
			JobSlotTimeout:    5 * time.Second,
		},
		TrickyHosts: map[string]bool{},
		BlobRoot:    "/var/lib/feedmill/articles",
		HealthPort:  9091,
		MetricsPort: 9090,
	}
}

// Validate rejects nonsensical configurations.
func (c Config) Validate() error {
	if c.BusBufferSize <= 0 {
		return fmt.Errorf("worker: bus buffer size must be positive, got %d", c.BusBufferSize)
	}
	if c.RateLimiter.MaxConcurrent <= 0 {
		return fmt.Errorf("worker: ratelimiter max concurrent must be positive, got %d", c.RateLimiter.MaxConcurrent)
	}
	if c.RateLimiter.DomainCooldown <= 0 {
		return fmt.Errorf("worker: ratelimiter domain cooldown must be positive, got %v", c.RateLimiter.DomainCooldown)
	}
	if c.Dispatcher.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("worker: dispatcher max concurrent jobs must be positive, got %d", c.Dispatcher.MaxConcurrentJobs)
	}
	if c.Dispatcher.MaxAttempts <= 0 {
		return fmt.Errorf("worker: dispatcher max attempts must be positive, got %d", c.Dispatcher.MaxAttempts)
	}
	if c.BlobRoot == "" {
		return fmt.Errorf("worker: blob root must not be empty")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("worker: health port must be between 1 and 65535, got %d", c.HealthPort)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("worker: metrics port must be between 1 and 65535, got %d", c.MetricsPort)
	}
	return nil
}

// LoadConfigFromEnv loads WORKER_*/RATELIMITER_*/DISPATCHER_* environment
// variables over the defaults.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.BusBufferSize = pkgconfig.GetEnvInt("WORKER_BUS_BUFFER_SIZE", cfg.BusBufferSize)

	cfg.RateLimiter.MaxConcurrent = pkgconfig.GetEnvInt("RATELIMITER_MAX_CONCURRENT", cfg.RateLimiter.MaxConcurrent)
	cfg.RateLimiter.GlobalCooldown = pkgconfig.GetEnvDuration("RATELIMITER_GLOBAL_COOLDOWN", cfg.RateLimiter.GlobalCooldown)
	cfg.RateLimiter.DomainCooldown = pkgconfig.GetEnvDuration("RATELIMITER_DOMAIN_COOLDOWN", cfg.RateLimiter.DomainCooldown)

	cfg.Dispatcher.MaxConcurrentJobs = pkgconfig.GetEnvInt("DISPATCHER_MAX_CONCURRENT_JOBS", cfg.Dispatcher.MaxConcurrentJobs)
	cfg.Dispatcher.MaxAttempts = pkgconfig.GetEnvInt("DISPATCHER_MAX_ATTEMPTS", cfg.Dispatcher.MaxAttempts)
	cfg.Dispatcher.JobSlotTimeout = pkgconfig.GetEnvDuration("DISPATCHER_JOB_SLOT_TIMEOUT", cfg.Dispatcher.JobSlotTimeout)

	if hosts := pkgconfig.GetEnvStringList("WORKER_TRICKY_HOSTS", nil); len(hosts) > 0 {
		cfg.TrickyHosts = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			h = strings.TrimSpace(h)
			if h != "" {
				cfg.TrickyHosts[h] = true
			}
		}
	}

	cfg.BlobRoot = pkgconfig.GetEnvString("WORKER_BLOB_ROOT", cfg.BlobRoot)
	cfg.HealthPort = pkgconfig.GetEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort)
	cfg.MetricsPort = pkgconfig.GetEnvInt("WORKER_METRICS_PORT", cfg.MetricsPort)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEmbeddingsConfig loads the embeddings service's Config from env. It
// lives here rather than in internal/infra/embeddings because, unlike
// fetcher and analyzer, the embeddings client has no optional no-op mode:
// BASE_URL is mandatory, so validation belongs next to the rest of the
// worker's required-at-startup configuration.
func LoadEmbeddingsConfig() (embeddings.Config, error) {
	cfg := embeddings.Config{
		BaseURL:        pkgconfig.GetEnvString("EMBEDDINGS_BASE_URL", ""),
		APIToken:       pkgconfig.GetEnvString("EMBEDDINGS_API_TOKEN", ""),
		Dimension:      pkgconfig.GetEnvInt("EMBEDDINGS_DIMENSION", 384),
		Timeout:        pkgconfig.GetEnvDuration("EMBEDDINGS_TIMEOUT", 30*time.Second),
		CallsPerMinute: pkgconfig.GetEnvInt("EMBEDDINGS_CALLS_PER_MINUTE", 60),
	}
	if cfg.BaseURL == "" {
		return cfg, fmt.Errorf("worker: EMBEDDINGS_BASE_URL is required")
	}
	return cfg, nil
}
