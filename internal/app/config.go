package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the admin console.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`

	// PGDSN is optional; without it the approval and audit trails are disabled.
	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	BackendBaseURL      string        `envconfig:"BACKEND_BASE_URL" default:"http://127.0.0.1:8000/api"`
	BackendTimeout      time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	BackendServiceToken string        `envconfig:"BACKEND_SERVICE_TOKEN"`

	// FallbackEnabled is a pointer so that an unset value can default per environment.
	FallbackEnabled *bool `envconfig:"FALLBACK_ENABLED"`

	StatsRefreshInterval time.Duration `envconfig:"STATS_REFRESH_INTERVAL" default:"30s"`
	StatsCacheTTL        time.Duration `envconfig:"STATS_CACHE_TTL" default:"2m"`
	SnapshotTTL          time.Duration `envconfig:"SNAPSHOT_TTL" default:"24h"`
	SubmissionTTL        time.Duration `envconfig:"SUBMISSION_TTL" default:"60s"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"5"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	cfg.BackendBaseURL = strings.TrimRight(cfg.BackendBaseURL, "/")
	if cfg.BackendBaseURL == "" {
		return nil, errors.New("backend base url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// FixturesEnabled reports whether read paths may fall back to fixture data
// when the backend is unreachable. Unless set explicitly it is off in production.
func (c *Config) FixturesEnabled() bool {
	if c == nil {
		return false
	}
	if c.FallbackEnabled != nil {
		return *c.FallbackEnabled
	}
	return !c.IsProduction()
}
