package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	pkgconfig "github.com/nsouzarj/craweb/pkg/config"
)

// Session storage backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration for the console.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`

	// Backend API
	APIURL             string        `env:"CRA_API_URL" envDefault:"http://localhost:8080/cra-api/api"`
	HTTPTimeout        time.Duration `env:"CRA_HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxRetries     int           `env:"CRA_HTTP_MAX_RETRIES" envDefault:"1"`
	RetryNonIdempotent bool          `env:"CRA_HTTP_RETRY_NON_IDEMPOTENT" envDefault:"false"`
	NotifyDuration     time.Duration `env:"CRA_NOTIFY_DURATION" envDefault:"8s"`

	// Session storage
	SessionBackend string `env:"CRA_SESSION_BACKEND" envDefault:"file"`
	// SessionFile defaults to cra/session.json under the user config dir.
	SessionFile string `env:"CRA_SESSION_FILE"`

	// Redis
	RedisHost       string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix     string        `env:"CRA_SESSION_REDIS_PREFIX" envDefault:"cra:session:"`
	RedisSessionTTL time.Duration `env:"CRA_SESSION_REDIS_TTL" envDefault:"0s"`

	// Circuit breaker
	BreakerEnabled bool          `env:"CRA_BREAKER_ENABLED" envDefault:"false"`
	BreakerTimeout time.Duration `env:"CRA_BREAKER_TIMEOUT" envDefault:"30s"`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// MetricsFile, when set, receives the interceptor metrics in Prometheus
	// text format on exit.
	MetricsFile string `env:"CRA_METRICS_FILE"`
}

// Load reads configuration from environment variables.
func Load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load console config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid CRA_API_URL: %q", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("CRA_API_URL must be http or https, got %q", u.Scheme)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("CRA_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.HTTPMaxRetries < 0 {
		return fmt.Errorf("CRA_HTTP_MAX_RETRIES must not be negative, got %d", c.HTTPMaxRetries)
	}

	switch c.SessionBackend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.RedisPort < 1 || c.RedisPort > 65535 {
			return fmt.Errorf("invalid REDIS_PORT: %d", c.RedisPort)
		}
		if c.RedisSessionTTL < 0 {
			return fmt.Errorf("CRA_SESSION_REDIS_TTL must not be negative, got %s", c.RedisSessionTTL)
		}
	default:
		return fmt.Errorf("CRA_SESSION_BACKEND must be one of file, redis, memory; got %q", c.SessionBackend)
	}

	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %v", c.OTelSampleRate)
	}

	// Plain HTTP leaks bearer tokens outside a developer machine.
	if c.Environment != "development" && u.Scheme != "https" {
		return fmt.Errorf("CRA_API_URL must use https in %q mode", c.Environment)
	}
	return nil
}

// SessionFilePath returns where the file backend keeps the session.
func (c *Config) SessionFilePath() (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "cra", "session.json"), nil
}
