package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppEnvLocal selects human-readable console logging.
const AppEnvLocal = "local"

var (
	errInvalidPort     = errors.New("HTTP_PORT must be between 1 and 65535")
	errInvalidBatchMax = errors.New("PREVIEW_BATCH_MAX must be positive")
	errInvalidTimeout  = errors.New("PREVIEW_FETCH_TIMEOUT must be positive")
	errInvalidIdleTTL  = errors.New("PREVIEW_CLIENT_IDLE_TTL must be positive")
)

type Config struct {
	AppEnv          string        `env:"APP_ENV" envDefault:"local"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	// TrustProxyHeaders takes client addresses from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	Preview PreviewConfig
	Sources SourcesConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyPlatformAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%w: %d", errInvalidPort, c.HTTPPort)
	}

	if c.Preview.BatchMax <= 0 {
		return fmt.Errorf("%w: %d", errInvalidBatchMax, c.Preview.BatchMax)
	}

	if c.Preview.FetchTimeout <= 0 {
		return fmt.Errorf("%w: %s", errInvalidTimeout, c.Preview.FetchTimeout)
	}

	if c.Preview.ClientIdleTTL <= 0 {
		return fmt.Errorf("%w: %s", errInvalidIdleTTL, c.Preview.ClientIdleTTL)
	}

	return nil
}

// IsLocal reports whether the service runs on a developer machine.
func (c *Config) IsLocal() bool {
	return strings.EqualFold(c.AppEnv, AppEnvLocal)
}

// applyPlatformAliases honors PORT as set by most container platforms when
// HTTP_PORT is not given explicitly.
func applyPlatformAliases(cfg *Config) {
	if !hasEnv("HTTP_PORT") {
		setIntFromEnv("PORT", &cfg.HTTPPort)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}
