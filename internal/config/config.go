// README: Config loader with env defaults for HTTP, Redis, Postgres, and window settings.
package config

import (
	"fmt"
	"os"
	"time"
)

// WindowConfig holds the two per-order window durations.
type WindowConfig struct {
	Acceptance time.Duration
	Decision   time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	Redis struct {
		Addr string
	}
	DB struct {
		// DSN is optional; when empty the state-event journal is disabled.
		DSN string
	}
	Windows WindowConfig
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("DISPATCH_HTTP_ADDR", ":8080")
	cfg.Redis.Addr = envOrDefault("DISPATCH_REDIS_ADDR", "localhost:6379")
	cfg.DB.DSN = os.Getenv("DISPATCH_DB_DSN")

	var err error
	cfg.Windows.Acceptance, err = envOrDefaultDuration("DISPATCH_ACCEPTANCE_WINDOW", 60*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.Windows.Decision, err = envOrDefaultDuration("DISPATCH_DECISION_WINDOW", 60*time.Second)
	if err != nil {
		return cfg, err
	}
	if cfg.Windows.Acceptance <= 0 || cfg.Windows.Decision <= 0 {
		return cfg, fmt.Errorf("window durations must be positive")
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
