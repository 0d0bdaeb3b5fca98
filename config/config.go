// Package config reads server settings from flags, falling back to
// environment variables and then to built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"activities-api/registration"
)

// Config holds everything main needs to start the server.
type Config struct {
	Addr            string
	DatabaseURL     string
	StaticDir       string
	SeedCatalog     string
	LogLevel        string
	LogFormat       string
	RateLimit       int
	RateWindow      time.Duration
	UnregisterMode  registration.UnregisterMode
	ShutdownTimeout time.Duration
}

// Load parses args (without the program name). getenv supplies the
// environment, normally os.Getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	rateLimit, err := envInt(getenv, "RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	rateWindow, err := envDuration(getenv, "RATE_WINDOW", 10*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration(getenv, "SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	var (
		cfg  Config
		mode string
	)
	fs := flag.NewFlagSet("activities-api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "addr", env("ADDR", ":8080"), "Server listen address")
	fs.StringVar(&cfg.DatabaseURL, "dsn", env("DATABASE_URL", "sqlite:///./school_activities.db"), "SQLite path or postgres:// URL")
	fs.StringVar(&cfg.StaticDir, "static", env("STATIC_DIR", "static"), "Directory served under /static/")
	fs.StringVar(&cfg.SeedCatalog, "seed-catalog", env("SEED_CATALOG", ""), "HCL seed catalog (built-in when empty)")
	fs.StringVar(&cfg.LogLevel, "log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", env("LOG_FORMAT", "json"), "json or text")
	fs.IntVar(&cfg.RateLimit, "rate-limit", rateLimit, "Requests per client per window, 0 disables")
	fs.DurationVar(&cfg.RateWindow, "rate-window", rateWindow, "Rate limit window")
	fs.StringVar(&mode, "unregister-mode", env("UNREGISTER_MODE", string(registration.UnregisterDelete)), "delete or cancel")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", shutdownTimeout, "Grace period for in-flight requests")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.UnregisterMode, err = registration.ParseUnregisterMode(mode); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database URL is required"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		errs = append(errs, errors.New("rate window must be positive when rate limiting is enabled"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	return errors.Join(errs...)
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
