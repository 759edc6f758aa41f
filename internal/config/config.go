package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Graph   GraphConfig
	Logging LoggingConfig
	Ledger  LedgerConfig
	Redis   RedisConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
	RateLimitRPS      float64
	RateLimitBurst    int
	TrustedProxiesCSV string
}

// GraphConfig describes connectivity to the Neo4j ledger store.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	// BreakerFailures consecutive store failures open the circuit for BreakerTimeout.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	Colored       bool
	IncludeCaller bool
}

// LedgerConfig holds the team defaults every aggregation falls back to.
type LedgerConfig struct {
	Timezone            string
	DayOffset           time.Duration
	Currency            string
	HotWindow           time.Duration
	NewClientMultiplier float64
	TeamsFile           string
}

// RedisConfig enables the distributed client lock when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

const (
	defaultHost                = "0.0.0.0"
	defaultPort                = 8080
	defaultReadTimeout         = 10 * time.Second
	defaultWriteTimeout        = 15 * time.Second
	defaultIdleTimeout         = 60 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultLoggingLevel        = "info"
	defaultLoggingFormat       = "text"
	defaultGraphMaxSessions    = 10
	defaultTimezone            = "Europe/Prague"
	defaultDayOffset           = 2 * time.Hour
	defaultCurrency            = "CZK"
	defaultHotWindow           = 60 * time.Minute
	defaultNewClientMultiplier = 2.0
	defaultLockTTL             = 10 * time.Second
	defaultBreakerFailures     = 5
	defaultBreakerTimeout      = 30 * time.Second
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			MetricsEnabled:    parseBoolWithDefault("SERVER_METRICS_ENABLED", false),
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
			RateLimitBurst:    parseIntWithDefault("SERVER_RATE_LIMIT_BURST", 0),
			TrustedProxiesCSV: os.Getenv("SERVER_TRUSTED_PROXIES"),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Colored:       parseBoolWithDefault("LOG_COLOR", false),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:             os.Getenv("GRAPH_URI"),
			Database:        valueOrDefault("GRAPH_DATABASE", ""),
			Username:        os.Getenv("GRAPH_USERNAME"),
			Password:        os.Getenv("GRAPH_PASSWORD"),
			MaxConnections:  parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
			BreakerFailures: parseIntWithDefault("GRAPH_BREAKER_FAILURES", defaultBreakerFailures),
		},
		Ledger: LedgerConfig{
			Timezone:  valueOrDefault("LEDGER_TIMEZONE", defaultTimezone),
			Currency:  valueOrDefault("LEDGER_CURRENCY", defaultCurrency),
			TeamsFile: os.Getenv("LEDGER_TEAMS_FILE"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       parseIntWithDefault("REDIS_DB", 0),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"LEDGER_DAY_OFFSET", defaultDayOffset, &cfg.Ledger.DayOffset},
		{"LEDGER_HOT_WINDOW", defaultHotWindow, &cfg.Ledger.HotWindow},
		{"LOCK_TTL", defaultLockTTL, &cfg.Redis.LockTTL},
		{"GRAPH_BREAKER_TIMEOUT", defaultBreakerTimeout, &cfg.Graph.BreakerTimeout},
	}
	for _, d := range durations {
		val, err := parseDurationWithDefault(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = val
	}

	if cfg.Ledger.NewClientMultiplier, err = parseFloat("LEDGER_NEW_CLIENT_MULTIPLIER", defaultNewClientMultiplier); err != nil {
		return Config{}, err
	}
	if cfg.Ledger.NewClientMultiplier <= 0 {
		return Config{}, fmt.Errorf("LEDGER_NEW_CLIENT_MULTIPLIER must be positive")
	}
	if cfg.HTTP.RateLimitRPS, err = parseFloat("SERVER_RATE_LIMIT_RPS", 0); err != nil {
		return Config{}, err
	}
	if _, err := time.LoadLocation(cfg.Ledger.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid LEDGER_TIMEZONE %q: %w", cfg.Ledger.Timezone, err)
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDurationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return f, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
