package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rentwise/rentd/internal/domain/schedule"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "rentd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "RENTD_PORT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "RENTD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "RENTD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "RENTD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "RENTD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "RENTD_PG_HEALTH_CHECK")
	setBool(&cfg.NATS.Enabled, "RENTD_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.MaxCostBytes, "RENTD_CACHE_MAX_COST_BYTES")
	setDuration(&cfg.Cache.TTL, "RENTD_CACHE_TTL")
	setString(&cfg.SMTP.Host, "RENTD_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "RENTD_SMTP_PORT")
	setString(&cfg.SMTP.From, "RENTD_SMTP_FROM")
	setString(&cfg.SMTP.Password, "RENTD_SMTP_PASSWORD")
	setString(&cfg.Logging.Level, "RENTD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "RENTD_LOG_SERVICE")
	setInt(&cfg.Dispatch.Workers, "RENTD_DISPATCH_WORKERS")
	setInt(&cfg.Dispatch.QueueSize, "RENTD_DISPATCH_QUEUE_SIZE")
	setBool(&cfg.Sweep.Enabled, "RENTD_SWEEP_ENABLED")
	setString(&cfg.Sweep.StatusSchedule, "RENTD_SWEEP_STATUS_SCHEDULE")
	setString(&cfg.Sweep.ExpirySchedule, "RENTD_SWEEP_EXPIRY_SCHEDULE")
	setString(&cfg.Sweep.UrgentExpirySchedule, "RENTD_SWEEP_URGENT_EXPIRY_SCHEDULE")
	setString(&cfg.Sweep.RenewableSchedule, "RENTD_SWEEP_RENEWABLE_SCHEDULE")
	setString(&cfg.Sweep.OverdueSchedule, "RENTD_SWEEP_OVERDUE_SCHEDULE")
	setInt(&cfg.Sweep.ExpiryDaysAhead, "RENTD_SWEEP_EXPIRY_DAYS_AHEAD")
	setInt(&cfg.Sweep.UrgentDaysAhead, "RENTD_SWEEP_URGENT_DAYS_AHEAD")
	setInt(&cfg.Sweep.RenewableDaysAhead, "RENTD_SWEEP_RENEWABLE_DAYS_AHEAD")
}

// validate rejects configurations the service cannot run with.
func validate(cfg *Config) error {
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}
	if cfg.Dispatch.Workers < 1 {
		return fmt.Errorf("dispatch workers must be at least 1")
	}
	if cfg.Dispatch.QueueSize < 1 {
		return fmt.Errorf("dispatch queue size must be at least 1")
	}
	for name, expr := range map[string]string{
		"status_schedule":        cfg.Sweep.StatusSchedule,
		"expiry_schedule":        cfg.Sweep.ExpirySchedule,
		"urgent_expiry_schedule": cfg.Sweep.UrgentExpirySchedule,
		"renewable_schedule":     cfg.Sweep.RenewableSchedule,
		"overdue_schedule":       cfg.Sweep.OverdueSchedule,
	} {
		if _, err := schedule.Parse(expr); err != nil {
			return fmt.Errorf("sweep %s: %w", name, err)
		}
	}
	if cfg.Sweep.ExpiryDaysAhead < 1 || cfg.Sweep.UrgentDaysAhead < 1 || cfg.Sweep.RenewableDaysAhead < 1 {
		return fmt.Errorf("sweep look-ahead windows must be at least 1 day")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
