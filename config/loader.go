package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every environment override key.
const envPrefix = "WEFT_"

// Load builds the configuration in precedence order: defaults, then
// the YAML file at path (skipped when path is empty), then WEFT_
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Store.Enabled {
		switch c.Store.Driver {
		case "sqlite", "mysql", "postgres":
		default:
			return fmt.Errorf("invalid store driver %q", c.Store.Driver)
		}
	}
	if c.Engine.AgentRateLimit < 0 {
		return fmt.Errorf("agent_rate_limit must not be negative")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample_rate must be in [0, 1]")
	}
	return nil
}

// applyEnv overrides individual fields from the environment.
func applyEnv(cfg *Config) {
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setString(&cfg.Engine.TokenEncoding, "ENGINE_TOKEN_ENCODING")
	setFloat(&cfg.Engine.AgentRateLimit, "ENGINE_AGENT_RATE_LIMIT")
	setInt(&cfg.Engine.AgentBurst, "ENGINE_AGENT_BURST")

	setBool(&cfg.Telemetry.Enabled, "TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.ServiceName, "TELEMETRY_SERVICE_NAME")
	setString(&cfg.Telemetry.OTLPEndpoint, "TELEMETRY_OTLP_ENDPOINT")
	setFloat(&cfg.Telemetry.SampleRate, "TELEMETRY_SAMPLE_RATE")

	setBool(&cfg.Store.Enabled, "STORE_ENABLED")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.DSN, "STORE_DSN")
	setInt(&cfg.Store.MaxIdleConns, "STORE_MAX_IDLE_CONNS")
	setInt(&cfg.Store.MaxOpenConns, "STORE_MAX_OPEN_CONNS")
	setDuration(&cfg.Store.ConnMaxLifetime, "STORE_CONN_MAX_LIFETIME")

	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.Addr, "CACHE_ADDR")
	setString(&cfg.Cache.Password, "CACHE_PASSWORD")
	setInt(&cfg.Cache.DB, "CACHE_DB")
	setInt(&cfg.Cache.PoolSize, "CACHE_POOL_SIZE")
	setDuration(&cfg.Cache.DefaultTTL, "CACHE_DEFAULT_TTL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
