package config

import "time"

// Config is the complete weft configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`
	// Engine configures orchestrator behavior.
	Engine EngineConfig `yaml:"engine"`
	// Telemetry configures the OTel SDK.
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Store configures run/workflow persistence.
	Store StoreConfig `yaml:"store"`
	// Cache configures the redis run-result cache.
	Cache CacheConfig `yaml:"cache"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
}

// EngineConfig controls orchestrator behavior.
type EngineConfig struct {
	// TokenEncoding names the tiktoken encoding used for token
	// accounting. Empty selects cl100k_base.
	TokenEncoding string `yaml:"token_encoding"`
	// AgentRateLimit caps collaborator calls per second. Zero disables
	// throttling.
	AgentRateLimit float64 `yaml:"agent_rate_limit"`
	// AgentBurst is the limiter burst size when throttling is enabled.
	AgentBurst int `yaml:"agent_burst"`
}

// TelemetryConfig controls the OTel SDK. When Enabled is false no
// exporters are created.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// StoreConfig controls persistence. Driver selects sqlite, mysql, or
// postgres; DSN is driver-specific.
type StoreConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig controls the redis run-result cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	PoolSize   int           `yaml:"pool_size"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			TokenEncoding: "cl100k_base",
			AgentBurst:    1,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "weft",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Store: StoreConfig{
			Enabled:         false,
			Driver:          "sqlite",
			DSN:             "weft.db",
			MaxIdleConns:    2,
			MaxOpenConns:    10,
			ConnMaxLifetime: time.Hour,
		},
		Cache: CacheConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   10,
			DefaultTTL: 5 * time.Minute,
		},
	}
}
