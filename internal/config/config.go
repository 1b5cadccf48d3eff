package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the staysearch service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Source     SourceConfig     `yaml:"source"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Search     SearchConfig     `yaml:"search"`
	Indexing   IndexingSettings `yaml:"indexing"`
	Relaxation RelaxationConfig `yaml:"relaxation"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Corrections lists relaxation values reset to defaults during Load.
	Corrections Report `yaml:"-"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
	// AdminKeys gate /v1/admin; empty falls back to APIKeys.
	AdminKeys []string `yaml:"admin_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Index Store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SourceConfig holds the system-of-record connection.
type SourceConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// KafkaConfig holds the domain-event consumer settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
	Topic   string   `yaml:"topic"`
}

// SearchConfig holds query-path settings.
type SearchConfig struct {
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around index reads.
type BreakerConfig struct {
	MaxRequests      uint32 `yaml:"max_requests"`
	IntervalSec      int    `yaml:"interval_sec"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// Interval is the closed-state counter reset period.
func (b BreakerConfig) Interval() time.Duration { return time.Duration(b.IntervalSec) * time.Second }

// Timeout is how long the breaker stays open.
func (b BreakerConfig) Timeout() time.Duration { return time.Duration(b.TimeoutSec) * time.Second }

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	// Seed section defaults so absent keys keep them while explicit bad values stay visible.
	cfg := Config{
		Indexing:   DefaultIndexingSettings(),
		Relaxation: DefaultRelaxationConfig(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Indexing.Check().Err(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Corrections = cfg.Relaxation.Normalize()

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty infrastructure fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Source.MaxConns <= 0 {
		c.Source.MaxConns = 10
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "staysearch-indexer"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "inventory.events"
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.Breaker.MaxRequests == 0 {
		c.Search.Breaker.MaxRequests = 1
	}
	if c.Search.Breaker.IntervalSec <= 0 {
		c.Search.Breaker.IntervalSec = 60
	}
	if c.Search.Breaker.TimeoutSec <= 0 {
		c.Search.Breaker.TimeoutSec = 10
	}
	if c.Search.Breaker.FailureThreshold == 0 {
		c.Search.Breaker.FailureThreshold = 5
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "staysearch:"
	}
}

// Validate checks the infrastructure sections for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be redis, valkey or memory, got %q", c.Database.Driver)
	}
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.enabled")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds search.max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
