package staysearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/config"
	"github.com/kailas-cloud/staysearch/internal/usecase/indexing"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "memory"
	addrs    []string
	password string

	sourceDSN string
	source    indexing.Source // test hook, takes precedence over sourceDSN

	keyPrefix  string
	indexing   config.IndexingSettings
	relaxation config.RelaxationConfig
	pageSize   int
	maxPage    int

	logger     *slog.Logger
	zap        *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:  "staysearch:",
		indexing:   config.DefaultIndexingSettings(),
		relaxation: config.DefaultRelaxationConfig(),
		pageSize:   20,
		maxPage:    100,
	}
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps the index in process. Useful for tests and demos.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithSource connects the indexer to the system of record. Without it the
// client is search-only and Events and Rebuild return ErrSourceNotConfigured.
func WithSource(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.sourceDSN = dsn
	})
}

// WithKeyPrefix namespaces every index key. Default: "staysearch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithMinResults sets how many matches stop the relaxation loop. Default: 5.
func WithMinResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.relaxation.MinResultsThreshold = n
	})
}

// WithoutRelaxation answers every search strictly.
func WithoutRelaxation() Option {
	return optionFunc(func(c *clientConfig) {
		c.relaxation.EnableFallback = false
	})
}

// WithPageSize sets the default and maximum page sizes. Defaults: 20 and 100.
func WithPageSize(def, maxSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.pageSize = def
		c.maxPage = maxSize
	})
}

// WithRetry sets how many times a failed index update is attempted.
// Default: 3.
func WithRetry(maxAttempts int) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexing.MaxRetryAttempts = maxAttempts
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithZapLogger passes a zap logger to the embedded indexer and search
// engine. Default: no-op.
func WithZapLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.zap = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// withSource injects a source reader instead of dialing WithSource's DSN.
func withSource(src indexing.Source) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = src
	})
}
