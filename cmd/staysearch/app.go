package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/config"
	"github.com/kailas-cloud/staysearch/internal/db"
	"github.com/kailas-cloud/staysearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/staysearch/internal/db/redis"
	"github.com/kailas-cloud/staysearch/internal/event"
	logpkg "github.com/kailas-cloud/staysearch/internal/logger"
	"github.com/kailas-cloud/staysearch/internal/metrics"
	"github.com/kailas-cloud/staysearch/internal/repository/source"
	"github.com/kailas-cloud/staysearch/internal/repository/unitindex"
	healthuc "github.com/kailas-cloud/staysearch/internal/usecase/health"
	"github.com/kailas-cloud/staysearch/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/staysearch/internal/usecase/search"
	"github.com/kailas-cloud/staysearch/internal/version"
)

// app is the composition root shared by serve and rebuild.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	store db.Store
	pool  *pgxpool.Pool

	index      *unitindex.Repo
	source     *source.Reader
	indexer    *indexing.Service
	guard      *indexing.Guard
	dispatcher *event.Dispatcher
	search     *searchuc.Service
	health     *healthuc.Service
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	if flags.configPath != "" {
		return config.LoadFile(flags.configPath)
	}
	return config.Load(flags.env)
}

func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(flags.env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{env: flags.env, cfg: cfg, logger: logger}

	logger.Info("Starting staysearch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", flags.env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)
	for _, v := range cfg.Corrections.Violations {
		logger.Warn("relaxation setting corrected",
			zap.String("section", cfg.Corrections.Section),
			zap.String("field", v.Field),
			zap.Any("value", v.Value),
			zap.String("rule", v.Rule),
			zap.Any("default", v.Default),
		)
	}

	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.pool, err = source.NewPool(ctx, cfg.Source.DSN, cfg.Source.MaxConns)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect source: %w", err)
	}
	logger.Info("Connected to source database")

	metrics.Register()

	a.index = unitindex.New(a.store, cfg.Storage.KeyPrefix, cfg.Indexing.DocumentTTL(), cfg.Indexing.TempKeyTTL())
	a.source = source.NewReader(a.pool)
	a.indexer = indexing.New(a.index, a.source, indexing.OptionsFrom(&cfg.Indexing), logger)
	a.guard = indexing.NewGuard(a.indexer, cfg.Indexing.MaxRetryAttempts, cfg.Indexing.RetryBaseDelay(), logger)
	a.dispatcher = event.NewDispatcher(a.guard, logger)
	a.search = searchuc.New(a.index,
		searchuc.SettingsFrom(cfg.Relaxation, cfg.Indexing.MaxResultsBeforePagination),
		searchuc.BreakerSettingsFrom(cfg.Search.Breaker),
		logger,
	)
	a.health = healthuc.New(a.store, a.source)

	if gen, err := a.index.ActiveGeneration(ctx); err == nil {
		metrics.ActiveGeneration.Set(float64(gen))
	}

	return a, nil
}

// openStore creates the Index Store for the configured driver. Redis and
// Valkey speak the same protocol and share one driver.
func (a *app) openStore(ctx context.Context) error {
	var err error
	switch a.cfg.Database.Driver {
	case "redis", "valkey":
		a.store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    a.cfg.Database.Addrs,
			Password: a.cfg.Database.Password,
		})
	case "memory":
		a.logger.Warn("Using in-process index store; data is lost on exit")
		a.store = memory.NewStore()
	default:
		err = fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
	if err != nil {
		return fmt.Errorf("create index store: %w", err)
	}

	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := a.store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("index store not ready: %w", err)
	}
	a.logger.Info("Connected to index store")
	return nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}
