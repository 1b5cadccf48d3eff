package staysearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/db"
	"github.com/kailas-cloud/staysearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/staysearch/internal/db/redis"
	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/search/result"
	"github.com/kailas-cloud/staysearch/internal/event"
	"github.com/kailas-cloud/staysearch/internal/repository/source"
	"github.com/kailas-cloud/staysearch/internal/repository/unitindex"
	healthuc "github.com/kailas-cloud/staysearch/internal/usecase/health"
	"github.com/kailas-cloud/staysearch/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/staysearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for fakes in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (result.Page, error)
}

type rebuildUseCase interface {
	RebuildFullIndex(ctx context.Context, batchSize, maxParallelism int) (indexing.RebuildReport, error)
}

type eventSink interface {
	Dispatch(ctx context.Context, e event.Event) error
	DispatchEnvelope(ctx context.Context, env *event.Envelope) error
}

// Client is the staysearch SDK entry point.
type Client struct {
	store db.Store
	pool  *pgxpool.Pool

	searchSvc  searchUseCase
	rebuildSvc rebuildUseCase // nil on a search-only client
	events     eventSink      // nil on a search-only client
	healthSvc  healthUseCase

	limits request.Limits
	obs    *observer
}

// New creates a Client, connects to the index store and, when WithSource is
// given, to the source database. ctx bounds the initial connection checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("staysearch: index store required (use WithValkey, WithRedis or WithMemory)")
	}
	if err := cfg.indexing.Check().Err(); err != nil {
		return nil, fmt.Errorf("staysearch: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	for _, v := range cfg.relaxation.Normalize().Violations {
		if cfg.logger != nil {
			cfg.logger.Warn("relaxation setting corrected", "violation", v.String())
		}
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("staysearch: index store not ready: %w", err)
	}

	c := &Client{store: store, obs: obs}

	src := cfg.source
	if src == nil && cfg.sourceDSN != "" {
		c.pool, err = source.NewPool(ctx, cfg.sourceDSN, 0)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("staysearch: %w", err)
		}
		src = source.NewReader(c.pool)
	}

	c.wire(cfg, src)
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("staysearch: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("staysearch: unknown driver %q", cfg.driver)
	}
}

func (c *Client) wire(cfg *clientConfig, src indexing.Source) {
	logger := cfg.zap
	if logger == nil {
		logger = zap.NewNop()
	}

	index := unitindex.New(c.store, cfg.keyPrefix, cfg.indexing.DocumentTTL(), cfg.indexing.TempKeyTTL())

	c.limits = request.Limits{DefaultPageSize: cfg.pageSize, MaxPageSize: cfg.maxPage}
	c.searchSvc = searchuc.New(index,
		searchuc.SettingsFrom(cfg.relaxation, cfg.indexing.MaxResultsBeforePagination),
		searchuc.BreakerSettings{}, // gobreaker defaults
		logger,
	)

	var sourcePinger healthuc.Pinger
	if src != nil {
		indexer := indexing.New(index, src, indexing.OptionsFrom(&cfg.indexing), logger)
		guard := indexing.NewGuard(indexer, cfg.indexing.MaxRetryAttempts, cfg.indexing.RetryBaseDelay(), logger)
		c.rebuildSvc = indexer
		c.events = event.NewDispatcher(guard, logger)
		if p, ok := src.(healthuc.Pinger); ok {
			sourcePinger = p
		}
	}
	c.healthSvc = healthuc.New(c.store, sourcePinger)
}

// Search runs a query with progressive relaxation.
func (c *Client) Search(ctx context.Context, q Query) (SearchResult, error) {
	start := time.Now()
	res, err := c.search(ctx, &q)
	c.obs.observe("search", start, err)
	if err == nil {
		c.obs.relaxed(res.RelaxationLevel)
	}
	return res, err
}

func (c *Client) search(ctx context.Context, q *Query) (SearchResult, error) {
	req, err := request.New(q.filters(), q.Page, q.PageSize, c.limits)
	if err != nil {
		return SearchResult{}, err
	}
	page, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return SearchResult{}, err
	}
	return pageFromDomain(&page), nil
}

// Rebuild builds a fresh index generation from the source database and swaps
// it in. Zero arguments use the defaults. Fails with ErrRebuildInProgress
// when another process holds the rebuild lock.
func (c *Client) Rebuild(ctx context.Context, batchSize, parallelism int) (RebuildReport, error) {
	if c.rebuildSvc == nil {
		return RebuildReport{}, ErrSourceNotConfigured
	}
	start := time.Now()
	r, err := c.rebuildSvc.RebuildFullIndex(ctx, batchSize, parallelism)
	c.obs.observe("rebuild", start, err)
	if err != nil {
		return RebuildReport{}, err
	}
	return reportFromDomain(r), nil
}

// Ping checks the index store connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close releases the store and source connections.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}
