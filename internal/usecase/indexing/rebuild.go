package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/metrics"
	"github.com/kailas-cloud/staysearch/internal/retry"
)

// RebuildReport summarizes a completed rebuild.
type RebuildReport struct {
	Generation         int64
	PreviousGeneration int64
	Indexed            int64
	Skipped            int64
	Pages              int
	Duration           time.Duration
}

// RebuildFullIndex builds a fresh generation from every eligible unit and
// swaps it in atomically. On failure or cancellation the active generation
// is left untouched and the partial one is dropped. Zero arguments fall back
// to the configured batch size and parallelism.
//
// The rebuild lock and the building marker are renewed for as long as the
// build runs. If either is lost the build stops with domain.ErrLeaseLost
// and leaves the generation to whoever holds the lock now.
func (s *Service) RebuildFullIndex(ctx context.Context, batchSize, maxParallelism int) (RebuildReport, error) {
	start := s.now()
	batchSize = s.opts.batchSize(batchSize)
	workers := s.opts.parallelism(maxParallelism)

	lease, err := s.store.LockRebuild(ctx, s.opts.RebuildLease)
	if err != nil {
		return RebuildReport{}, err
	}
	defer func() {
		if err := lease.Release(ctx); err != nil {
			s.logger.Warn("release rebuild lock", zap.Error(err))
		}
	}()

	gen, err := s.store.BeginBuild(ctx, s.opts.RebuildLease)
	if err != nil {
		return RebuildReport{}, fmt.Errorf("begin rebuild: %w", err)
	}
	log := s.logger.With(zap.Int64("generation", gen))
	log.Info("rebuild started", zap.Int("batch_size", batchSize), zap.Int("parallelism", workers))

	keeper := &leaseKeeper{lease: lease, builds: s.store, gen: gen, ttl: s.opts.RebuildLease, logger: log}
	bctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		keeper.run(bctx, cancel)
	}()

	report := RebuildReport{Generation: gen}
	err = s.fill(bctx, gen, batchSize, workers, keeper.keep, &report)
	if err == nil {
		err = keeper.keep(bctx)
	}
	cancel(nil)
	<-done
	if err != nil {
		if cause := context.Cause(bctx); errors.Is(cause, domain.ErrLeaseLost) {
			err = cause
		}
		switch {
		case errors.Is(err, domain.ErrLeaseLost):
			log.Error("rebuild lease lost", zap.Int64("indexed", report.Indexed), zap.Error(err))
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			s.abortBuild(ctx, gen, log)
			log.Warn("rebuild cancelled", zap.Int64("indexed", report.Indexed))
		default:
			s.abortBuild(ctx, gen, log)
			log.Error("rebuild failed", zap.Int64("indexed", report.Indexed), zap.Error(err))
		}
		return report, fmt.Errorf("rebuild generation %d: %w", gen, err)
	}

	old, err := s.store.Cutover(ctx, gen)
	report.PreviousGeneration = old
	if err != nil {
		return report, fmt.Errorf("cutover to generation %d: %w", gen, err)
	}
	metrics.ActiveGeneration.Set(float64(gen))

	report.Duration = s.now().Sub(start)
	log.Info("rebuild completed",
		zap.Int64("previous_generation", old),
		zap.Int64("indexed", report.Indexed),
		zap.Int64("skipped", report.Skipped),
		zap.Int("pages", report.Pages),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *Service) abortBuild(ctx context.Context, gen int64, log *zap.Logger) {
	if err := s.store.AbortBuild(ctx, gen); err != nil {
		log.Error("abort rebuild", zap.Error(err))
	}
}

// leaseKeeper extends the rebuild lock and the building marker together.
type leaseKeeper struct {
	lease  domain.Lease
	builds Builds
	gen    int64
	ttl    time.Duration
	logger *zap.Logger
}

// keep renews both leases. Only a lost lease is an error: a failed round
// trip is logged and the next renewal tries again before the TTL runs out.
func (k *leaseKeeper) keep(ctx context.Context) error {
	err := k.lease.Renew(ctx, k.ttl)
	if err == nil {
		err = k.builds.RenewBuild(ctx, k.gen, k.ttl)
	}
	if err == nil || errors.Is(err, domain.ErrLeaseLost) {
		return err
	}
	if ctx.Err() == nil {
		k.logger.Warn("renew rebuild lease", zap.Error(err))
	}
	return nil
}

// run renews every ttl/3 until ctx ends and cancels the build on loss.
func (k *leaseKeeper) run(ctx context.Context, cancel context.CancelCauseFunc) {
	if k.ttl <= 0 {
		return
	}
	t := time.NewTicker(k.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := k.keep(ctx); err != nil {
				cancel(err)
				return
			}
		}
	}
}

// fill pages eligible units by id and indexes each page concurrently.
// Cancellation is honored between pages and keep runs before every page.
func (s *Service) fill(
	ctx context.Context, gen int64, batchSize, workers int,
	keep func(context.Context) error, report *RebuildReport,
) error {
	limit := rate.Inf
	if s.opts.PagesPerSecond > 0 {
		limit = rate.Limit(s.opts.PagesPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)
	policy := s.retryPolicy()

	var indexed, skipped atomic.Int64
	defer func() {
		report.Indexed = indexed.Load()
		report.Skipped = skipped.Load()
	}()

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := keep(ctx); err != nil {
			return err
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		ids, err := s.source.EligibleUnitIDs(ctx, after, batchSize)
		if err != nil {
			return fmt.Errorf("page after %q: %w", after, err)
		}
		if len(ids) == 0 {
			return nil
		}
		report.Pages++

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, id := range ids {
			g.Go(func() error {
				_, err := retry.Do(gctx, policy, func(ctx context.Context) error {
					ok, err := s.rebuildUnit(ctx, gen, id)
					if err == nil && !ok {
						skipped.Add(1)
						metrics.RebuildUnitsTotal.WithLabelValues("skipped").Inc()
					} else if err == nil {
						indexed.Add(1)
						metrics.RebuildUnitsTotal.WithLabelValues("indexed").Inc()
					}
					return err
				})
				if err != nil {
					metrics.RebuildUnitsTotal.WithLabelValues("error").Inc()
					return fmt.Errorf("unit %s: %w", id, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		after = ids[len(ids)-1]
		if len(ids) < batchSize {
			return nil
		}
	}
}

// rebuildUnit writes one unit into the building generation only. It reports
// false when the unit turned ineligible after it was paged.
func (s *Service) rebuildUnit(ctx context.Context, gen int64, unitID string) (bool, error) {
	release, err := s.store.LockUnit(ctx, unitID, s.opts.LockTimeout, s.opts.LockTimeout)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("release unit lock", zap.String("unit_id", unitID), zap.Error(err))
		}
	}()

	src, err := s.load(ctx, unitID)
	if err != nil {
		return false, err
	}
	if err := s.apply(ctx, gen, unitID, "", src); err != nil {
		return false, err
	}
	return src != nil && src.Eligible(), nil
}

func (s *Service) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: s.opts.MaxRetryAttempts,
		Backoff:     retry.Exponential(s.opts.RetryBaseDelay),
	}
}
