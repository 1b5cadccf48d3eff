package indexing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/logger"
	"github.com/kailas-cloud/staysearch/internal/metrics"
	"github.com/kailas-cloud/staysearch/internal/retry"
)

// Hooks is the fallible hook surface wrapped by Guard.
type Hooks interface {
	OnPropertyCreated(ctx context.Context, propertyID string) error
	OnPropertyUpdated(ctx context.Context, propertyID string) error
	OnPropertyDeleted(ctx context.Context, propertyID string) error
	OnUnitCreated(ctx context.Context, unitID string) error
	OnUnitUpdated(ctx context.Context, unitID string) error
	OnUnitDeleted(ctx context.Context, unitID, propertyID string) error
	OnAvailabilityChanged(ctx context.Context, unitID string) error
	OnUnitTypeDeleted(ctx context.Context, unitTypeID string) error
	OnUnitTypeFieldDeleted(ctx context.Context, unitTypeID, fieldName string) error
	OnDynamicFieldChanged(ctx context.Context, propertyID, fieldName string) error
}

// Guard retries hooks with exponential backoff and never returns an error.
// An exhausted budget is logged as critical: the index stays stale until the
// next event for the entity or the next full rebuild.
type Guard struct {
	hooks  Hooks
	policy retry.Policy
	logger *zap.Logger
}

// NewGuard wraps hooks with maxAttempts tries, the first retry after base.
func NewGuard(hooks Hooks, maxAttempts int, base time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		hooks: hooks,
		policy: retry.Policy{
			MaxAttempts: maxAttempts,
			Backoff:     retry.Exponential(base),
		},
		logger: logger,
	}
}

// WithSleeper replaces the backoff sleeper.
func (g *Guard) WithSleeper(s retry.Sleeper) *Guard {
	g.policy.Sleep = s
	return g
}

func (g *Guard) OnPropertyCreated(ctx context.Context, propertyID string) {
	g.run(ctx, "property_created", "property", propertyID, func(ctx context.Context) error {
		return g.hooks.OnPropertyCreated(ctx, propertyID)
	})
}

func (g *Guard) OnPropertyUpdated(ctx context.Context, propertyID string) {
	g.run(ctx, "property_updated", "property", propertyID, func(ctx context.Context) error {
		return g.hooks.OnPropertyUpdated(ctx, propertyID)
	})
}

func (g *Guard) OnPropertyDeleted(ctx context.Context, propertyID string) {
	g.run(ctx, "property_deleted", "property", propertyID, func(ctx context.Context) error {
		return g.hooks.OnPropertyDeleted(ctx, propertyID)
	})
}

func (g *Guard) OnUnitCreated(ctx context.Context, unitID string) {
	g.run(ctx, "unit_created", "unit", unitID, func(ctx context.Context) error {
		return g.hooks.OnUnitCreated(ctx, unitID)
	})
}

func (g *Guard) OnUnitUpdated(ctx context.Context, unitID string) {
	g.run(ctx, "unit_updated", "unit", unitID, func(ctx context.Context) error {
		return g.hooks.OnUnitUpdated(ctx, unitID)
	})
}

func (g *Guard) OnUnitDeleted(ctx context.Context, unitID, propertyID string) {
	g.run(ctx, "unit_deleted", "unit", unitID, func(ctx context.Context) error {
		return g.hooks.OnUnitDeleted(ctx, unitID, propertyID)
	})
}

func (g *Guard) OnAvailabilityChanged(ctx context.Context, unitID string) {
	g.run(ctx, "availability_changed", "unit", unitID, func(ctx context.Context) error {
		return g.hooks.OnAvailabilityChanged(ctx, unitID)
	})
}

func (g *Guard) OnUnitTypeDeleted(ctx context.Context, unitTypeID string) {
	g.run(ctx, "unit_type_deleted", "unit_type", unitTypeID, func(ctx context.Context) error {
		return g.hooks.OnUnitTypeDeleted(ctx, unitTypeID)
	})
}

func (g *Guard) OnUnitTypeFieldDeleted(ctx context.Context, unitTypeID, fieldName string) {
	g.run(ctx, "unit_type_field_deleted", "unit_type", unitTypeID, func(ctx context.Context) error {
		return g.hooks.OnUnitTypeFieldDeleted(ctx, unitTypeID, fieldName)
	})
}

func (g *Guard) OnDynamicFieldChanged(ctx context.Context, propertyID, fieldName string) {
	g.run(ctx, "dynamic_field_changed", "property", propertyID, func(ctx context.Context) error {
		return g.hooks.OnDynamicFieldChanged(ctx, propertyID, fieldName)
	})
}

func (g *Guard) run(ctx context.Context, op, entity, id string, fn func(ctx context.Context) error) {
	log := logger.FromContext(ctx, g.logger)
	p := g.policy
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("indexing attempt failed, retrying",
			zap.String("operation", op),
			zap.String(entity+"_id", id),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	}

	attempts, err := retry.Do(ctx, p, fn)
	if err == nil {
		metrics.IndexingOperationsTotal.WithLabelValues(op, "ok").Inc()
		return
	}
	metrics.IndexingOperationsTotal.WithLabelValues(op, "error").Inc()

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		log.Warn("indexing cancelled",
			zap.String("operation", op),
			zap.String(entity+"_id", id),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return
	}

	metrics.IndexingRetriesExhaustedTotal.WithLabelValues(op).Inc()
	logger.Critical(log, "indexing retries exhausted, index needs reconciliation",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.String("operation", op),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
}
