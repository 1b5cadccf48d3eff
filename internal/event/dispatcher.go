package event

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/logger"
)

// Indexer receives dispatched events. Implementations handle their own
// failures; dispatch never retries.
type Indexer interface {
	OnPropertyCreated(ctx context.Context, propertyID string)
	OnPropertyUpdated(ctx context.Context, propertyID string)
	OnPropertyDeleted(ctx context.Context, propertyID string)
	OnUnitCreated(ctx context.Context, unitID string)
	OnUnitUpdated(ctx context.Context, unitID string)
	OnUnitDeleted(ctx context.Context, unitID, propertyID string)
	OnAvailabilityChanged(ctx context.Context, unitID string)
	OnUnitTypeDeleted(ctx context.Context, unitTypeID string)
	OnUnitTypeFieldDeleted(ctx context.Context, unitTypeID, fieldName string)
	OnDynamicFieldChanged(ctx context.Context, propertyID, fieldName string)
}

type handlerFunc func(ctx context.Context, e Event)

// Dispatcher routes typed events to the indexer through a dispatch table.
type Dispatcher struct {
	table  map[Type]handlerFunc
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher bound to the given indexer.
func NewDispatcher(idx Indexer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		table: map[Type]handlerFunc{
			TypePropertyCreated: func(ctx context.Context, e Event) {
				idx.OnPropertyCreated(ctx, e.(PropertyCreated).PropertyID)
			},
			TypePropertyUpdated: func(ctx context.Context, e Event) {
				idx.OnPropertyUpdated(ctx, e.(PropertyUpdated).PropertyID)
			},
			TypePropertyDeleted: func(ctx context.Context, e Event) {
				idx.OnPropertyDeleted(ctx, e.(PropertyDeleted).PropertyID)
			},
			TypeUnitCreated: func(ctx context.Context, e Event) {
				idx.OnUnitCreated(ctx, e.(UnitCreated).UnitID)
			},
			TypeUnitUpdated: func(ctx context.Context, e Event) {
				idx.OnUnitUpdated(ctx, e.(UnitUpdated).UnitID)
			},
			TypeUnitDeleted: func(ctx context.Context, e Event) {
				ev := e.(UnitDeleted)
				idx.OnUnitDeleted(ctx, ev.UnitID, ev.PropertyID)
			},
			TypeAvailabilityChanged: func(ctx context.Context, e Event) {
				idx.OnAvailabilityChanged(ctx, e.(AvailabilityChanged).UnitID)
			},
			TypeUnitTypeDeleted: func(ctx context.Context, e Event) {
				idx.OnUnitTypeDeleted(ctx, e.(UnitTypeDeleted).UnitTypeID)
			},
			TypeUnitTypeFieldDeleted: func(ctx context.Context, e Event) {
				ev := e.(UnitTypeFieldDeleted)
				idx.OnUnitTypeFieldDeleted(ctx, ev.UnitTypeID, ev.FieldName)
			},
			TypeDynamicFieldChanged: func(ctx context.Context, e Event) {
				ev := e.(DynamicFieldChanged)
				idx.OnDynamicFieldChanged(ctx, ev.PropertyID, ev.FieldName)
			},
		},
	}
}

// Dispatch validates and routes a typed event.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	h, ok := d.table[e.Type()]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownEvent, e.Type())
	}
	if err := e.Validate(); err != nil {
		return err
	}
	ctx = logger.With(ctx, d.logger,
		zap.String("event_type", string(e.Type())),
		zap.String("aggregate_id", e.AggregateID()),
	)
	logger.FromContext(ctx, d.logger).Debug("dispatching event")
	h(ctx, e)
	return nil
}

// DispatchEnvelope decodes and routes a wire envelope.
func (d *Dispatcher) DispatchEnvelope(ctx context.Context, env *Envelope) error {
	e, err := env.Decode()
	if err != nil {
		return err
	}
	return d.Dispatch(ctx, e)
}
