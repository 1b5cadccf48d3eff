package staysearch

import (
	"context"
	"time"

	"github.com/kailas-cloud/staysearch/internal/event"
)

// Events applies source-change notifications to the index. Calls return
// once the index is updated. Only malformed events fail: indexing errors are
// retried, then logged and left for the next rebuild.
type Events struct {
	c *Client
}

// Events returns the event API. On a client without WithSource every call
// fails with ErrSourceNotConfigured.
func (c *Client) Events() *Events { return &Events{c: c} }

// PropertyCreated reindexes every unit of a new property.
func (e *Events) PropertyCreated(ctx context.Context, propertyID string) error {
	return e.dispatch(ctx, event.PropertyCreated{PropertyID: propertyID})
}

// PropertyUpdated reindexes every unit of a property.
func (e *Events) PropertyUpdated(ctx context.Context, propertyID string) error {
	return e.dispatch(ctx, event.PropertyUpdated{PropertyID: propertyID})
}

// PropertyDeleted removes or reindexes the property's units.
func (e *Events) PropertyDeleted(ctx context.Context, propertyID string) error {
	return e.dispatch(ctx, event.PropertyDeleted{PropertyID: propertyID})
}

// UnitCreated indexes a new unit.
func (e *Events) UnitCreated(ctx context.Context, unitID string) error {
	return e.dispatch(ctx, event.UnitCreated{UnitID: unitID})
}

// UnitUpdated reindexes a unit.
func (e *Events) UnitUpdated(ctx context.Context, unitID string) error {
	return e.dispatch(ctx, event.UnitUpdated{UnitID: unitID})
}

// UnitDeleted removes a unit. propertyID may be empty.
func (e *Events) UnitDeleted(ctx context.Context, unitID, propertyID string) error {
	return e.dispatch(ctx, event.UnitDeleted{UnitID: unitID, PropertyID: propertyID})
}

// AvailabilityChanged refreshes a unit's calendar.
func (e *Events) AvailabilityChanged(ctx context.Context, unitID string) error {
	return e.dispatch(ctx, event.AvailabilityChanged{UnitID: unitID})
}

// UnitTypeDeleted reindexes every unit of the type.
func (e *Events) UnitTypeDeleted(ctx context.Context, unitTypeID string) error {
	return e.dispatch(ctx, event.UnitTypeDeleted{UnitTypeID: unitTypeID})
}

// UnitTypeFieldDeleted drops a dynamic field from every unit of the type.
func (e *Events) UnitTypeFieldDeleted(ctx context.Context, unitTypeID, fieldName string) error {
	return e.dispatch(ctx, event.UnitTypeFieldDeleted{UnitTypeID: unitTypeID, FieldName: fieldName})
}

// Publish applies a JSON event envelope as produced by the source system:
// {"event_type": "unit.updated", "data": {"unit_id": "..."}}.
func (e *Events) Publish(ctx context.Context, data []byte) error {
	if e.c.events == nil {
		return ErrSourceNotConfigured
	}
	start := time.Now()
	env, err := event.UnmarshalEnvelope(data)
	if err == nil {
		err = e.c.events.DispatchEnvelope(ctx, env)
	}
	e.c.obs.observe("event.publish", start, err)
	return err
}

func (e *Events) dispatch(ctx context.Context, ev event.Event) error {
	if e.c.events == nil {
		return ErrSourceNotConfigured
	}
	start := time.Now()
	err := e.c.events.Dispatch(ctx, ev)
	e.c.obs.observe("event."+string(ev.Type()), start, err)
	return err
}
