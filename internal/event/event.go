// Package event defines the inbound domain events that keep the search index
// in sync with the source of truth, their wire envelope and the dispatch table.
package event

import (
	"fmt"

	"github.com/kailas-cloud/staysearch/internal/domain"
)

// Type is the wire name of an event.
type Type string

// Supported event types.
const (
	TypePropertyCreated      Type = "property.created"
	TypePropertyUpdated      Type = "property.updated"
	TypePropertyDeleted      Type = "property.deleted"
	TypeUnitCreated          Type = "unit.created"
	TypeUnitUpdated          Type = "unit.updated"
	TypeUnitDeleted          Type = "unit.deleted"
	TypeAvailabilityChanged  Type = "availability.changed"
	TypeUnitTypeDeleted      Type = "unit_type.deleted"
	TypeUnitTypeFieldDeleted Type = "unit_type_field.deleted"
	TypeDynamicFieldChanged  Type = "dynamic_field.changed"
)

// Event is a typed domain event.
type Event interface {
	Type() Type
	// AggregateID identifies the entity the event is about.
	AggregateID() string
	Validate() error
}

// PropertyCreated is raised after a property is inserted.
type PropertyCreated struct {
	PropertyID string `json:"property_id"`
}

// PropertyUpdated is raised after any property change, approval included.
type PropertyUpdated struct {
	PropertyID string `json:"property_id"`
}

// PropertyDeleted is raised after a property is soft or hard deleted.
type PropertyDeleted struct {
	PropertyID string `json:"property_id"`
}

// UnitCreated is raised after a unit is inserted.
type UnitCreated struct {
	UnitID string `json:"unit_id"`
}

// UnitUpdated is raised after any unit change.
type UnitUpdated struct {
	UnitID string `json:"unit_id"`
}

// UnitDeleted is raised after a unit is deleted. PropertyID lets the index
// drop the unit from the property set even when the source row is gone.
type UnitDeleted struct {
	UnitID     string `json:"unit_id"`
	PropertyID string `json:"property_id,omitempty"`
}

// AvailabilityChanged is raised when a booking or block changes a unit's calendar.
type AvailabilityChanged struct {
	UnitID string `json:"unit_id"`
}

// UnitTypeDeleted is raised when a unit type is removed.
type UnitTypeDeleted struct {
	UnitTypeID string `json:"unit_type_id"`
}

// UnitTypeFieldDeleted is raised when a dynamic field is removed from a unit type.
type UnitTypeFieldDeleted struct {
	UnitTypeID string `json:"unit_type_id"`
	FieldName  string `json:"field_name"`
}

// DynamicFieldChanged is deprecated. Field values arrive with unit updates.
type DynamicFieldChanged struct {
	PropertyID string `json:"property_id"`
	FieldName  string `json:"field_name"`
}

func (PropertyCreated) Type() Type      { return TypePropertyCreated }
func (PropertyUpdated) Type() Type      { return TypePropertyUpdated }
func (PropertyDeleted) Type() Type      { return TypePropertyDeleted }
func (UnitCreated) Type() Type          { return TypeUnitCreated }
func (UnitUpdated) Type() Type          { return TypeUnitUpdated }
func (UnitDeleted) Type() Type          { return TypeUnitDeleted }
func (AvailabilityChanged) Type() Type  { return TypeAvailabilityChanged }
func (UnitTypeDeleted) Type() Type      { return TypeUnitTypeDeleted }
func (UnitTypeFieldDeleted) Type() Type { return TypeUnitTypeFieldDeleted }
func (DynamicFieldChanged) Type() Type  { return TypeDynamicFieldChanged }

func (e PropertyCreated) AggregateID() string      { return e.PropertyID }
func (e PropertyUpdated) AggregateID() string      { return e.PropertyID }
func (e PropertyDeleted) AggregateID() string      { return e.PropertyID }
func (e UnitCreated) AggregateID() string          { return e.UnitID }
func (e UnitUpdated) AggregateID() string          { return e.UnitID }
func (e UnitDeleted) AggregateID() string          { return e.UnitID }
func (e AvailabilityChanged) AggregateID() string  { return e.UnitID }
func (e UnitTypeDeleted) AggregateID() string      { return e.UnitTypeID }
func (e UnitTypeFieldDeleted) AggregateID() string { return e.UnitTypeID }
func (e DynamicFieldChanged) AggregateID() string  { return e.PropertyID }

func (e PropertyCreated) Validate() error     { return required(e.Type(), "property_id", e.PropertyID) }
func (e PropertyUpdated) Validate() error     { return required(e.Type(), "property_id", e.PropertyID) }
func (e PropertyDeleted) Validate() error     { return required(e.Type(), "property_id", e.PropertyID) }
func (e UnitCreated) Validate() error         { return required(e.Type(), "unit_id", e.UnitID) }
func (e UnitUpdated) Validate() error         { return required(e.Type(), "unit_id", e.UnitID) }
func (e UnitDeleted) Validate() error         { return required(e.Type(), "unit_id", e.UnitID) }
func (e AvailabilityChanged) Validate() error { return required(e.Type(), "unit_id", e.UnitID) }
func (e UnitTypeDeleted) Validate() error     { return required(e.Type(), "unit_type_id", e.UnitTypeID) }

func (e UnitTypeFieldDeleted) Validate() error {
	if err := required(e.Type(), "unit_type_id", e.UnitTypeID); err != nil {
		return err
	}
	return required(e.Type(), "field_name", e.FieldName)
}

func (e DynamicFieldChanged) Validate() error { return nil }

func required(t Type, field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s: %s is required", domain.ErrInvalidEvent, t, field)
	}
	return nil
}
