package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/staysearch/internal/domain"
)

// Envelope is the standard wire wrapper of an event.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   Type            `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
}

// NewEnvelope wraps an event with a generated id and the current time.
func NewEnvelope(e Event) (*Envelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Type(), err)
	}
	return &Envelope{
		EventID:     uuid.New().String(),
		EventType:   e.Type(),
		AggregateID: e.AggregateID(),
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}, nil
}

// Marshal serializes the envelope.
func (env *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}

// UnmarshalEnvelope parses an envelope from JSON bytes.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
	}
	return &env, nil
}

var decoders = map[Type]func(json.RawMessage) (Event, error){
	TypePropertyCreated:      decodeAs[PropertyCreated],
	TypePropertyUpdated:      decodeAs[PropertyUpdated],
	TypePropertyDeleted:      decodeAs[PropertyDeleted],
	TypeUnitCreated:          decodeAs[UnitCreated],
	TypeUnitUpdated:          decodeAs[UnitUpdated],
	TypeUnitDeleted:          decodeAs[UnitDeleted],
	TypeAvailabilityChanged:  decodeAs[AvailabilityChanged],
	TypeUnitTypeDeleted:      decodeAs[UnitTypeDeleted],
	TypeUnitTypeFieldDeleted: decodeAs[UnitTypeFieldDeleted],
	TypeDynamicFieldChanged:  decodeAs[DynamicFieldChanged],
}

// Decode returns the typed, validated event carried by the envelope.
func (env *Envelope) Decode() (Event, error) {
	dec, ok := decoders[env.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, env.EventType)
	}
	e, err := dec(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidEvent, env.EventType, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func decodeAs[T Event](data json.RawMessage) (Event, error) {
	var e T
	if len(data) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}
