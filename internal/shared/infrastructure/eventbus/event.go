package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys for events published by thermae.
const (
	RoutingMemberRegistered  = "identity.member.registered"
	RoutingMemberRoleChanged = "identity.member.role_changed"
	RoutingOrderPlaced       = "club.order.placed"
	RoutingCheckInRecorded   = "club.checkin.recorded"
)

// Event is the envelope published to the bus.
type Event struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      EventMetadata   `json:"metadata,omitempty"`
}

// EventMetadata contains optional metadata about the event.
type EventMetadata struct {
	MemberID      uuid.UUID `json:"member_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewEvent builds an envelope around payload, which is marshaled as JSON.
func NewEvent(routingKey, aggregateType string, aggregateID uuid.UUID, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		EventID:       uuid.New(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		RoutingKey:    routingKey,
		OccurredAt:    time.Now().UTC(),
		Payload:       body,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Handler processes events for the routing keys it declares.
type Handler interface {
	// EventTypes returns the routing keys this handler accepts.
	EventTypes() []string
	Handle(ctx context.Context, event *Event) error
}

// Emit marshals event and publishes it under its routing key.
func Emit(ctx context.Context, pub Publisher, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return pub.Publish(ctx, event.RoutingKey, body)
}
