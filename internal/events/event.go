package events

import (
	"context"
	"encoding/json"
	"time"

	"taxcalc/internal/obs"

	"github.com/google/uuid"
)

// EventType represents the type of a published event.
type EventType string

const (
	EventTypeTransactionRecorded EventType = "transaction.recorded"
	EventTypeTransactionDeleted  EventType = "transaction.deleted"
	EventTypeConfigUpdated       EventType = "config.updated"
)

// Event is the envelope written to Kafka and pushed to websocket clients.
type Event struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	EntityID      string            `json:"entity_id"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// ConfigChange is the payload of a config.updated event.
type ConfigChange struct {
	Entity          string `json:"entity"` // jurisdiction, tax_rate, tax_rule, nexus_threshold, vat_rate
	Action          string `json:"action"` // created, updated, deleted
	JurisdictionKey string `json:"jurisdiction_key,omitempty"`
}

// NewEvent builds an event around payload, taking the correlation id from ctx.
func NewEvent(ctx context.Context, eventType EventType, entityID string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		EntityID:      entityID,
		Data:          data,
		Metadata:      make(map[string]string),
		Timestamp:     time.Now().UTC(),
		CorrelationID: obs.RequestID(ctx),
	}, nil
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}
