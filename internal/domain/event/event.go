package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event raised after a committed state change
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	AggregateID   int64                  `json:"aggregate_id"`
	ActorID       int64                  `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, aggregateID, actorID int64, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		AggregateID:   aggregateID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// WithPayload returns a copy of the event with key set
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	cp := *e
	cp.Payload = payload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetPayloadIDs retrieves an id list from the payload
func (e *Event) GetPayloadIDs(key string) []int64 {
	switch v := e.Payload[key].(type) {
	case []int64:
		return v
	case []interface{}:
		ids := make([]int64, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case int64:
				ids = append(ids, n)
			case float64:
				ids = append(ids, int64(n))
			}
		}
		return ids
	}
	return nil
}
