package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys used by workflow events
const (
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyActorID        = "actor_id"
)

// Event represents a domain event
type Event struct {
	ID             string                 `json:"id"`
	Type           Type                   `json:"type"`
	SubjectID      string                 `json:"subject_id"`
	OrganizationID string                 `json:"organization_id"`
	Payload        map[string]interface{} `json:"payload"`
	Timestamp      time.Time              `json:"timestamp"`
	CorrelationID  string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, subjectID, organizationID string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, subjectID, organizationID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain,
// typically the HTTP request id
func NewEventWithCorrelation(eventType Type, subjectID, organizationID string, payload map[string]interface{}, correlationID string) *Event {
	return &Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		SubjectID:      subjectID,
		OrganizationID: organizationID,
		Payload:        payload,
		Timestamp:      time.Now(),
		CorrelationID:  correlationID,
	}
}

// WithPayload returns a copy of the event with an added payload key
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
