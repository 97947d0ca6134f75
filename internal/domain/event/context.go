package event

import "context"

type correlationKey struct{}

// ContextWithCorrelationID stores the id that events raised under ctx will carry
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the stored correlation id, if any
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewEventFromContext creates an event that carries the correlation id of ctx
// when one is set
func NewEventFromContext(ctx context.Context, eventType Type, subjectID, organizationID string, payload map[string]interface{}) *Event {
	if id := CorrelationIDFromContext(ctx); id != "" {
		return NewEventWithCorrelation(eventType, subjectID, organizationID, payload, id)
	}
	return NewEvent(eventType, subjectID, organizationID, payload)
}
