package infrastructure

import (
	"fmt"

	"skywager/domain/events"
)

// DomainEventStream is the JetStream stream that carries every published domain event
const DomainEventStream = "skywager_events"

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "users.balance_changed"
	case events.EventTypeWagerPlaced:
		return "wagers.placed"
	case events.EventTypeWagerSettled:
		return "wagers.settled"
	case events.EventTypeWagerCashedOut:
		return "wagers.cashed_out"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "users.balance_changed":
		return events.EventTypeBalanceChange
	case "wagers.placed":
		return events.EventTypeWagerPlaced
	case "wagers.settled":
		return events.EventTypeWagerSettled
	case "wagers.cashed_out":
		return events.EventTypeWagerCashedOut
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"users.balance_changed",
		"wagers.placed",
		"wagers.settled",
		"wagers.cashed_out",
	}
}
