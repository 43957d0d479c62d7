package infrastructure

import (
	"fmt"

	"pc28/domain/events"
)

// DomainEventStream is the JetStream stream every lottery subject is captured in
const DomainEventStream = "lottery_events"

var eventSubjects = map[events.EventType]string{
	events.EventTypeDrawIngested:  "lottery.draw.ingested",
	events.EventTypeIssueSettled:  "lottery.issue.settled",
	events.EventTypeBetSettled:    "lottery.bet.settled",
	events.EventTypePointsChanged: "lottery.points.changed",
	events.EventTypeSourceFailed:  "lottery.source.failed",
	events.EventTypeSourceRotated: "lottery.source.rotated",
	events.EventTypeBettingClosed: "lottery.window.closed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct {
	subjectTypes map[string]events.EventType
}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	subjectTypes := make(map[string]events.EventType, len(eventSubjects))
	for eventType, subject := range eventSubjects {
		subjectTypes[subject] = eventType
	}
	return &EventSubjectMapper{subjectTypes: subjectTypes}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("lottery.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	if eventType, ok := m.subjectTypes[subject]; ok {
		return eventType
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"lottery.draw.ingested",
		"lottery.issue.settled",
		"lottery.bet.settled",
		"lottery.points.changed",
		"lottery.source.failed",
		"lottery.source.rotated",
		"lottery.window.closed",
		"lottery.unknown.*",
	}
}
