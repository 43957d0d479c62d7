package infrastructure

import (
	"context"

	"pc28/domain/events"
	"pc28/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until the surrounding transaction
// commits, then hands them to the real publisher
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish queues the event
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Queueing event until commit")

	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes pending events in order. A failed event is logged and the
// rest are still attempted; the queue is always cleared.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	pending := p.pending
	p.pending = make([]events.Event, 0)

	for _, event := range pending {
		if ctx.Err() != nil {
			log.WithField("eventType", event.Type()).Warn("Context done, publishing remaining events anyway")
		}
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	log.WithField("flushedCount", len(pending)).Debug("Flushed transactional events")
	return nil
}

// Discard drops pending events
func (p *NATSTransactionalPublisher) Discard() {
	log.WithField("discardedEventCount", len(p.pending)).Debug("Discarding transactional events")
	p.pending = p.pending[:0]
}

// PendingCount returns how many events are waiting for Flush
func (p *NATSTransactionalPublisher) PendingCount() int {
	return len(p.pending)
}
