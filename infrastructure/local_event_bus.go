package infrastructure

import (
	"context"
	"sync"

	"pc28/domain/events"

	log "github.com/sirupsen/logrus"
)

// LocalEventBus dispatches events to in-process handlers. It stands in for
// NATS when no servers are configured.
type LocalEventBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]LocalEventHandler
	wg       sync.WaitGroup
}

// NewLocalEventBus creates an empty bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		handlers: make(map[events.EventType][]LocalEventHandler),
	}
}

// RegisterLocalHandler adds a handler for an event type
func (b *LocalEventBus) RegisterLocalHandler(eventType events.EventType, handler LocalEventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler on local event bus")
}

// Publish hands the event to every handler on its own goroutine and never blocks the caller
func (b *LocalEventBus) Publish(event events.Event) error {
	b.mu.RLock()
	handlers := make([]LocalEventHandler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		log.WithField("eventType", event.Type()).Trace("No local handlers for event")
		return nil
	}

	ctx := context.Background()
	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h LocalEventHandler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			if err := h(ctx, event); err != nil {
				log.WithFields(log.Fields{
					"eventType":    event.Type(),
					"handlerIndex": handlerIndex,
				}).WithError(err).Error("Local event handler failed")
			}
		}(handler, i)
	}
	return nil
}

// Wait blocks until every dispatched handler has returned
func (b *LocalEventBus) Wait() {
	b.wg.Wait()
}
