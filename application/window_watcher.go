package application

import (
	"context"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"
	"pc28/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DefaultWindowWatchInterval is how often the watcher samples the betting window
const DefaultWindowWatchInterval = 10 * time.Second

// WindowStatusReader reports the betting window at the current instant
type WindowStatusReader interface {
	Status(ctx context.Context) (*entities.WindowStatus, error)
}

// WindowWatcher emits BettingClosedEvent once per issue when its window closes
type WindowWatcher struct {
	window         WindowStatusReader
	eventPublisher interfaces.EventPublisher
	interval       time.Duration

	lastIssue string
	lastState entities.WindowState
}

// NewWindowWatcher creates a new window watcher
func NewWindowWatcher(window WindowStatusReader, eventPublisher interfaces.EventPublisher, interval time.Duration) *WindowWatcher {
	if interval <= 0 {
		interval = DefaultWindowWatchInterval
	}
	return &WindowWatcher{
		window:         window,
		eventPublisher: eventPublisher,
		interval:       interval,
	}
}

// Check samples the window once and reports whether a close was emitted.
// Not safe for concurrent use; the watcher loop is its only caller.
func (w *WindowWatcher) Check(ctx context.Context) (bool, error) {
	status, err := w.window.Status(ctx)
	if err != nil {
		return false, err
	}

	closed := w.lastIssue == status.CurrentIssue &&
		w.lastState == entities.WindowStateOpen &&
		status.State == entities.WindowStateClosed

	w.lastIssue = status.CurrentIssue
	w.lastState = status.State

	if !closed {
		return false, nil
	}

	log.WithFields(log.Fields{
		"issue":    status.CurrentIssue,
		"drawTime": status.CurrentDrawTime,
	}).Info("Betting closed")

	if err := w.eventPublisher.Publish(events.BettingClosedEvent{
		Issue:    status.CurrentIssue,
		DrawTime: status.CurrentDrawTime,
	}); err != nil {
		log.WithError(err).Error("Failed to publish betting closed event")
	}
	return true, nil
}

// Start begins the watcher and returns its stop function
func (w *WindowWatcher) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Window watcher started")
		for {
			if _, err := w.Check(ctx); err != nil {
				log.WithError(err).Warn("Failed to read betting window")
			}

			select {
			case <-ctx.Done():
				log.Info("Window watcher shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Window watcher shutting down (stop requested)...")
				return
			case <-time.After(w.interval):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}
