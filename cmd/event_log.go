package cmd

import (
	"context"

	"pc28/domain/events"
	"pc28/infrastructure"

	log "github.com/sirupsen/logrus"
)

type localHandlerRegistry interface {
	RegisterLocalHandler(eventType events.EventType, handler infrastructure.LocalEventHandler)
}

// registerEventLog writes an operator log line for the events that matter when
// watching the draw cycle
func registerEventLog(registry localHandlerRegistry) {
	for _, eventType := range []events.EventType{
		events.EventTypeIssueSettled,
		events.EventTypeSourceRotated,
		events.EventTypeSourceFailed,
	} {
		registry.RegisterLocalHandler(eventType, logEvent)
	}
}

func logEvent(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.IssueSettledEvent:
		log.WithFields(log.Fields{
			"issue":    e.Issue,
			"bets":     e.BetCount,
			"wins":     e.Wins,
			"losses":   e.Losses,
			"netDelta": e.NetDelta.String(),
		}).Info("Issue settlement published")
	case events.SourceRotatedEvent:
		log.WithFields(log.Fields{
			"from":        e.From,
			"to":          e.To,
			"staleIssue":  e.StaleIssue,
			"staleStreak": e.StaleStreak,
		}).Warn("Draw source rotated after stale reads")
	case events.SourceFailedEvent:
		log.WithFields(log.Fields{
			"source":    e.Source,
			"cycle":     e.Cycle,
			"elapsedMs": e.ElapsedMs,
			"error":     e.Error,
		}).Debug("Draw source attempt failed")
	}
	return nil
}
