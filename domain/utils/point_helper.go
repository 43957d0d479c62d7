package utils

import (
	"context"
	"fmt"

	"pc28/domain/entities"
	"pc28/domain/events"
	"pc28/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordPointChange records an audit ledger entry and emits a points changed event.
// This is the single entry point for all balance changes made by the core.
func RecordPointChange(ctx context.Context, pointRecordRepo interfaces.PointRecordRepository, eventPublisher interfaces.EventPublisher, record *entities.PointRecord) error {
	if err := pointRecordRepo.Record(ctx, record); err != nil {
		return fmt.Errorf("failed to record point change: %w", err)
	}

	event := events.PointsChangedEvent{
		UserID:       record.UserID,
		OldBalance:   record.BalanceBefore,
		NewBalance:   record.BalanceAfter,
		ChangeAmount: record.ChangeAmount(),
		RecordType:   string(record.Type),
	}
	log.WithFields(log.Fields{
		"userID":       event.UserID,
		"oldBalance":   event.OldBalance,
		"newBalance":   event.NewBalance,
		"changeAmount": event.ChangeAmount,
		"recordType":   event.RecordType,
	}).Debug("Publishing PointsChangedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish points changed event")
	}

	return nil
}
