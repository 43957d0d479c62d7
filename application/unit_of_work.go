package application

import (
	"context"

	"pc28/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes events raised inside it
	Commit() error

	// Rollback rolls back the transaction and discards its events
	Rollback() error

	// Repository getters
	DrawResultRepository() interfaces.DrawResultRepository
	BetRepository() interfaces.BetRepository
	UserRepository() interfaces.UserRepository
	PointRecordRepository() interfaces.PointRecordRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create returns a fresh, unstarted UnitOfWork
	Create() UnitOfWork
}
