package repository

import (
	"context"
	"errors"
	"fmt"

	"pc28/application"
	"pc28/database"
	"pc28/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements application.UnitOfWork over a single pgx transaction
type unitOfWork struct {
	db             *database.DB
	tx             pgx.Tx
	ctx            context.Context
	eventPublisher interfaces.EventPublisher

	drawResultRepo  interfaces.DrawResultRepository
	betRepo         interfaces.BetRepository
	userRepo        interfaces.UserRepository
	pointRecordRepo interfaces.PointRecordRepository
}

// UnitOfWorkFactory creates transaction-scoped units of work
type UnitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a UnitOfWork whose EventBus is the given publisher.
// Callers that need publish-after-commit pass a buffering publisher.
func (f *UnitOfWorkFactory) CreateWithPublisher(eventPublisher interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:             f.db,
		eventPublisher: eventPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.drawResultRepo = newDrawResultRepositoryWithTx(tx)
	u.betRepo = newBetRepositoryWithTx(tx)
	u.userRepo = newUserRepositoryWithTx(tx)
	u.pointRecordRepo = newPointRecordRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Rollback rolls back the transaction. It is a no-op after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// DrawResultRepository returns the draw ledger repository for this unit of work
func (u *unitOfWork) DrawResultRepository() interfaces.DrawResultRepository {
	if u.drawResultRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.drawResultRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() interfaces.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// PointRecordRepository returns the audit repository for this unit of work
func (u *unitOfWork) PointRecordRepository() interfaces.PointRecordRepository {
	if u.pointRecordRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.pointRecordRepo
}

// EventBus returns the publisher events raised in this unit of work go to
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.eventPublisher == nil {
		panic("event publisher not configured")
	}
	return u.eventPublisher
}
