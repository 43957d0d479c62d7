package infrastructure

import (
	"context"

	"pc28/application"
	"pc28/domain/interfaces"
)

// unitOfWork wraps the repository unit of work and publishes its events only
// after a successful commit
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *NATSTransactionalPublisher
	ctx                    context.Context
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes events on success
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		u.transactionalPublisher.Discard()
		return err
	}

	ctx := u.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// The transaction is durable at this point; publishing is best effort.
	_ = u.transactionalPublisher.Flush(ctx)
	return nil
}

// Rollback discards pending events and rolls back the transaction
func (u *unitOfWork) Rollback() error {
	u.transactionalPublisher.Discard()
	return u.inner.Rollback()
}

func (u *unitOfWork) DrawResultRepository() interfaces.DrawResultRepository {
	return u.inner.DrawResultRepository()
}

func (u *unitOfWork) BetRepository() interfaces.BetRepository {
	return u.inner.BetRepository()
}

func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	return u.inner.UserRepository()
}

func (u *unitOfWork) PointRecordRepository() interfaces.PointRecordRepository {
	return u.inner.PointRecordRepository()
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
