package infrastructure

import (
	"pc28/application"
	"pc28/database"
	"pc28/domain/interfaces"
	"pc28/repository"
)

// repositoryUnitOfWorkFactory creates repository units of work bound to a publisher
type repositoryUnitOfWorkFactory interface {
	CreateWithPublisher(eventPublisher interfaces.EventPublisher) application.UnitOfWork
}

// UnitOfWorkFactory implements application.UnitOfWorkFactory.
// Every UnitOfWork it creates buffers events until commit.
type UnitOfWorkFactory struct {
	repoFactory    repositoryUnitOfWorkFactory
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory over the database
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return newUnitOfWorkFactory(repository.NewUnitOfWorkFactory(db), eventPublisher)
}

func newUnitOfWorkFactory(repoFactory repositoryUnitOfWorkFactory, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repoFactory,
		eventPublisher: eventPublisher,
	}
}

// Create returns a new UnitOfWork with its own transactional publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	transactionalPublisher := NewNATSTransactionalPublisher(f.eventPublisher)
	return &unitOfWork{
		inner:                  f.repoFactory.CreateWithPublisher(transactionalPublisher),
		transactionalPublisher: transactionalPublisher,
	}
}
