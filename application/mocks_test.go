package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"pc28/domain/events"
	"pc28/domain/interfaces"
	"pc28/domain/testhelpers"
)

// testRepos are shared by every unit of work a testUnitOfWorkFactory creates
type testRepos struct {
	draws     *testhelpers.MockDrawResultRepository
	bets      *testhelpers.MockBetRepository
	users     *testhelpers.MockUserRepository
	records   *testhelpers.MockPointRecordRepository
	publisher *testhelpers.MockEventPublisher
}

func newTestRepos() *testRepos {
	return &testRepos{
		draws:     new(testhelpers.MockDrawResultRepository),
		bets:      new(testhelpers.MockBetRepository),
		users:     new(testhelpers.MockUserRepository),
		records:   new(testhelpers.MockPointRecordRepository),
		publisher: new(testhelpers.MockEventPublisher),
	}
}

// testUnitOfWork buffers events until commit like the real transactional publisher
type testUnitOfWork struct {
	repos     *testRepos
	commitErr error

	begun      bool
	committed  bool
	rolledBack bool
	pending    []events.Event
}

func (u *testUnitOfWork) Begin(ctx context.Context) error {
	if u.begun {
		return errors.New("transaction already started")
	}
	u.begun = true
	return nil
}

func (u *testUnitOfWork) Commit() error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	for _, event := range u.pending {
		_ = u.repos.publisher.Publish(event)
	}
	u.pending = nil
	return nil
}

func (u *testUnitOfWork) Rollback() error {
	if !u.committed {
		u.rolledBack = true
	}
	u.pending = nil
	return nil
}

func (u *testUnitOfWork) DrawResultRepository() interfaces.DrawResultRepository {
	return u.repos.draws
}

func (u *testUnitOfWork) BetRepository() interfaces.BetRepository {
	return u.repos.bets
}

func (u *testUnitOfWork) UserRepository() interfaces.UserRepository {
	return u.repos.users
}

func (u *testUnitOfWork) PointRecordRepository() interfaces.PointRecordRepository {
	return u.repos.records
}

func (u *testUnitOfWork) EventBus() interfaces.EventPublisher {
	return u
}

// Publish buffers the event until Commit
func (u *testUnitOfWork) Publish(event events.Event) error {
	u.pending = append(u.pending, event)
	return nil
}

type testUnitOfWorkFactory struct {
	mu        sync.Mutex
	repos     *testRepos
	commitErr error
	created   []*testUnitOfWork
}

func newTestUnitOfWorkFactory(repos *testRepos) *testUnitOfWorkFactory {
	return &testUnitOfWorkFactory{repos: repos}
}

func (f *testUnitOfWorkFactory) Create() UnitOfWork {
	f.mu.Lock()
	defer f.mu.Unlock()
	uow := &testUnitOfWork{repos: f.repos, commitErr: f.commitErr}
	f.created = append(f.created, uow)
	return uow
}

func (f *testUnitOfWorkFactory) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, uow := range f.created {
		if uow.committed {
			n++
		}
	}
	return n
}

// stubLocker hands out one holder per key
type stubLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: make(map[string]bool)}
}

func (l *stubLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, interfaces.ErrLockHeld
	}
	l.held[key] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, key)
		})
	}, nil
}
