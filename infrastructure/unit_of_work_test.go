package infrastructure

import (
	"context"
	"errors"
	"testing"

	"pc28/application"
	"pc28/domain/events"
	"pc28/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepoUnitOfWork records transaction calls and exposes the publisher it was created with
type stubRepoUnitOfWork struct {
	bus        interfaces.EventPublisher
	began      bool
	committed  bool
	rolledBack bool
	commitErr  error
}

func (s *stubRepoUnitOfWork) Begin(ctx context.Context) error { s.began = true; return nil }
func (s *stubRepoUnitOfWork) Commit() error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = true
	return nil
}
func (s *stubRepoUnitOfWork) Rollback() error { s.rolledBack = true; return nil }
func (s *stubRepoUnitOfWork) DrawResultRepository() interfaces.DrawResultRepository {
	return nil
}
func (s *stubRepoUnitOfWork) BetRepository() interfaces.BetRepository { return nil }
func (s *stubRepoUnitOfWork) UserRepository() interfaces.UserRepository {
	return nil
}
func (s *stubRepoUnitOfWork) PointRecordRepository() interfaces.PointRecordRepository {
	return nil
}
func (s *stubRepoUnitOfWork) EventBus() interfaces.EventPublisher { return s.bus }

type stubRepoFactory struct {
	created   []*stubRepoUnitOfWork
	commitErr error
}

func (f *stubRepoFactory) CreateWithPublisher(eventPublisher interfaces.EventPublisher) application.UnitOfWork {
	uow := &stubRepoUnitOfWork{bus: eventPublisher, commitErr: f.commitErr}
	f.created = append(f.created, uow)
	return uow
}

func TestUnitOfWork_EventsFollowTransaction(t *testing.T) {
	tests := []struct {
		name         string
		commitErr    error
		rollback     bool
		expectEvents int
		expectErr    bool
	}{
		{name: "commit flushes", expectEvents: 1},
		{name: "rollback discards", rollback: true},
		{name: "failed commit discards", commitErr: errors.New("serialization failure"), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			real := &recordingPublisher{}
			repoFactory := &stubRepoFactory{commitErr: tt.commitErr}
			factory := newUnitOfWorkFactory(repoFactory, real)

			uow := factory.Create()
			require.NoError(t, uow.Begin(context.Background()))
			require.Len(t, repoFactory.created, 1)
			assert.Same(t, uow.EventBus(), repoFactory.created[0].EventBus())

			require.NoError(t, uow.EventBus().Publish(events.BetSettledEvent{BetID: 9}))
			assert.Empty(t, real.PublishedEvents)

			var err error
			if tt.rollback {
				err = uow.Rollback()
				assert.True(t, repoFactory.created[0].rolledBack)
			} else {
				err = uow.Commit()
			}
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			// A later rollback must not resurrect discarded events
			_ = uow.Rollback()
			assert.Len(t, real.PublishedEvents, tt.expectEvents)
		})
	}
}

func TestUnitOfWorkFactory_SeparatePublishers(t *testing.T) {
	real := &recordingPublisher{}
	factory := newUnitOfWorkFactory(&stubRepoFactory{}, real)

	first := factory.Create()
	second := factory.Create()
	require.NoError(t, first.Begin(context.Background()))
	require.NoError(t, second.Begin(context.Background()))

	require.NoError(t, first.EventBus().Publish(events.BetSettledEvent{BetID: 1}))
	require.NoError(t, second.EventBus().Publish(events.BetSettledEvent{BetID: 2}))
	require.NoError(t, second.Rollback())
	require.NoError(t, first.Commit())

	require.Len(t, real.PublishedEvents, 1)
	assert.Equal(t, int64(1), real.PublishedEvents[0].(events.BetSettledEvent).BetID)
}
