package repository

import (
	"context"
	"testing"
	"time"

	"pc28/domain/events"
	"pc28/domain/testhelpers"
	"pc28/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB)
	drawRepo := NewDrawResultRepository(testDB.DB)
	ctx := context.Background()
	drawTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("getters panic before begin", func(t *testing.T) {
		uow := factory.CreateWithPublisher(&testhelpers.MockEventPublisher{})
		assert.Panics(t, func() { uow.DrawResultRepository() })
		assert.Panics(t, func() { uow.BetRepository() })
	})

	t.Run("commit persists", func(t *testing.T) {
		uow := factory.CreateWithPublisher(&testhelpers.MockEventPublisher{})
		require.NoError(t, uow.Begin(ctx))
		defer func() { _ = uow.Rollback() }()

		inserted, err := uow.DrawResultRepository().Insert(ctx, testutil.CreateTestDraw("500", [3]int{1, 1, 1}, drawTime))
		require.NoError(t, err)
		assert.True(t, inserted)
		require.NoError(t, uow.Commit())

		got, err := drawRepo.GetByIssue(ctx, "500")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("rollback discards", func(t *testing.T) {
		uow := factory.CreateWithPublisher(&testhelpers.MockEventPublisher{})
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.DrawResultRepository().Insert(ctx, testutil.CreateTestDraw("501", [3]int{2, 3, 4}, drawTime))
		require.NoError(t, err)
		require.NoError(t, uow.Rollback())
		require.NoError(t, uow.Rollback())

		got, err := drawRepo.GetByIssue(ctx, "501")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("event bus is the given publisher", func(t *testing.T) {
		publisher := &testhelpers.MockEventPublisher{}
		publisher.On("Publish", events.BettingClosedEvent{Issue: "1"}).Return(nil)

		uow := factory.CreateWithPublisher(publisher)
		require.NoError(t, uow.EventBus().Publish(events.BettingClosedEvent{Issue: "1"}))
		publisher.AssertExpectations(t)
	})

	t.Run("double begin rejected", func(t *testing.T) {
		uow := factory.CreateWithPublisher(&testhelpers.MockEventPublisher{})
		require.NoError(t, uow.Begin(ctx))
		defer func() { _ = uow.Rollback() }()
		assert.Error(t, uow.Begin(ctx))
	})
}
