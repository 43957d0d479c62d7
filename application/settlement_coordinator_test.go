package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"
	"pc28/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func unsettledDraw(issue string) *entities.DrawResult {
	return &entities.DrawResult{Issue: issue, Digits: [3]int{1, 2, 4}, Sum: 7}
}

func pendingBet(id int64, betType entities.BetType, content, amount string) *entities.Bet {
	return &entities.Bet{
		ID:         id,
		UserID:     7,
		Issue:      "3001",
		BetType:    betType,
		BetContent: content,
		Amount:     decimal.RequireFromString(amount),
		Status:     entities.BetStatusPending,
	}
}

func newCoordinator(repos *testRepos, locker *stubLocker) (*SettlementCoordinator, *testUnitOfWorkFactory) {
	factory := newTestUnitOfWorkFactory(repos)
	c := NewSettlementCoordinator(factory, locker, testhelpers.NewStaticSettingsProvider(nil), nil)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c, factory
}

func TestSettlementCoordinator_SettleIssue(t *testing.T) {
	t.Parallel()

	t.Run("settles every pending bet and marks the issue", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		bigBet := pendingBet(1, entities.BetTypeBig, "big", "100")
		smallBet := pendingBet(2, entities.BetTypeSmall, "small", "100")

		repos.draws.On("GetByIssue", mock.Anything, "3001").Return(unsettledDraw("3001"), nil)
		repos.bets.On("GetPendingByIssue", mock.Anything, "3001").Return([]*entities.Bet{bigBet, smallBet}, nil)
		repos.bets.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(bigBet, nil)
		repos.bets.On("GetByIDForUpdate", mock.Anything, int64(2)).Return(smallBet, nil)
		repos.bets.On("Settle", mock.Anything, mock.Anything).Return(nil)
		repos.users.On("GetByIDForUpdate", mock.Anything, int64(7)).Return(&entities.User{ID: 7, Points: 1000}, nil)
		repos.users.On("UpdatePoints", mock.Anything, int64(7), mock.Anything).Return(nil)
		repos.records.On("Record", mock.Anything, mock.Anything).Return(nil)
		repos.draws.On("MarkSettled", mock.Anything, "3001", mock.Anything).Return(true, nil).Once()
		repos.publisher.On("Publish", mock.AnythingOfType("events.PointsChangedEvent")).Return(nil).Times(2)
		repos.publisher.On("Publish", mock.AnythingOfType("events.BetSettledEvent")).Return(nil).Times(2)
		repos.publisher.On("Publish", mock.MatchedBy(func(e events.IssueSettledEvent) bool {
			return e.Issue == "3001" && e.BetCount == 2 && e.Wins == 1 && e.Losses == 1
		})).Return(nil).Once()

		c, factory := newCoordinator(repos, newStubLocker())
		summary, err := c.SettleIssue(context.Background(), "3001")

		require.NoError(t, err)
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 2, summary.Settled)
		assert.Equal(t, 1, summary.Wins)
		assert.Equal(t, 1, summary.Losses)
		assert.True(t, decimal.NewFromInt(80).Equal(summary.NetDelta), "net delta %s", summary.NetDelta)
		assert.True(t, summary.MarkedSettled)
		assert.Equal(t, 3, factory.commits())

		repos.draws.AssertExpectations(t)
		repos.publisher.AssertExpectations(t)
	})

	t.Run("already settled issue is a no-op", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		draw := unsettledDraw("3001")
		draw.Settled = true
		repos.draws.On("GetByIssue", mock.Anything, "3001").Return(draw, nil)

		c, factory := newCoordinator(repos, newStubLocker())
		for i := 0; i < 2; i++ {
			summary, err := c.SettleIssue(context.Background(), "3001")

			require.NoError(t, err)
			assert.True(t, summary.AlreadySettled)
			assert.Zero(t, summary.Settled)
			assert.False(t, summary.MarkedSettled)
		}

		assert.Equal(t, 0, factory.commits())
		repos.draws.AssertNumberOfCalls(t, "GetByIssue", 2)
		repos.publisher.AssertNotCalled(t, "Publish", mock.Anything)
		repos.bets.AssertNotCalled(t, "GetPendingByIssue", mock.Anything, mock.Anything)
		repos.draws.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown issue", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		repos.draws.On("GetByIssue", mock.Anything, "9999").Return(nil, nil)

		c, _ := newCoordinator(repos, newStubLocker())
		_, err := c.SettleIssue(context.Background(), "9999")

		assert.ErrorIs(t, err, ErrDrawNotFound)
	})

	t.Run("issue lock held elsewhere", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		locker := newStubLocker()
		release, err := locker.Acquire(context.Background(), "settle:3001", time.Minute)
		require.NoError(t, err)
		defer release()

		c, _ := newCoordinator(repos, locker)
		_, err = c.SettleIssue(context.Background(), "3001")

		assert.ErrorIs(t, err, ErrSettlementInProgress)
		repos.draws.AssertNotCalled(t, "GetByIssue", mock.Anything, mock.Anything)
	})

	t.Run("no pending bets marks settled", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		repos.draws.On("GetByIssue", mock.Anything, "3001").Return(unsettledDraw("3001"), nil)
		repos.bets.On("GetPendingByIssue", mock.Anything, "3001").Return([]*entities.Bet{}, nil)
		repos.draws.On("MarkSettled", mock.Anything, "3001", mock.Anything).Return(true, nil)
		repos.publisher.On("Publish", mock.AnythingOfType("events.IssueSettledEvent")).Return(nil).Once()

		c, _ := newCoordinator(repos, newStubLocker())
		summary, err := c.SettleIssue(context.Background(), "3001")

		require.NoError(t, err)
		assert.Equal(t, 0, summary.Total)
		assert.True(t, summary.MarkedSettled)
		repos.publisher.AssertExpectations(t)
	})

	t.Run("bet settled concurrently is skipped", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		listed := pendingBet(1, entities.BetTypeBig, "big", "100")
		locked := pendingBet(1, entities.BetTypeBig, "big", "100")
		locked.Status = entities.BetStatusCancelled

		repos.draws.On("GetByIssue", mock.Anything, "3001").Return(unsettledDraw("3001"), nil)
		repos.bets.On("GetPendingByIssue", mock.Anything, "3001").Return([]*entities.Bet{listed}, nil)
		repos.bets.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(locked, nil)
		repos.draws.On("MarkSettled", mock.Anything, "3001", mock.Anything).Return(true, nil)
		repos.publisher.On("Publish", mock.AnythingOfType("events.IssueSettledEvent")).Return(nil)

		c, _ := newCoordinator(repos, newStubLocker())
		summary, err := c.SettleIssue(context.Background(), "3001")

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 0, summary.Settled)
		assert.True(t, summary.MarkedSettled)
		repos.bets.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	})
}

func TestSettlementCoordinator_FailedBetLeavesIssueUnsettled(t *testing.T) {
	t.Parallel()

	repos := newTestRepos()
	bigBet := pendingBet(1, entities.BetTypeBig, "big", "100")
	smallBet := pendingBet(2, entities.BetTypeSmall, "small", "100")

	repos.draws.On("GetByIssue", mock.Anything, "3001").Return(unsettledDraw("3001"), nil)
	repos.bets.On("GetPendingByIssue", mock.Anything, "3001").Return([]*entities.Bet{bigBet, smallBet}, nil)
	repos.bets.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(bigBet, nil)
	repos.bets.On("GetByIDForUpdate", mock.Anything, int64(2)).Return(smallBet, nil)
	repos.bets.On("Settle", mock.Anything, mock.Anything).Return(nil)
	repos.users.On("GetByIDForUpdate", mock.Anything, int64(7)).Return(&entities.User{ID: 7, Points: 1000}, nil)
	repos.users.On("UpdatePoints", mock.Anything, int64(7), int64(900)).Return(nil)
	repos.users.On("UpdatePoints", mock.Anything, int64(7), int64(1180)).Return(errors.New("deadlock detected"))
	repos.records.On("Record", mock.Anything, mock.Anything).Return(nil)
	repos.publisher.On("Publish", mock.Anything).Return(nil)

	c, factory := newCoordinator(repos, newStubLocker())
	summary, err := c.SettleIssue(context.Background(), "3001")

	assert.ErrorIs(t, err, ErrSettlementIncomplete)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Settled)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.MarkedSettled)
	assert.Equal(t, 1, factory.commits())
	repos.draws.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything)

	// only the committed bet's events leave the unit of work
	repos.publisher.AssertNumberOfCalls(t, "Publish", 2)
	repos.publisher.AssertCalled(t, "Publish", mock.MatchedBy(func(e events.BetSettledEvent) bool { return e.BetID == 1 }))
	repos.publisher.AssertNotCalled(t, "Publish", mock.MatchedBy(func(e events.BetSettledEvent) bool { return e.BetID == 2 }))
}

func TestSettlementCoordinator_SettleOutstanding(t *testing.T) {
	t.Parallel()

	repos := newTestRepos()
	repos.draws.On("GetUnsettled", mock.Anything, outstandingSweepLimit).Return([]*entities.DrawResult{unsettledDraw("3000"), unsettledDraw("3001")}, nil)
	repos.draws.On("GetByIssue", mock.Anything, "3000").Return(unsettledDraw("3000"), nil)
	repos.draws.On("GetByIssue", mock.Anything, "3001").Return(unsettledDraw("3001"), nil)
	repos.bets.On("GetPendingByIssue", mock.Anything, mock.Anything).Return([]*entities.Bet{}, nil)
	repos.draws.On("MarkSettled", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	repos.publisher.On("Publish", mock.AnythingOfType("events.IssueSettledEvent")).Return(nil)

	c, _ := newCoordinator(repos, newStubLocker())
	summaries, err := c.SettleOutstanding(context.Background())

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "3000", summaries[0].Issue)
	assert.Equal(t, "3001", summaries[1].Issue)
	repos.draws.AssertNumberOfCalls(t, "MarkSettled", 2)
}
