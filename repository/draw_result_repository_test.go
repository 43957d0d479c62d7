package repository

import (
	"context"
	"testing"
	"time"

	"pc28/domain/entities"
	"pc28/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawResultRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewDrawResultRepository(testDB.DB)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty ledger", func(t *testing.T) {
		latest, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		assert.Nil(t, latest)

		draw, err := repo.GetByIssue(ctx, "99")
		require.NoError(t, err)
		assert.Nil(t, draw)
	})

	t.Run("insert and read back", func(t *testing.T) {
		draw := testutil.CreateTestDraw("99", [3]int{4, 4, 6}, base)

		inserted, err := repo.Insert(ctx, draw)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NotZero(t, draw.ID)
		assert.False(t, draw.CreatedAt.IsZero())

		got, err := repo.GetByIssue(ctx, "99")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, [3]int{4, 4, 6}, got.Digits)
		assert.Equal(t, 14, got.Sum)
		assert.True(t, got.IsReturn)
		assert.Equal(t, entities.ReturnReasonPair, got.ReturnReason)
		assert.Equal(t, entities.ComboBigEven, got.Combo)
		assert.True(t, base.Equal(got.DrawTime))
		assert.False(t, got.Settled)
		assert.Nil(t, got.SettledAt)
	})

	t.Run("duplicate issue is a no-op", func(t *testing.T) {
		dup := testutil.CreateTestDraw("99", [3]int{0, 0, 1}, base.Add(time.Minute))

		inserted, err := repo.Insert(ctx, dup)
		require.NoError(t, err)
		assert.False(t, inserted)

		got, err := repo.GetByIssue(ctx, "99")
		require.NoError(t, err)
		assert.Equal(t, [3]int{4, 4, 6}, got.Digits)
	})

	t.Run("latest orders issues numerically", func(t *testing.T) {
		_, err := repo.Insert(ctx, testutil.CreateTestDraw("100", [3]int{1, 2, 3}, base.Add(210*time.Second)))
		require.NoError(t, err)
		_, err = repo.Insert(ctx, testutil.CreateTestDraw("101", [3]int{7, 0, 2}, base.Add(420*time.Second)))
		require.NoError(t, err)

		latest, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "101", latest.Issue)

		recent, err := repo.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "101", recent[0].Issue)
		assert.Equal(t, "100", recent[1].Issue)
	})

	t.Run("mark settled is compare and set", func(t *testing.T) {
		unsettled, err := repo.GetUnsettled(ctx, 10)
		require.NoError(t, err)
		require.Len(t, unsettled, 3)
		assert.Equal(t, "99", unsettled[0].Issue)
		assert.Equal(t, "101", unsettled[2].Issue)

		settledAt := base.Add(time.Hour)
		marked, err := repo.MarkSettled(ctx, "99", settledAt)
		require.NoError(t, err)
		assert.True(t, marked)

		marked, err = repo.MarkSettled(ctx, "99", settledAt.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, marked)

		marked, err = repo.MarkSettled(ctx, "404", settledAt)
		require.NoError(t, err)
		assert.False(t, marked)

		got, err := repo.GetByIssue(ctx, "99")
		require.NoError(t, err)
		assert.True(t, got.Settled)
		require.NotNil(t, got.SettledAt)
		assert.True(t, settledAt.Equal(*got.SettledAt))

		unsettled, err = repo.GetUnsettled(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, unsettled, 2)
	})
}
