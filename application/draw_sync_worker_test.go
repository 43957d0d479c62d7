package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pc28/domain/entities"
	"pc28/domain/interfaces"
	"pc28/domain/services"
	"pc28/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	fetch func(ctx context.Context) (*entities.FetchResult, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*entities.FetchResult, error) {
	return f.fetch(ctx)
}

type fakeSettler struct {
	calls atomic.Int32
}

func (s *fakeSettler) SettleOutstanding(ctx context.Context) ([]*entities.SettlementSummary, error) {
	s.calls.Add(1)
	return nil, nil
}

var syncNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func item(issue string, digits [3]int) entities.DrawItem {
	return entities.DrawItem{Issue: issue, Digits: digits, Sum: digits[0] + digits[1] + digits[2], DrawTime: syncNow}
}

func newSyncWorker(repos *testRepos, fetcher DrawFetcher, settler IssueSettler) *DrawSyncWorker {
	w := NewDrawSyncWorker(
		fetcher,
		newTestUnitOfWorkFactory(repos),
		repos.draws,
		settler,
		testhelpers.NewStaticSettingsProvider(nil),
		nil,
		DefaultSyncSchedule(),
	)
	w.SetClock(func() time.Time { return syncNow }, func(ctx context.Context, d time.Duration) error { return nil })
	return w
}

func TestSyncSchedule_NextDelay(t *testing.T) {
	t.Parallel()

	interval := 210 * time.Second
	schedule := DefaultSyncSchedule()

	tests := []struct {
		name     string
		sinceRaw time.Duration
		zero     bool
		expected time.Duration
	}{
		{name: "empty ledger polls densely", zero: true, expected: 5 * time.Second},
		{name: "early in the cycle polls sparsely", sinceRaw: 100 * time.Second, expected: 60 * time.Second},
		{name: "never sleeps past the expected draw", sinceRaw: 180 * time.Second, expected: 30 * time.Second},
		{name: "just after expected draw polls densely", sinceRaw: 215 * time.Second, expected: 5 * time.Second},
		{name: "dense window over", sinceRaw: 300 * time.Second, expected: 60 * time.Second},
		{name: "overdue cycle still stops at the projected draw", sinceRaw: 410 * time.Second, expected: 10 * time.Second},
		{name: "long outage keeps dense phase", sinceRaw: 640 * time.Second, expected: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var last time.Time
			if !tt.zero {
				last = syncNow.Add(-tt.sinceRaw)
			}
			assert.Equal(t, tt.expected, schedule.NextDelay(syncNow, last, interval))
		})
	}
}

func TestDrawSyncWorker_SyncOnce(t *testing.T) {
	t.Parallel()

	t.Run("progress inserts oldest first and settles", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		repos.draws.On("Insert", mock.Anything, mock.MatchedBy(func(d *entities.DrawResult) bool { return d.Issue == "3001" })).Return(false, nil).Once()
		repos.draws.On("Insert", mock.Anything, mock.MatchedBy(func(d *entities.DrawResult) bool { return d.Issue == "3002" })).Return(true, nil).Once()
		repos.publisher.On("Publish", mock.AnythingOfType("events.DrawIngestedEvent")).Return(nil).Once()

		fetcher := &fakeFetcher{fetch: func(ctx context.Context) (*entities.FetchResult, error) {
			return &entities.FetchResult{
				Source:  "usa28",
				Outcome: entities.FetchOutcomeProgress,
				Items:   []entities.DrawItem{item("3002", [3]int{5, 3, 8}), item("3001", [3]int{1, 2, 4})},
			}, nil
		}}
		settler := &fakeSettler{}

		w := newSyncWorker(repos, fetcher, settler)
		report, err := w.SyncOnce(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"3002"}, report.Inserted)
		assert.Equal(t, int32(1), settler.calls.Load())

		first := repos.draws.Calls[0].Arguments.Get(1).(*entities.DrawResult)
		assert.Equal(t, "3001", first.Issue)
		assert.Equal(t, "usa28", first.Source)
		repos.draws.AssertExpectations(t)
		repos.publisher.AssertExpectations(t)
	})

	t.Run("malformed draw is discarded", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		repos.draws.On("Insert", mock.Anything, mock.Anything).Return(true, nil).Once()
		repos.publisher.On("Publish", mock.Anything).Return(nil)

		fetcher := &fakeFetcher{fetch: func(ctx context.Context) (*entities.FetchResult, error) {
			return &entities.FetchResult{
				Source:  "jnd28",
				Outcome: entities.FetchOutcomeProgress,
				Items:   []entities.DrawItem{item("3002", [3]int{5, 3, 8}), item("3001", [3]int{12, 2, 4})},
			}, nil
		}}

		w := newSyncWorker(repos, fetcher, &fakeSettler{})
		report, err := w.SyncOnce(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"3002"}, report.Inserted)
		repos.draws.AssertExpectations(t)
	})

	t.Run("not due re-offers draws already in the ledger", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		repos.draws.On("Insert", mock.Anything, mock.Anything).Return(false, nil).Once()
		fetcher := &fakeFetcher{fetch: func(ctx context.Context) (*entities.FetchResult, error) {
			return &entities.FetchResult{Source: "usa28", Outcome: entities.FetchOutcomeNotDue, Items: []entities.DrawItem{item("3001", [3]int{1, 2, 4})}}, nil
		}}
		settler := &fakeSettler{}

		w := newSyncWorker(repos, fetcher, settler)
		report, err := w.SyncOnce(context.Background())

		require.NoError(t, err)
		assert.Empty(t, report.Inserted)
		assert.Equal(t, int32(0), settler.calls.Load())
		repos.draws.AssertExpectations(t)
		repos.publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("auto settle disabled", func(t *testing.T) {
		t.Parallel()
		repos := newTestRepos()
		repos.draws.On("Insert", mock.Anything, mock.Anything).Return(true, nil)
		repos.publisher.On("Publish", mock.Anything).Return(nil)
		fetcher := &fakeFetcher{fetch: func(ctx context.Context) (*entities.FetchResult, error) {
			return &entities.FetchResult{Source: "usa28", Outcome: entities.FetchOutcomeProgress, Items: []entities.DrawItem{item("3001", [3]int{1, 2, 4})}}, nil
		}}
		settler := &fakeSettler{}
		settings := entities.DefaultGameSettings()
		settings.AutoSettleEnabled = false

		w := newSyncWorker(repos, fetcher, settler)
		w.settings = testhelpers.NewStaticSettingsProvider(settings)
		_, err := w.SyncOnce(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int32(0), settler.calls.Load())
	})

	t.Run("fetch failure", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("all sources down")
		fetcher := &fakeFetcher{fetch: func(ctx context.Context) (*entities.FetchResult, error) {
			return nil, sentinel
		}}

		w := newSyncWorker(newTestRepos(), fetcher, &fakeSettler{})
		_, err := w.SyncOnce(context.Background())

		assert.ErrorIs(t, err, sentinel)
	})
}

func TestDrawSyncWorker_RetriesDrawAfterFailedInsert(t *testing.T) {
	t.Parallel()

	adapter := testhelpers.NewMockSourceAdapter("usa28", 1)
	adapter.On("FetchLatest", mock.Anything).Return([]entities.DrawItem{item("3001", [3]int{1, 2, 4})}, nil)
	manager := services.NewAcquisitionManager(
		[]interfaces.SourceAdapter{adapter},
		testhelpers.NewStaticSettingsProvider(nil),
		new(testhelpers.MockEventPublisher),
		services.WithClock(func() time.Time { return syncNow }),
		services.WithInitialState(entities.AcquisitionState{
			LastFetchedIssue:   "3000",
			LastFetchTimestamp: syncNow.Add(-10 * time.Minute),
		}),
	)

	repos := newTestRepos()
	repos.draws.On("Insert", mock.Anything, mock.MatchedBy(func(d *entities.DrawResult) bool {
		return d.Issue == "3001"
	})).Return(false, errors.New("db down")).Once()
	repos.draws.On("Insert", mock.Anything, mock.MatchedBy(func(d *entities.DrawResult) bool {
		return d.Issue == "3001"
	})).Return(true, nil).Once()
	repos.publisher.On("Publish", mock.AnythingOfType("events.DrawIngestedEvent")).Return(nil).Once()
	settler := &fakeSettler{}

	w := newSyncWorker(repos, manager, settler)

	report, err := w.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, entities.FetchOutcomeProgress, report.Fetch.Outcome)
	assert.Empty(t, report.Inserted)
	assert.Equal(t, "3001", manager.State().LastFetchedIssue)

	report, err = w.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.FetchOutcomeNotDue, report.Fetch.Outcome)
	assert.Equal(t, []string{"3001"}, report.Inserted)
	assert.Equal(t, int32(1), settler.calls.Load())

	repos.draws.AssertExpectations(t)
	repos.publisher.AssertExpectations(t)
}

func TestDrawSyncWorker_OverlappingTriggerIsSkipped(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{fetch: func(ctx context.Context) (*entities.FetchResult, error) {
		close(entered)
		<-release
		return &entities.FetchResult{Source: "usa28", Outcome: entities.FetchOutcomeNotDue}, nil
	}}

	w := newSyncWorker(newTestRepos(), fetcher, &fakeSettler{})

	done := make(chan error, 1)
	go func() {
		_, err := w.SyncOnce(context.Background())
		done <- err
	}()
	<-entered

	_, err := w.SyncOnce(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestDrawSyncWorker_RunUsesScheduleAndStops(t *testing.T) {
	t.Parallel()

	repos := newTestRepos()
	repos.draws.On("GetLatest", mock.Anything).Return(&entities.DrawResult{Issue: "3001", DrawTime: syncNow.Add(-100 * time.Second)}, nil)

	var fetches atomic.Int32
	fetcher := &fakeFetcher{fetch: func(ctx context.Context) (*entities.FetchResult, error) {
		fetches.Add(1)
		return &entities.FetchResult{Source: "usa28", Outcome: entities.FetchOutcomeNotDue}, nil
	}}
	settler := &fakeSettler{}

	w := newSyncWorker(repos, fetcher, settler)
	var delays []time.Duration
	w.SetClock(func() time.Time { return syncNow }, func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		if len(delays) == 2 {
			return context.Canceled
		}
		return nil
	})

	w.Run(context.Background())

	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, delays)
	assert.Equal(t, int32(1), settler.calls.Load())
}
