package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pc28/domain/entities"
	"pc28/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var windowNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func lastDraw(issue string, ago time.Duration) *entities.DrawResult {
	return &entities.DrawResult{Issue: issue, DrawTime: windowNow.Add(-ago)}
}

func TestComputeWindowStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		last           *entities.DrawResult
		closeBefore    int
		wantState      entities.WindowState
		wantCanBet     bool
		wantWaiting    bool
		wantClosing    bool
		wantToClose    int
		wantToDraw     int
		wantCountdown  int
		wantProgress   float64
		wantCurrent    string
		wantNext       string
		wantCountdownS string
	}{
		{
			name:           "open with ten seconds to close",
			last:           lastDraw("3000", 170*time.Second),
			closeBefore:    30,
			wantState:      entities.WindowStateOpen,
			wantCanBet:     true,
			wantClosing:    true,
			wantToClose:    10,
			wantToDraw:     40,
			wantCountdown:  10,
			wantProgress:   94.44,
			wantCurrent:    "3001",
			wantNext:       "3002",
			wantCountdownS: "00:10",
		},
		{
			name:           "closed five seconds before draw",
			last:           lastDraw("3000", 205*time.Second),
			closeBefore:    30,
			wantState:      entities.WindowStateClosed,
			wantToClose:    -25,
			wantToDraw:     5,
			wantCountdown:  5,
			wantProgress:   83.33,
			wantCurrent:    "3001",
			wantNext:       "3002",
			wantCountdownS: "00:05",
		},
		{
			name:           "ten seconds before draw is already closed",
			last:           lastDraw("3000", 200*time.Second),
			closeBefore:    30,
			wantState:      entities.WindowStateClosed,
			wantToClose:    -20,
			wantToDraw:     10,
			wantCountdown:  10,
			wantProgress:   66.67,
			wantCurrent:    "3001",
			wantNext:       "3002",
			wantCountdownS: "00:10",
		},
		{
			name:           "expired window waits for draw",
			last:           lastDraw("3000", 215*time.Second),
			closeBefore:    30,
			wantState:      entities.WindowStateClosed,
			wantWaiting:    true,
			wantToClose:    -35,
			wantToDraw:     -5,
			wantCountdown:  0,
			wantProgress:   100,
			wantCurrent:    "3001",
			wantNext:       "3002",
			wantCountdownS: "00:00",
		},
		{
			name:           "zero close keeps betting open until the draw",
			last:           lastDraw("3000", 205*time.Second),
			closeBefore:    0,
			wantState:      entities.WindowStateOpen,
			wantCanBet:     true,
			wantToClose:    5,
			wantToDraw:     5,
			wantCountdown:  5,
			wantProgress:   97.62,
			wantCurrent:    "3001",
			wantNext:       "3002",
			wantCountdownS: "00:05",
		},
		{
			name:           "fresh window just after a draw",
			last:           lastDraw("0099", 0),
			closeBefore:    30,
			wantState:      entities.WindowStateOpen,
			wantCanBet:     true,
			wantToClose:    180,
			wantToDraw:     210,
			wantCountdown:  180,
			wantProgress:   0,
			wantCurrent:    "0100",
			wantNext:       "0101",
			wantCountdownS: "03:00",
		},
		{
			name:           "empty ledger anchors default issue at now",
			last:           nil,
			closeBefore:    30,
			wantState:      entities.WindowStateOpen,
			wantCanBet:     true,
			wantToClose:    180,
			wantToDraw:     210,
			wantCountdown:  180,
			wantProgress:   0,
			wantCurrent:    "1",
			wantNext:       "2",
			wantCountdownS: "03:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			settings := entities.DefaultGameSettings()
			settings.CloseBeforeDrawSeconds = tt.closeBefore

			status, err := ComputeWindowStatus(tt.last, settings, windowNow)
			require.NoError(t, err)

			assert.Equal(t, tt.wantState, status.State)
			assert.Equal(t, tt.wantCanBet, status.CanBet)
			assert.Equal(t, tt.wantWaiting, status.WaitingForDraw)
			assert.Equal(t, tt.wantClosing, status.Closing)
			assert.Equal(t, tt.wantToClose, status.SecondsToClose)
			assert.Equal(t, tt.wantToDraw, status.SecondsToDraw)
			assert.Equal(t, tt.wantCountdown, status.Countdown)
			assert.InDelta(t, tt.wantProgress, status.ProgressPercentage, 0.001)
			assert.Equal(t, tt.wantCurrent, status.CurrentIssue)
			assert.Equal(t, tt.wantNext, status.NextIssue)
			assert.Equal(t, tt.wantCountdownS, status.CountdownText)
		})
	}
}

func TestComputeWindowStatus_RoundsPartialSecondsUp(t *testing.T) {
	t.Parallel()

	last := lastDraw("3000", 170*time.Second+500*time.Millisecond)
	status, err := ComputeWindowStatus(last, entities.DefaultGameSettings(), windowNow)
	require.NoError(t, err)

	assert.Equal(t, 10, status.SecondsToClose)
	assert.Equal(t, 40, status.SecondsToDraw)
	assert.Equal(t, windowNow.Add(39*time.Second+500*time.Millisecond), status.CurrentDrawTime)
}

func TestComputeWindowStatus_InvalidIssue(t *testing.T) {
	t.Parallel()

	_, err := ComputeWindowStatus(&entities.DrawResult{Issue: "abc", DrawTime: windowNow}, entities.DefaultGameSettings(), windowNow)
	assert.Error(t, err)
}

func TestBettingWindowService_CanPlaceBet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setupMocks  func(draws *testhelpers.MockDrawResultRepository)
		gameEnabled bool
		wantAllowed bool
		wantReason  string
		wantErr     bool
	}{
		{
			name: "open window",
			setupMocks: func(draws *testhelpers.MockDrawResultRepository) {
				draws.On("GetLatest", mock.Anything).Return(lastDraw("3000", 60*time.Second), nil)
			},
			gameEnabled: true,
			wantAllowed: true,
		},
		{
			name: "closed window",
			setupMocks: func(draws *testhelpers.MockDrawResultRepository) {
				draws.On("GetLatest", mock.Anything).Return(lastDraw("3000", 190*time.Second), nil)
			},
			gameEnabled: true,
			wantReason:  ReasonBettingClosed,
		},
		{
			name: "waiting for draw",
			setupMocks: func(draws *testhelpers.MockDrawResultRepository) {
				draws.On("GetLatest", mock.Anything).Return(lastDraw("3000", 300*time.Second), nil)
			},
			gameEnabled: true,
			wantReason:  ReasonWaitingForDraw,
		},
		{
			name:        "game disabled",
			setupMocks:  func(draws *testhelpers.MockDrawResultRepository) {},
			gameEnabled: false,
			wantReason:  ReasonGameDisabled,
		},
		{
			name: "ledger error",
			setupMocks: func(draws *testhelpers.MockDrawResultRepository) {
				draws.On("GetLatest", mock.Anything).Return(nil, errors.New("connection refused"))
			},
			gameEnabled: true,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			draws := new(testhelpers.MockDrawResultRepository)
			tt.setupMocks(draws)
			settings := entities.DefaultGameSettings()
			settings.GameEnabled = tt.gameEnabled

			svc := NewBettingWindowService(draws, testhelpers.NewStaticSettingsProvider(settings), func() time.Time { return windowNow })
			gate, err := svc.CanPlaceBet(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, gate.Allowed)
			assert.Equal(t, tt.wantReason, gate.Reason)
			draws.AssertExpectations(t)
		})
	}
}

func TestBettingWindowService_ResolveBetIssue(t *testing.T) {
	t.Parallel()

	t.Run("current issue without draw", func(t *testing.T) {
		t.Parallel()
		draws := new(testhelpers.MockDrawResultRepository)
		draws.On("GetLatest", mock.Anything).Return(lastDraw("3000", 60*time.Second), nil)
		draws.On("GetByIssue", mock.Anything, "3001").Return(nil, nil)

		svc := NewBettingWindowService(draws, testhelpers.NewStaticSettingsProvider(nil), func() time.Time { return windowNow })
		issue, err := svc.ResolveBetIssue(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "3001", issue)
	})

	t.Run("falls forward when current issue already drawn", func(t *testing.T) {
		t.Parallel()
		draws := new(testhelpers.MockDrawResultRepository)
		draws.On("GetLatest", mock.Anything).Return(lastDraw("3000", 60*time.Second), nil)
		draws.On("GetByIssue", mock.Anything, "3001").Return(&entities.DrawResult{Issue: "3001"}, nil)

		svc := NewBettingWindowService(draws, testhelpers.NewStaticSettingsProvider(nil), func() time.Time { return windowNow })
		issue, err := svc.ResolveBetIssue(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "3002", issue)
	})
}
