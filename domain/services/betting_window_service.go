package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"pc28/domain/entities"
	"pc28/domain/interfaces"
	"pc28/domain/rules"
)

// closingSoonThreshold marks an open window as about to close
const closingSoonThreshold = 10

// Reasons reported by CanPlaceBet when a bet is rejected
const (
	ReasonGameDisabled   = "game_disabled"
	ReasonBettingClosed  = "betting_closed"
	ReasonWaitingForDraw = "waiting_for_draw"
)

// BettingWindowService answers timing questions for the bet submission path.
// It re-reads the newest ledger row on every call and keeps no window state.
type BettingWindowService struct {
	draws    interfaces.DrawReader
	settings interfaces.SettingsProvider
	now      func() time.Time
}

// NewBettingWindowService creates a new betting window service
func NewBettingWindowService(draws interfaces.DrawReader, settings interfaces.SettingsProvider, now func() time.Time) *BettingWindowService {
	if now == nil {
		now = time.Now
	}
	return &BettingWindowService{
		draws:    draws,
		settings: settings,
		now:      now,
	}
}

// Status returns the window state at the current instant
func (s *BettingWindowService) Status(ctx context.Context) (*entities.WindowStatus, error) {
	latest, err := s.draws.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest draw: %w", err)
	}

	status, err := ComputeWindowStatus(latest, s.settings.Current(), s.now())
	if err != nil {
		return nil, err
	}
	return status, nil
}

// CanPlaceBet is the single gate the bet submission path consults before accepting a bet
func (s *BettingWindowService) CanPlaceBet(ctx context.Context) (*entities.BetGate, error) {
	if !s.settings.Current().GameEnabled {
		return &entities.BetGate{Allowed: false, Reason: ReasonGameDisabled}, nil
	}

	status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}

	gate := &entities.BetGate{Allowed: status.CanBet, Issue: status.CurrentIssue}
	switch {
	case status.WaitingForDraw:
		gate.Reason = ReasonWaitingForDraw
	case !status.CanBet:
		gate.Reason = ReasonBettingClosed
	}
	return gate, nil
}

// ResolveBetIssue returns the issue a bet placed now belongs to. If the nominal
// current issue already has a draw, the bet falls forward to the following one.
func (s *BettingWindowService) ResolveBetIssue(ctx context.Context) (string, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return "", err
	}

	existing, err := s.draws.GetByIssue(ctx, status.CurrentIssue)
	if err != nil {
		return "", fmt.Errorf("failed to check issue %s: %w", status.CurrentIssue, err)
	}
	if existing == nil {
		return status.CurrentIssue, nil
	}
	return status.NextIssue, nil
}

// ComputeWindowStatus derives the window state from the newest draw and the
// settings snapshot. A nil draw anchors the default issue's window at now.
func ComputeWindowStatus(last *entities.DrawResult, settings *entities.GameSettings, now time.Time) (*entities.WindowStatus, error) {
	interval := settings.DrawInterval()
	closeBefore := settings.CloseBeforeDraw()

	status := &entities.WindowStatus{ServerTime: now}

	anchor := now
	if last != nil {
		current, err := rules.NextIssue(last.Issue)
		if err != nil {
			return nil, err
		}
		drawTime := last.DrawTime
		anchor = drawTime
		status.LastIssue = last.Issue
		status.LastDrawTime = &drawTime
		status.CurrentIssue = current
	} else {
		status.CurrentIssue = settings.DefaultIssue
	}

	next, err := rules.NextIssue(status.CurrentIssue)
	if err != nil {
		return nil, err
	}
	status.NextIssue = next

	status.CurrentDrawTime = anchor.Add(interval)
	status.CurrentCloseTime = status.CurrentDrawTime.Add(-closeBefore)
	status.SecondsToDraw = ceilSeconds(status.CurrentDrawTime.Sub(now))
	status.SecondsToClose = ceilSeconds(status.CurrentCloseTime.Sub(now))

	switch {
	case status.SecondsToDraw <= 0:
		status.State = entities.WindowStateClosed
		status.WaitingForDraw = true
		status.Countdown = 0
		status.ProgressPercentage = 100
	case closeBefore == 0 || status.SecondsToClose > 0:
		status.State = entities.WindowStateOpen
		status.CanBet = true
		openWindow := settings.DrawIntervalSeconds - settings.CloseBeforeDrawSeconds
		if closeBefore == 0 {
			status.Countdown = status.SecondsToDraw
		} else {
			status.Countdown = status.SecondsToClose
			status.Closing = status.SecondsToClose <= closingSoonThreshold
		}
		status.ProgressPercentage = progress(openWindow-status.Countdown, openWindow)
	default:
		status.State = entities.WindowStateClosed
		status.Countdown = status.SecondsToDraw
		status.ProgressPercentage = progress(settings.CloseBeforeDrawSeconds-status.Countdown, settings.CloseBeforeDrawSeconds)
	}

	status.CountdownText = formatCountdown(status.Countdown)
	return status, nil
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func progress(elapsed, total int) float64 {
	if total <= 0 {
		return 100
	}
	pct := float64(elapsed) / float64(total) * 100
	pct = math.Max(0, math.Min(100, pct))
	return math.Round(pct*100) / 100
}

func formatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
