package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"
	"pc28/domain/interfaces"
	"pc28/domain/services"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	settlementLockTTL       = 2 * time.Minute
	outstandingSweepLimit   = 50
	settlementLockKeyPrefix = "settle:"
)

var (
	// ErrSettlementInProgress is returned when another worker holds the issue's settlement lock
	ErrSettlementInProgress = errors.New("settlement already in progress")
	// ErrDrawNotFound is returned when settlement is requested for an issue missing from the ledger
	ErrDrawNotFound = errors.New("draw not found")
	// ErrSettlementIncomplete is returned when at least one bet failed and the issue stays unsettled
	ErrSettlementIncomplete = errors.New("settlement incomplete")
)

// SettlementCoordinator settles every pending bet of an issue, one transaction per bet
type SettlementCoordinator struct {
	uowFactory UnitOfWorkFactory
	locker     interfaces.Locker
	settings   interfaces.SettingsProvider
	metrics    interfaces.MetricsRecorder
	now        func() time.Time
}

// NewSettlementCoordinator creates a new settlement coordinator
func NewSettlementCoordinator(uowFactory UnitOfWorkFactory, locker interfaces.Locker, settings interfaces.SettingsProvider, metrics interfaces.MetricsRecorder) *SettlementCoordinator {
	if metrics == nil {
		metrics = interfaces.NoopMetricsRecorder{}
	}
	return &SettlementCoordinator{
		uowFactory: uowFactory,
		locker:     locker,
		settings:   settings,
		metrics:    metrics,
		now:        time.Now,
	}
}

// SettleIssue settles all pending bets for an issue and marks the draw settled
// once every bet has succeeded. Settling an already settled issue is a no-op.
func (c *SettlementCoordinator) SettleIssue(ctx context.Context, issue string) (*entities.SettlementSummary, error) {
	release, err := c.locker.Acquire(ctx, settlementLockKeyPrefix+issue, settlementLockTTL)
	if err != nil {
		if errors.Is(err, interfaces.ErrLockHeld) {
			return nil, fmt.Errorf("%w: issue %s", ErrSettlementInProgress, issue)
		}
		return nil, fmt.Errorf("failed to acquire settlement lock: %w", err)
	}
	defer release()

	draw, pending, err := c.loadIssue(ctx, issue)
	if err != nil {
		return nil, err
	}

	summary := &entities.SettlementSummary{Issue: issue, NetDelta: decimal.Zero}
	if draw.IsSettled() {
		summary.AlreadySettled = true
		log.WithField("issue", issue).Debug("Issue already settled")
		return summary, nil
	}

	summary.Total = len(pending)
	rates := c.settings.Current().Rates
	settledAt := c.now().UTC()

	for _, bet := range pending {
		result, err := c.settleBet(ctx, draw, bet.ID, rates, settledAt)
		switch {
		case err == nil:
			summary.Settled++
			summary.NetDelta = summary.NetDelta.Add(result.Outcome.ResultAmount)
			if result.Outcome.Status == entities.BetStatusWin {
				summary.Wins++
			} else {
				summary.Losses++
			}
			c.metrics.RecordBetSettled(string(result.BetType), string(result.Outcome.Status))
		case errors.Is(err, services.ErrBetNotPending):
			summary.Skipped++
			log.WithFields(log.Fields{
				"issue": issue,
				"betID": bet.ID,
			}).Info("Bet left pending state before settlement, skipping")
		default:
			summary.Failed++
			c.metrics.RecordSettlementFailure("bet")
			log.WithFields(log.Fields{
				"issue": issue,
				"betID": bet.ID,
			}).WithError(err).Error("Failed to settle bet")
		}
	}

	if summary.Failed > 0 {
		log.WithFields(log.Fields{
			"issue":   issue,
			"settled": summary.Settled,
			"failed":  summary.Failed,
		}).Warn("Issue left unsettled after bet failures")
		return summary, fmt.Errorf("%w: %d of %d bets failed for issue %s", ErrSettlementIncomplete, summary.Failed, summary.Total, issue)
	}

	marked, err := c.markSettled(ctx, summary, settledAt)
	if err != nil {
		c.metrics.RecordSettlementFailure("mark")
		return summary, err
	}
	summary.MarkedSettled = marked

	log.WithFields(log.Fields{
		"issue":    issue,
		"total":    summary.Total,
		"wins":     summary.Wins,
		"losses":   summary.Losses,
		"skipped":  summary.Skipped,
		"netDelta": summary.NetDelta.String(),
	}).Info("Issue settled")

	return summary, nil
}

// SettleOutstanding sweeps unsettled draws oldest first. It is run after
// ingestion and on startup to recover issues a crash left behind.
func (c *SettlementCoordinator) SettleOutstanding(ctx context.Context) ([]*entities.SettlementSummary, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	unsettled, err := uow.DrawResultRepository().GetUnsettled(ctx, outstandingSweepLimit)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to get unsettled draws: %w", err)
	}

	var summaries []*entities.SettlementSummary
	var failures int
	for _, draw := range unsettled {
		if ctx.Err() != nil {
			return summaries, ctx.Err()
		}

		summary, err := c.SettleIssue(ctx, draw.Issue)
		if err != nil {
			if errors.Is(err, ErrSettlementInProgress) {
				log.WithField("issue", draw.Issue).Info("Issue is being settled elsewhere, skipping")
				continue
			}
			failures++
			log.WithField("issue", draw.Issue).WithError(err).Error("Failed to settle outstanding issue")
		}
		if summary != nil {
			summaries = append(summaries, summary)
		}
	}

	if failures > 0 {
		return summaries, fmt.Errorf("%w: %d outstanding issues failed", ErrSettlementIncomplete, failures)
	}
	return summaries, nil
}

func (c *SettlementCoordinator) loadIssue(ctx context.Context, issue string) (*entities.DrawResult, []*entities.Bet, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	draw, err := uow.DrawResultRepository().GetByIssue(ctx, issue)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get draw %s: %w", issue, err)
	}
	if draw == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrDrawNotFound, issue)
	}
	if draw.IsSettled() {
		return draw, nil, nil
	}

	pending, err := uow.BetRepository().GetPendingByIssue(ctx, issue)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pending bets for %s: %w", issue, err)
	}
	return draw, pending, nil
}

// settleBet runs one bet in its own transaction
func (c *SettlementCoordinator) settleBet(ctx context.Context, draw *entities.DrawResult, betID int64, rates entities.SettlementRates, settledAt time.Time) (*entities.BetSettlement, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	svc := services.NewBetSettlementService(
		uow.BetRepository(),
		uow.UserRepository(),
		uow.PointRecordRepository(),
		uow.EventBus(),
	)

	result, err := svc.SettleBet(ctx, draw, betID, rates, settledAt)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bet %d: %w", betID, err)
	}
	return result, nil
}

func (c *SettlementCoordinator) markSettled(ctx context.Context, summary *entities.SettlementSummary, settledAt time.Time) (bool, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	marked, err := uow.DrawResultRepository().MarkSettled(ctx, summary.Issue, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark issue %s settled: %w", summary.Issue, err)
	}

	if marked {
		if err := uow.EventBus().Publish(events.IssueSettledEvent{
			Issue:    summary.Issue,
			BetCount: summary.Settled,
			Wins:     summary.Wins,
			Losses:   summary.Losses,
			NetDelta: summary.NetDelta,
		}); err != nil {
			log.WithError(err).Error("Failed to publish issue settled event")
		}
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit settlement of %s: %w", summary.Issue, err)
	}
	return marked, nil
}
