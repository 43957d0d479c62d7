package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"
	"pc28/domain/interfaces"
	"pc28/domain/rules"
	"pc28/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrBetNotFound is returned when the bet row does not exist
	ErrBetNotFound = errors.New("bet not found")
	// ErrBetNotPending is returned when the bet was settled or cancelled concurrently
	ErrBetNotPending = errors.New("bet is no longer pending")
	// ErrBetIssueMismatch is returned when a bet is settled against another issue's draw
	ErrBetIssueMismatch = errors.New("bet issue does not match draw")
	// ErrUserNotFound is returned when the bettor's row does not exist
	ErrUserNotFound = errors.New("user not found")
)

type betSettlementService struct {
	betRepo         interfaces.BetRepository
	userRepo        interfaces.UserRepository
	pointRecordRepo interfaces.PointRecordRepository
	eventPublisher  interfaces.EventPublisher
}

// NewBetSettlementService creates a bet settlement service bound to one transaction's repositories
func NewBetSettlementService(
	betRepo interfaces.BetRepository,
	userRepo interfaces.UserRepository,
	pointRecordRepo interfaces.PointRecordRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.BetSettlementService {
	return &betSettlementService{
		betRepo:         betRepo,
		userRepo:        userRepo,
		pointRecordRepo: pointRecordRepo,
		eventPublisher:  eventPublisher,
	}
}

// SettleBet locks the bet and its owner, applies the payout table and writes
// the bet, the new balance and the audit entry. The caller commits.
func (s *betSettlementService) SettleBet(ctx context.Context, draw *entities.DrawResult, betID int64, rates entities.SettlementRates, settledAt time.Time) (*entities.BetSettlement, error) {
	bet, err := s.betRepo.GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bet %d: %w", betID, err)
	}
	if bet == nil {
		return nil, fmt.Errorf("%w: %d", ErrBetNotFound, betID)
	}
	if !bet.IsPending() {
		return nil, fmt.Errorf("%w: bet %d is %s", ErrBetNotPending, betID, bet.Status)
	}
	if bet.Issue != draw.Issue {
		return nil, fmt.Errorf("%w: bet %d is on %s, draw is %s", ErrBetIssueMismatch, betID, bet.Issue, draw.Issue)
	}

	outcome, err := rules.SettleBet(bet, draw, rates)
	if err != nil {
		return nil, fmt.Errorf("failed to compute outcome for bet %d: %w", betID, err)
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, bet.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", bet.UserID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, bet.UserID)
	}

	balanceBefore := user.Points
	balanceAfter := decimal.NewFromInt(balanceBefore).Add(outcome.ResultAmount).Floor().IntPart()

	bet.Status = outcome.Status
	bet.Fee = decimal.NewNullDecimal(outcome.Fee)
	bet.ResultAmount = decimal.NewNullDecimal(outcome.ResultAmount)
	bet.PointsAfter = &balanceAfter
	bet.SettledAt = &settledAt
	if err := s.betRepo.Settle(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to persist bet %d: %w", betID, err)
	}

	if err := s.userRepo.UpdatePoints(ctx, user.ID, balanceAfter); err != nil {
		return nil, fmt.Errorf("failed to update balance for user %d: %w", user.ID, err)
	}

	relatedID := bet.ID
	record := &entities.PointRecord{
		UserID:        user.ID,
		Type:          entities.PointRecordTypeForStatus(outcome.Status),
		Amount:        outcome.ResultAmount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		RelatedType:   entities.RelatedTypeBet,
		RelatedID:     &relatedID,
		Remark:        fmt.Sprintf("issue %s draw %s", draw.Issue, rules.FormatDrawResult(draw.Digits)),
		OperatorType:  entities.OperatorTypeSystem,
		Metadata: map[string]any{
			"issue":      draw.Issue,
			"betType":    string(bet.BetType),
			"betContent": bet.BetContent,
			"fee":        outcome.Fee.String(),
			"displayFee": bet.DisplayFee.String(),
		},
		CreatedAt: settledAt,
	}
	if err := utils.RecordPointChange(ctx, s.pointRecordRepo, s.eventPublisher, record); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.BetSettledEvent{
		BetID:        bet.ID,
		UserID:       bet.UserID,
		Issue:        bet.Issue,
		BetType:      string(bet.BetType),
		Status:       string(outcome.Status),
		Fee:          outcome.Fee,
		ResultAmount: outcome.ResultAmount,
	}); err != nil {
		log.WithError(err).Error("Failed to publish bet settled event")
	}

	log.WithFields(log.Fields{
		"betID":        bet.ID,
		"userID":       bet.UserID,
		"issue":        bet.Issue,
		"status":       outcome.Status,
		"resultAmount": outcome.ResultAmount.String(),
		"balance":      balanceAfter,
	}).Debug("Bet settled")

	return &entities.BetSettlement{
		BetID:         bet.ID,
		UserID:        bet.UserID,
		Issue:         bet.Issue,
		BetType:       bet.BetType,
		Outcome:       outcome,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	}, nil
}
