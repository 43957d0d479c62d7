package testutil

import (
	"time"

	"pc28/domain/entities"
	"pc28/domain/rules"

	"github.com/shopspring/decimal"
)

// CreateTestDraw builds a classified draw result. It panics on invalid digits.
func CreateTestDraw(issue string, digits [3]int, drawTime time.Time) *entities.DrawResult {
	draw, err := rules.NewDrawResult(entities.DrawItem{
		Issue:    issue,
		Digits:   digits,
		DrawTime: drawTime,
	}, "test")
	if err != nil {
		panic(err)
	}
	return draw
}

// CreateTestBet builds a pending bet
func CreateTestBet(userID int64, issue string, betType entities.BetType, content string, amount string) *entities.Bet {
	return &entities.Bet{
		UserID:       userID,
		Issue:        issue,
		BetType:      betType,
		BetContent:   content,
		Amount:       decimal.RequireFromString(amount),
		DisplayFee:   decimal.Zero,
		Status:       entities.BetStatusPending,
		PointsBefore: 1000,
	}
}

// CreateTestPointRecord builds a system audit entry for a bet
func CreateTestPointRecord(userID, betID int64, amount string, before, after int64) *entities.PointRecord {
	relatedID := betID
	recordType := entities.PointRecordTypeWin
	if after < before {
		recordType = entities.PointRecordTypeLoss
	}
	return &entities.PointRecord{
		UserID:        userID,
		Type:          recordType,
		Amount:        decimal.RequireFromString(amount),
		BalanceBefore: before,
		BalanceAfter:  after,
		RelatedType:   entities.RelatedTypeBet,
		RelatedID:     &relatedID,
		Remark:        "test",
		OperatorType:  entities.OperatorTypeSystem,
		Metadata:      map[string]any{"test": true},
	}
}
