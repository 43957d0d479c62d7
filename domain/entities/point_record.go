package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PointRecordType classifies an audit ledger entry
type PointRecordType string

const (
	PointRecordTypeWin  PointRecordType = "win"
	PointRecordTypeLoss PointRecordType = "loss"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeBet RelatedType = "bet"
)

// OperatorType records who caused a balance change
type OperatorType string

const (
	OperatorTypeSystem OperatorType = "system"
	OperatorTypeAdmin  OperatorType = "admin"
)

// PointRecord is an audit ledger entry for a single balance change
type PointRecord struct {
	ID            int64           `db:"id"`
	UserID        int64           `db:"user_id"`
	Type          PointRecordType `db:"type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore int64           `db:"balance_before"`
	BalanceAfter  int64           `db:"balance_after"`
	RelatedType   RelatedType     `db:"related_type"`
	RelatedID     *int64          `db:"related_id"`
	Remark        string          `db:"remark"`
	OperatorType  OperatorType    `db:"operator_type"`
	Metadata      map[string]any  `db:"metadata"`
	CreatedAt     time.Time       `db:"created_at"`
}

// ChangeAmount returns the whole-unit balance movement
func (r *PointRecord) ChangeAmount() int64 {
	return r.BalanceAfter - r.BalanceBefore
}

// PointRecordTypeForStatus maps a settled bet status to its ledger type
func PointRecordTypeForStatus(status BetStatus) PointRecordType {
	if status == BetStatusWin {
		return PointRecordTypeWin
	}
	return PointRecordTypeLoss
}
