package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetType identifies what a bet is placed on
type BetType string

const (
	BetTypeMultiple  BetType = "multiple"
	BetTypeBig       BetType = "big"
	BetTypeSmall     BetType = "small"
	BetTypeOdd       BetType = "odd"
	BetTypeEven      BetType = "even"
	BetTypeBigOdd    BetType = "big_odd"
	BetTypeBigEven   BetType = "big_even"
	BetTypeSmallOdd  BetType = "small_odd"
	BetTypeSmallEven BetType = "small_even"
)

// BetFamily groups bet types that share a payout table
type BetFamily string

const (
	BetFamilyMultiple BetFamily = "multiple"
	BetFamilySimple   BetFamily = "simple"
	BetFamilyCombo    BetFamily = "combo"
	BetFamilyUnknown  BetFamily = "unknown"
)

// Family returns the payout family for the bet type
func (t BetType) Family() BetFamily {
	switch t {
	case BetTypeMultiple:
		return BetFamilyMultiple
	case BetTypeBig, BetTypeSmall, BetTypeOdd, BetTypeEven:
		return BetFamilySimple
	case BetTypeBigOdd, BetTypeBigEven, BetTypeSmallOdd, BetTypeSmallEven:
		return BetFamilyCombo
	default:
		return BetFamilyUnknown
	}
}

// IsValid returns true for every known bet type
func (t BetType) IsValid() bool {
	return t.Family() != BetFamilyUnknown
}

// BetStatus is the settlement state of a bet
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusWin       BetStatus = "win"
	BetStatusLoss      BetStatus = "loss"
	BetStatusCancelled BetStatus = "cancelled"
)

// IsTerminal returns true for every status except pending
func (s BetStatus) IsTerminal() bool {
	return s != BetStatusPending
}

// Bet is a single wager against an issue.
// DisplayFee is what the bettor saw at placement; Fee is the authoritative
// value written at settlement from the configuration in force at that time.
type Bet struct {
	ID           int64               `db:"id"`
	UserID       int64               `db:"user_id"`
	Issue        string              `db:"issue"`
	BetType      BetType             `db:"bet_type"`
	BetContent   string              `db:"bet_content"`
	Amount       decimal.Decimal     `db:"amount"`
	DisplayFee   decimal.Decimal     `db:"display_fee"`
	Fee          decimal.NullDecimal `db:"fee"`
	Status       BetStatus           `db:"status"`
	ResultAmount decimal.NullDecimal `db:"result_amount"`
	PointsBefore int64               `db:"points_before"`
	PointsAfter  *int64              `db:"points_after"`
	SettledAt    *time.Time          `db:"settled_at"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

// IsPending returns true if the bet has not been settled or cancelled
func (b *Bet) IsPending() bool {
	return b.Status == BetStatusPending
}

// BetOutcome is the result of applying the payout table to a single bet
type BetOutcome struct {
	Fee          decimal.Decimal
	ResultAmount decimal.Decimal
	Status       BetStatus
}

// BetSettlement describes a bet that was settled in one transaction
type BetSettlement struct {
	BetID         int64
	UserID        int64
	Issue         string
	BetType       BetType
	Outcome       BetOutcome
	BalanceBefore int64
	BalanceAfter  int64
}
