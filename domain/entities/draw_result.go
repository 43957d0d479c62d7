package entities

import "time"

// ReturnReason explains why a draw counts as a "return" draw
type ReturnReason string

const (
	ReturnReasonTriple   ReturnReason = "triple"
	ReturnReasonPair     ReturnReason = "pair"
	ReturnReasonStraight ReturnReason = "straight"
	ReturnReasonSum13    ReturnReason = "sum13"
	ReturnReasonSum14    ReturnReason = "sum14"
	ReturnReasonNone     ReturnReason = "none"
)

// SizeCategory is big or small, derived from the digit sum
type SizeCategory string

const (
	SizeBig   SizeCategory = "big"
	SizeSmall SizeCategory = "small"
)

// ParityCategory is odd or even, derived from the digit sum
type ParityCategory string

const (
	ParityOdd  ParityCategory = "odd"
	ParityEven ParityCategory = "even"
)

// ComboCategory is the cartesian product of size and parity
type ComboCategory string

const (
	ComboBigOdd    ComboCategory = "big_odd"
	ComboBigEven   ComboCategory = "big_even"
	ComboSmallOdd  ComboCategory = "small_odd"
	ComboSmallEven ComboCategory = "small_even"
)

// DrawResult is one row of the draw ledger, keyed by issue
type DrawResult struct {
	ID           int64          `db:"id"`
	Issue        string         `db:"issue"`
	Digits       [3]int         `db:"digits"`
	Sum          int            `db:"sum"`
	IsReturn     bool           `db:"is_return"`
	ReturnReason ReturnReason   `db:"return_reason"`
	Size         SizeCategory   `db:"size_category"`
	Parity       ParityCategory `db:"parity_category"`
	Combo        ComboCategory  `db:"combo_category"`
	DrawTime     time.Time      `db:"draw_time"`
	Source       string         `db:"source"`
	Settled      bool           `db:"settled"`
	SettledAt    *time.Time     `db:"settled_at"`
	CreatedAt    time.Time      `db:"created_at"`
}

// IsSettled returns true once settlement has completed for the issue
func (d *DrawResult) IsSettled() bool {
	return d.Settled
}

// DrawItem is the canonical shape every source adapter translates provider payloads into
type DrawItem struct {
	Issue    string    `json:"issue"`
	Digits   [3]int    `json:"digits"`
	Sum      int       `json:"sum"`
	DrawTime time.Time `json:"drawTime"`
}
