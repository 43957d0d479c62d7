// Package rules holds the pure draw classification and payout rules.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"pc28/domain/entities"
)

// BigThreshold is the smallest sum classified as big
const BigThreshold = 14

var (
	// ErrInvalidDigits is returned when a draw digit is outside [0,9]
	ErrInvalidDigits = errors.New("draw digits must be in [0,9]")
	// ErrInvalidIssue is returned for an empty or non-numeric issue
	ErrInvalidIssue = errors.New("invalid issue")
)

// Classification is everything derived from a draw's three digits
type Classification struct {
	Sum          int
	IsReturn     bool
	ReturnReason entities.ReturnReason
	Size         entities.SizeCategory
	Parity       entities.ParityCategory
	Combo        entities.ComboCategory
}

// Classify derives the sum and all categories from three digits
func Classify(digits [3]int) (Classification, error) {
	for _, d := range digits {
		if d < 0 || d > 9 {
			return Classification{}, fmt.Errorf("%w: got %v", ErrInvalidDigits, digits)
		}
	}

	sum := digits[0] + digits[1] + digits[2]
	isReturn, reason := IsReturn(digits)
	return Classification{
		Sum:          sum,
		IsReturn:     isReturn,
		ReturnReason: reason,
		Size:         SizeOf(sum),
		Parity:       ParityOf(sum),
		Combo:        ComboOf(sum),
	}, nil
}

// IsReturn reports whether the draw is a return draw and why.
// Precedence: triple, pair, straight, sum13, sum14.
func IsReturn(digits [3]int) (bool, entities.ReturnReason) {
	a, b, c := digits[0], digits[1], digits[2]

	if a == b && b == c {
		return true, entities.ReturnReasonTriple
	}
	if a == b || b == c || a == c {
		return true, entities.ReturnReasonPair
	}
	if isStraight(digits) {
		return true, entities.ReturnReasonStraight
	}

	switch a + b + c {
	case 13:
		return true, entities.ReturnReasonSum13
	case 14:
		return true, entities.ReturnReasonSum14
	}
	return false, entities.ReturnReasonNone
}

// isStraight accepts consecutive digits and the wrap-around sets {0,1,9} and {0,8,9}
func isStraight(digits [3]int) bool {
	sorted := []int{digits[0], digits[1], digits[2]}
	sort.Ints(sorted)

	if sorted[1] == sorted[0]+1 && sorted[2] == sorted[1]+1 {
		return true
	}
	return sorted[0] == 0 && sorted[2] == 9 && (sorted[1] == 1 || sorted[1] == 8)
}

// SizeOf classifies a sum as big or small
func SizeOf(sum int) entities.SizeCategory {
	if sum >= BigThreshold {
		return entities.SizeBig
	}
	return entities.SizeSmall
}

// ParityOf classifies a sum as odd or even
func ParityOf(sum int) entities.ParityCategory {
	if sum%2 != 0 {
		return entities.ParityOdd
	}
	return entities.ParityEven
}

// ComboOf combines size and parity
func ComboOf(sum int) entities.ComboCategory {
	return entities.ComboCategory(string(SizeOf(sum)) + "_" + string(ParityOf(sum)))
}

// NewDrawResult builds a ledger row from an adapter item, recomputing the sum
// and every category from the digits.
func NewDrawResult(item entities.DrawItem, source string) (*entities.DrawResult, error) {
	issue := strings.TrimSpace(item.Issue)
	if issue == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidIssue)
	}

	c, err := Classify(item.Digits)
	if err != nil {
		return nil, err
	}

	return &entities.DrawResult{
		Issue:        issue,
		Digits:       item.Digits,
		Sum:          c.Sum,
		IsReturn:     c.IsReturn,
		ReturnReason: c.ReturnReason,
		Size:         c.Size,
		Parity:       c.Parity,
		Combo:        c.Combo,
		DrawTime:     item.DrawTime,
		Source:       source,
	}, nil
}
