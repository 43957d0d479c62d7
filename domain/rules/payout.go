package rules

import (
	"errors"
	"fmt"

	"pc28/domain/entities"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidBetContent is returned when a label does not fit the bet type
	ErrInvalidBetContent = errors.New("invalid bet content")
	// ErrUnknownBetType is returned for bet types outside the payout table
	ErrUnknownBetType = errors.New("unknown bet type")
)

var (
	half            = decimal.RequireFromString("0.5")
	simpleWinFactor = decimal.RequireFromString("1.8")
	comboLossFactor = decimal.NewFromInt(5)
)

// Round2 rounds half up on the value scaled to cents: floor(v*100 + 0.5) / 100
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Shift(2).Add(half).Floor().Shift(-2)
}

// Fee computes round2(amount / base * rate). A zero base yields no fee.
func Fee(amount, rate, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return Round2(amount.Div(base).Mul(rate))
}

// CalculateMultipleBetResult applies the multiplier table.
// A return draw wins M - fee; otherwise the bet loses lossRate*M + fee.
func CalculateMultipleBetResult(multiplier decimal.Decimal, isReturn bool, rates entities.SettlementRates) entities.BetOutcome {
	fee := Fee(multiplier, rates.MultipleFeeRate, rates.MultipleFeeBase)

	if isReturn {
		return entities.BetOutcome{
			Fee:          fee,
			ResultAmount: Round2(multiplier.Sub(fee)),
			Status:       entities.BetStatusWin,
		}
	}
	return entities.BetOutcome{
		Fee:          fee,
		ResultAmount: Round2(multiplier.Mul(rates.MultipleLossRate).Add(fee).Neg()),
		Status:       entities.BetStatusLoss,
	}
}

// CalculateSimpleBetResult applies the big/small/odd/even table, which carries no fee
func CalculateSimpleBetResult(amount decimal.Decimal, content string, c Classification) (entities.BetOutcome, error) {
	label, ok := NormalizeLabel(content)
	if !ok || label.Family() != entities.BetFamilySimple {
		return entities.BetOutcome{}, fmt.Errorf("%w: %q is not a size or parity label", ErrInvalidBetContent, content)
	}

	switch {
	case !Matches(label, c):
		return entities.BetOutcome{Fee: decimal.Zero, ResultAmount: amount.Neg(), Status: entities.BetStatusLoss}, nil
	case c.IsReturn:
		return entities.BetOutcome{Fee: decimal.Zero, ResultAmount: decimal.Zero, Status: entities.BetStatusWin}, nil
	default:
		return entities.BetOutcome{Fee: decimal.Zero, ResultAmount: Round2(amount.Mul(simpleWinFactor)), Status: entities.BetStatusWin}, nil
	}
}

// CalculateComboBetResult applies the combo table. Matching the draw's combo is
// the losing outcome for the bettor; a mismatch wins amount - fee.
func CalculateComboBetResult(amount decimal.Decimal, content string, c Classification, rates entities.SettlementRates) (entities.BetOutcome, error) {
	label, ok := NormalizeLabel(content)
	if !ok || label.Family() != entities.BetFamilyCombo {
		return entities.BetOutcome{}, fmt.Errorf("%w: %q is not a combo label", ErrInvalidBetContent, content)
	}

	fee := Fee(amount, rates.ComboFeeRate, rates.ComboFeeBase)

	switch {
	case !Matches(label, c):
		return entities.BetOutcome{Fee: fee, ResultAmount: Round2(amount.Sub(fee)), Status: entities.BetStatusWin}, nil
	case c.IsReturn:
		return entities.BetOutcome{Fee: fee, ResultAmount: Round2(fee.Neg()), Status: entities.BetStatusLoss}, nil
	default:
		return entities.BetOutcome{Fee: fee, ResultAmount: Round2(amount.Mul(comboLossFactor).Add(fee).Neg()), Status: entities.BetStatusLoss}, nil
	}
}

// SettleBet dispatches a bet to the payout function of its family
func SettleBet(bet *entities.Bet, draw *entities.DrawResult, rates entities.SettlementRates) (entities.BetOutcome, error) {
	c, err := Classify(draw.Digits)
	if err != nil {
		return entities.BetOutcome{}, err
	}

	switch bet.BetType.Family() {
	case entities.BetFamilyMultiple:
		return CalculateMultipleBetResult(bet.Amount, c.IsReturn, rates), nil
	case entities.BetFamilySimple:
		return CalculateSimpleBetResult(bet.Amount, bet.BetContent, c)
	case entities.BetFamilyCombo:
		return CalculateComboBetResult(bet.Amount, bet.BetContent, c, rates)
	default:
		return entities.BetOutcome{}, fmt.Errorf("%w: %q", ErrUnknownBetType, bet.BetType)
	}
}

// DisplayFee is the advisory fee shown when a bet is placed
func DisplayFee(betType entities.BetType, amount decimal.Decimal, rates entities.SettlementRates) (decimal.Decimal, error) {
	switch betType.Family() {
	case entities.BetFamilyMultiple:
		return Fee(amount, rates.MultipleFeeRate, rates.MultipleFeeBase), nil
	case entities.BetFamilySimple:
		return decimal.Zero, nil
	case entities.BetFamilyCombo:
		return Fee(amount, rates.ComboFeeRate, rates.ComboFeeBase), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownBetType, betType)
	}
}

// WorstCaseExposure is the largest loss an unsettled bet can still produce
func WorstCaseExposure(betType entities.BetType, amount decimal.Decimal, rates entities.SettlementRates) (decimal.Decimal, error) {
	fee, err := DisplayFee(betType, amount, rates)
	if err != nil {
		return decimal.Zero, err
	}

	switch betType.Family() {
	case entities.BetFamilyMultiple:
		return amount.Mul(rates.MultipleLossRate).Add(fee), nil
	case entities.BetFamilyCombo:
		return amount.Mul(comboLossFactor).Add(fee), nil
	default:
		return amount, nil
	}
}
