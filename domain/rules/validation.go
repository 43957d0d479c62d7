package rules

import (
	"fmt"

	"pc28/domain/entities"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// betRequest is the shape checked before a bet is accepted
type betRequest struct {
	BetType string `validate:"required,bet_type"`
	Content string `validate:"required,max=32"`
	Amount  string `validate:"required,positive_decimal"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bet_type", func(fl validator.FieldLevel) bool {
		return entities.BetType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	return v
}

// ValidateBetContent checks that a bet's type, content and amount are coherent.
// A multiple bet carries its multiplier as numeric text; every other type
// carries a category label from its own family.
func ValidateBetContent(betType entities.BetType, content string, amount decimal.Decimal) error {
	req := betRequest{
		BetType: string(betType),
		Content: content,
		Amount:  amount.String(),
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBetContent, err)
	}

	if betType.Family() == entities.BetFamilyMultiple {
		multiplier, err := decimal.NewFromString(content)
		if err != nil || !multiplier.IsPositive() {
			return fmt.Errorf("%w: multiplier %q must be a positive number", ErrInvalidBetContent, content)
		}
		return nil
	}

	label, ok := NormalizeLabel(content)
	if !ok {
		return fmt.Errorf("%w: unknown label %q", ErrInvalidBetContent, content)
	}
	if label.Family() != betType.Family() {
		return fmt.Errorf("%w: label %q does not belong to bet type %s", ErrInvalidBetContent, content, betType)
	}
	return nil
}
