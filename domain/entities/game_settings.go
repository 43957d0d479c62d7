package entities

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Keys of the system_settings table read by the core
const (
	SettingDrawInterval      = "draw_interval"
	SettingCloseBeforeDraw   = "close_before_draw"
	SettingMultipleFeeRate   = "multiple_fee_rate"
	SettingMultipleFeeBase   = "multiple_fee_base"
	SettingComboFeeRate      = "combo_fee_rate"
	SettingComboFeeBase      = "combo_fee_base"
	SettingMultipleLossRate  = "multiple_loss_rate"
	SettingAutoSettleEnabled = "auto_settle_enabled"
	SettingGameEnabled       = "game_enabled"
	SettingDefaultIssue      = "default_issue"
)

var knownSettings = map[string]bool{
	SettingDrawInterval:      true,
	SettingCloseBeforeDraw:   true,
	SettingMultipleFeeRate:   true,
	SettingMultipleFeeBase:   true,
	SettingComboFeeRate:      true,
	SettingComboFeeBase:      true,
	SettingMultipleLossRate:  true,
	SettingAutoSettleEnabled: true,
	SettingGameEnabled:       true,
	SettingDefaultIssue:      true,
}

// IsKnownSetting reports whether key is read by the core
func IsKnownSetting(key string) bool {
	return knownSettings[key]
}

// SettlementRates are the configurable inputs of the payout table
type SettlementRates struct {
	MultipleFeeRate  decimal.Decimal
	MultipleFeeBase  decimal.Decimal
	ComboFeeRate     decimal.Decimal
	ComboFeeBase     decimal.Decimal
	MultipleLossRate decimal.Decimal
}

// DefaultSettlementRates returns the rates seeded by the initial migration
func DefaultSettlementRates() SettlementRates {
	return SettlementRates{
		MultipleFeeRate:  decimal.NewFromInt(3),
		MultipleFeeBase:  decimal.NewFromInt(100),
		ComboFeeRate:     decimal.NewFromInt(5),
		ComboFeeBase:     decimal.NewFromInt(100),
		MultipleLossRate: decimal.RequireFromString("0.8"),
	}
}

// GameSettings is an immutable snapshot of the game configuration
type GameSettings struct {
	DrawIntervalSeconds    int
	CloseBeforeDrawSeconds int
	GameEnabled            bool
	AutoSettleEnabled      bool
	DefaultIssue           string
	Rates                  SettlementRates
	LoadedAt               time.Time
}

// DefaultGameSettings returns the settings used before the store has been read
func DefaultGameSettings() *GameSettings {
	return &GameSettings{
		DrawIntervalSeconds:    210,
		CloseBeforeDrawSeconds: 30,
		GameEnabled:            true,
		AutoSettleEnabled:      true,
		DefaultIssue:           "1",
		Rates:                  DefaultSettlementRates(),
	}
}

// DrawInterval returns the draw cadence as a duration
func (s *GameSettings) DrawInterval() time.Duration {
	return time.Duration(s.DrawIntervalSeconds) * time.Second
}

// CloseBeforeDraw returns how long before the draw betting closes
func (s *GameSettings) CloseBeforeDraw() time.Duration {
	return time.Duration(s.CloseBeforeDrawSeconds) * time.Second
}

// WithValues returns a copy of s with the given key/value pairs applied.
// Unknown keys are ignored. Invalid values keep the previous value and are
// reported in the joined error.
func (s *GameSettings) WithValues(values map[string]string) (*GameSettings, error) {
	next := *s
	var errs []error

	for key, raw := range values {
		value := strings.TrimSpace(raw)
		var err error
		switch key {
		case SettingDrawInterval:
			err = setPositiveInt(&next.DrawIntervalSeconds, value)
		case SettingCloseBeforeDraw:
			err = setNonNegativeInt(&next.CloseBeforeDrawSeconds, value)
		case SettingMultipleFeeRate:
			err = setDecimal(&next.Rates.MultipleFeeRate, value)
		case SettingMultipleFeeBase:
			err = setDecimal(&next.Rates.MultipleFeeBase, value)
		case SettingComboFeeRate:
			err = setDecimal(&next.Rates.ComboFeeRate, value)
		case SettingComboFeeBase:
			err = setDecimal(&next.Rates.ComboFeeBase, value)
		case SettingMultipleLossRate:
			err = setDecimal(&next.Rates.MultipleLossRate, value)
		case SettingAutoSettleEnabled:
			err = setBool(&next.AutoSettleEnabled, value)
		case SettingGameEnabled:
			err = setBool(&next.GameEnabled, value)
		case SettingDefaultIssue:
			if value != "" {
				next.DefaultIssue = value
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("setting %s=%q: %w", key, raw, err))
		}
	}

	if next.CloseBeforeDrawSeconds >= next.DrawIntervalSeconds {
		errs = append(errs, fmt.Errorf("setting %s=%d must be less than %s=%d",
			SettingCloseBeforeDraw, next.CloseBeforeDrawSeconds, SettingDrawInterval, next.DrawIntervalSeconds))
		next.CloseBeforeDrawSeconds = s.CloseBeforeDrawSeconds
		if next.CloseBeforeDrawSeconds >= next.DrawIntervalSeconds {
			next.CloseBeforeDrawSeconds = 0
		}
	}

	return &next, errors.Join(errs...)
}

func setPositiveInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	*dst = n
	return nil
}

func setNonNegativeInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	*dst = n
	return nil
}

func setDecimal(dst *decimal.Decimal, value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return err
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	*dst = d
	return nil
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
