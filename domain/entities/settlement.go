package entities

import "github.com/shopspring/decimal"

// SettlementSummary reports what one settlement run did for an issue
type SettlementSummary struct {
	Issue          string          `json:"issue"`
	AlreadySettled bool            `json:"alreadySettled"`
	MarkedSettled  bool            `json:"markedSettled"`
	Total          int             `json:"total"`
	Settled        int             `json:"settled"`
	Skipped        int             `json:"skipped"`
	Failed         int             `json:"failed"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	NetDelta       decimal.Decimal `json:"netDelta"`
}
