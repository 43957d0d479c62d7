package web

import (
	"encoding/json"
	"net/http"
	"time"

	"pc28/domain/entities"
	"pc28/domain/rules"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondWithData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func respondWithSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

// drawView is the public shape of a ledger row
type drawView struct {
	Issue        string    `json:"issue"`
	Numbers      string    `json:"numbers"`
	Digits       [3]int    `json:"digits"`
	Sum          int       `json:"sum"`
	Size         string    `json:"size"`
	Parity       string    `json:"parity"`
	Combo        string    `json:"combo,omitempty"`
	IsReturn     bool      `json:"isReturn"`
	ReturnReason string    `json:"returnReason,omitempty"`
	DrawTime     time.Time `json:"drawTime"`
	Source       string    `json:"source"`
	Settled      bool      `json:"settled"`
}

func newDrawView(d *entities.DrawResult) drawView {
	return drawView{
		Issue:        d.Issue,
		Numbers:      rules.FormatDrawNumbers(d.Digits),
		Digits:       d.Digits,
		Sum:          d.Sum,
		Size:         string(d.Size),
		Parity:       string(d.Parity),
		Combo:        string(d.Combo),
		IsReturn:     d.IsReturn,
		ReturnReason: string(d.ReturnReason),
		DrawTime:     d.DrawTime,
		Source:       d.Source,
		Settled:      d.Settled,
	}
}

// canBetView is the answer of the bet gate
type canBetView struct {
	entities.BetGate
	BetIssue string `json:"betIssue,omitempty"`
}

// sourceToggleRequest is the body of PUT /api/admin/sources/{name}
type sourceToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// settingUpdateRequest is the body of PUT /api/admin/settings/{key}
type settingUpdateRequest struct {
	Value *string `json:"value" validate:"required"`
}

// settingsView is the admin shape of the game settings snapshot
type settingsView struct {
	DrawIntervalSeconds    int             `json:"drawIntervalSeconds"`
	CloseBeforeDrawSeconds int             `json:"closeBeforeDrawSeconds"`
	GameEnabled            bool            `json:"gameEnabled"`
	AutoSettleEnabled      bool            `json:"autoSettleEnabled"`
	DefaultIssue           string          `json:"defaultIssue"`
	MultipleFeeRate        decimal.Decimal `json:"multipleFeeRate"`
	MultipleFeeBase        decimal.Decimal `json:"multipleFeeBase"`
	ComboFeeRate           decimal.Decimal `json:"comboFeeRate"`
	ComboFeeBase           decimal.Decimal `json:"comboFeeBase"`
	MultipleLossRate       decimal.Decimal `json:"multipleLossRate"`
	LoadedAt               time.Time       `json:"loadedAt"`
}

func newSettingsView(s *entities.GameSettings) settingsView {
	return settingsView{
		DrawIntervalSeconds:    s.DrawIntervalSeconds,
		CloseBeforeDrawSeconds: s.CloseBeforeDrawSeconds,
		GameEnabled:            s.GameEnabled,
		AutoSettleEnabled:      s.AutoSettleEnabled,
		DefaultIssue:           s.DefaultIssue,
		MultipleFeeRate:        s.Rates.MultipleFeeRate,
		MultipleFeeBase:        s.Rates.MultipleFeeBase,
		ComboFeeRate:           s.Rates.ComboFeeRate,
		ComboFeeBase:           s.Rates.ComboFeeBase,
		MultipleLossRate:       s.Rates.MultipleLossRate,
		LoadedAt:               s.LoadedAt,
	}
}

// pointRecordView is one audit ledger entry
type pointRecordView struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Change        int64           `json:"change"`
	BalanceBefore int64           `json:"balanceBefore"`
	BalanceAfter  int64           `json:"balanceAfter"`
	Remark        string          `json:"remark"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newPointRecordView(r *entities.PointRecord) pointRecordView {
	return pointRecordView{
		ID:            r.ID,
		UserID:        r.UserID,
		Type:          string(r.Type),
		Amount:        r.Amount,
		Change:        r.ChangeAmount(),
		BalanceBefore: r.BalanceBefore,
		BalanceAfter:  r.BalanceAfter,
		Remark:        r.Remark,
		Metadata:      r.Metadata,
		CreatedAt:     r.CreatedAt,
	}
}
