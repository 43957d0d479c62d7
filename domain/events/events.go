package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeDrawIngested  EventType = "draw_ingested"
	EventTypeIssueSettled  EventType = "issue_settled"
	EventTypeBetSettled    EventType = "bet_settled"
	EventTypePointsChanged EventType = "points_changed"
	EventTypeSourceFailed  EventType = "source_failed"
	EventTypeSourceRotated EventType = "source_rotated"
	EventTypeBettingClosed EventType = "betting_closed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// DrawIngestedEvent is emitted when a new issue is appended to the draw ledger
type DrawIngestedEvent struct {
	Issue        string    `json:"issue"`
	Digits       [3]int    `json:"digits"`
	Sum          int       `json:"sum"`
	IsReturn     bool      `json:"isReturn"`
	ReturnReason string    `json:"returnReason"`
	Combo        string    `json:"combo"`
	DrawTime     time.Time `json:"drawTime"`
	Source       string    `json:"source"`
}

func (e DrawIngestedEvent) Type() EventType {
	return EventTypeDrawIngested
}

// IssueSettledEvent is emitted once per issue when it is marked settled
type IssueSettledEvent struct {
	Issue    string          `json:"issue"`
	BetCount int             `json:"betCount"`
	Wins     int             `json:"wins"`
	Losses   int             `json:"losses"`
	NetDelta decimal.Decimal `json:"netDelta"`
}

func (e IssueSettledEvent) Type() EventType {
	return EventTypeIssueSettled
}

// BetSettledEvent is emitted for every bet that leaves pending via settlement
type BetSettledEvent struct {
	BetID        int64           `json:"betId"`
	UserID       int64           `json:"userId"`
	Issue        string          `json:"issue"`
	BetType      string          `json:"betType"`
	Status       string          `json:"status"`
	Fee          decimal.Decimal `json:"fee"`
	ResultAmount decimal.Decimal `json:"resultAmount"`
}

func (e BetSettledEvent) Type() EventType {
	return EventTypeBetSettled
}

// PointsChangedEvent represents a balance change that occurred
type PointsChangedEvent struct {
	UserID       int64  `json:"userId"`
	OldBalance   int64  `json:"oldBalance"`
	NewBalance   int64  `json:"newBalance"`
	ChangeAmount int64  `json:"changeAmount"`
	RecordType   string `json:"recordType"`
}

func (e PointsChangedEvent) Type() EventType {
	return EventTypePointsChanged
}

// SourceFailedEvent is emitted when a draw source adapter call fails
type SourceFailedEvent struct {
	Source    string `json:"source"`
	Cycle     int    `json:"cycle"`
	Error     string `json:"error"`
	ElapsedMs int64  `json:"elapsedMs"`
}

func (e SourceFailedEvent) Type() EventType {
	return EventTypeSourceFailed
}

// SourceRotatedEvent is emitted when stale data moves acquisition to the next adapter
type SourceRotatedEvent struct {
	From        string `json:"from"`
	To          string `json:"to"`
	StaleIssue  string `json:"staleIssue"`
	StaleStreak int    `json:"staleStreak"`
}

func (e SourceRotatedEvent) Type() EventType {
	return EventTypeSourceRotated
}

// BettingClosedEvent is emitted on the open to closed transition of an issue
type BettingClosedEvent struct {
	Issue    string    `json:"issue"`
	DrawTime time.Time `json:"drawTime"`
}

func (e BettingClosedEvent) Type() EventType {
	return EventTypeBettingClosed
}
