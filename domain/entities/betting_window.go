package entities

import "time"

// WindowState is the betting state of the current issue
type WindowState string

const (
	WindowStateOpen   WindowState = "open"
	WindowStateClosed WindowState = "closed"
)

// WindowStatus is the derived view of the betting window at one instant
type WindowStatus struct {
	State              WindowState `json:"state"`
	CanBet             bool        `json:"canBet"`
	Closing            bool        `json:"closing"`
	WaitingForDraw     bool        `json:"waitingForDraw"`
	LastIssue          string      `json:"lastIssue,omitempty"`
	LastDrawTime       *time.Time  `json:"lastDrawTime,omitempty"`
	CurrentIssue       string      `json:"currentIssue"`
	NextIssue          string      `json:"nextIssue"`
	CurrentDrawTime    time.Time   `json:"currentDrawTime"`
	CurrentCloseTime   time.Time   `json:"currentCloseTime"`
	ServerTime         time.Time   `json:"serverTime"`
	SecondsToClose     int         `json:"secondsToClose"`
	SecondsToDraw      int         `json:"secondsToDraw"`
	Countdown          int         `json:"countdown"`
	CountdownText      string      `json:"countdownText"`
	ProgressPercentage float64     `json:"progressPercentage"`
}

// BetGate answers whether a bet may be accepted right now
type BetGate struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Issue   string `json:"issue"`
}
