package interfaces

import (
	"context"
	"errors"
	"time"

	"pc28/domain/entities"
)

// ErrLockHeld is returned by a Locker when another owner holds the key
var ErrLockHeld = errors.New("lock is held by another owner")

// SourceAdapter wraps one external draw provider
type SourceAdapter interface {
	// Descriptor returns the adapter's static name, priority and enabled flag
	Descriptor() entities.SourceDescriptor

	// FetchLatest returns recent draws, newest first. The adapter enforces
	// its own timeout.
	FetchLatest(ctx context.Context) ([]entities.DrawItem, error)
}

// SettingsProvider exposes the current game settings snapshot
type SettingsProvider interface {
	Current() *entities.GameSettings
}

// Locker provides mutual exclusion keyed by name
type Locker interface {
	// Acquire obtains the lock or returns ErrLockHeld. The returned release
	// function is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BetSettlementService settles one bet inside the caller's transaction
type BetSettlementService interface {
	SettleBet(ctx context.Context, draw *entities.DrawResult, betID int64, rates entities.SettlementRates, settledAt time.Time) (*entities.BetSettlement, error)
}

// MetricsRecorder receives operational measurements from the core
type MetricsRecorder interface {
	RecordSourceAttempt(source, outcome string, elapsed time.Duration)
	RecordSyncRun(outcome string, elapsed time.Duration)
	RecordDrawIngested(source string)
	RecordBetSettled(betType, status string)
	RecordSettlementFailure(reason string)
}

// NoopMetricsRecorder discards every measurement
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) RecordSourceAttempt(string, string, time.Duration) {}
func (NoopMetricsRecorder) RecordSyncRun(string, time.Duration)               {}
func (NoopMetricsRecorder) RecordDrawIngested(string)                         {}
func (NoopMetricsRecorder) RecordBetSettled(string, string)                   {}
func (NoopMetricsRecorder) RecordSettlementFailure(string)                    {}
