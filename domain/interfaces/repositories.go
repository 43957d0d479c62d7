package interfaces

import (
	"context"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"
)

// DrawResultRepository defines the interface for draw ledger access
type DrawResultRepository interface {
	// Insert appends a draw to the ledger. It returns false without error
	// when the issue already exists.
	Insert(ctx context.Context, draw *entities.DrawResult) (bool, error)

	// GetByIssue retrieves a draw by issue, nil when absent
	GetByIssue(ctx context.Context, issue string) (*entities.DrawResult, error)

	// GetLatest returns the draw with the newest issue, nil when the ledger is empty
	GetLatest(ctx context.Context) (*entities.DrawResult, error)

	// GetRecent returns up to limit draws, newest first
	GetRecent(ctx context.Context, limit int) ([]*entities.DrawResult, error)

	// GetUnsettled returns up to limit unsettled draws, oldest first
	GetUnsettled(ctx context.Context, limit int) ([]*entities.DrawResult, error)

	// MarkSettled flips settled from false to true. It returns false when the
	// draw was already settled or does not exist.
	MarkSettled(ctx context.Context, issue string, settledAt time.Time) (bool, error)
}

// DrawReader is the read-only view of the ledger used outside transactions
type DrawReader interface {
	GetByIssue(ctx context.Context, issue string) (*entities.DrawResult, error)
	GetLatest(ctx context.Context) (*entities.DrawResult, error)
	GetRecent(ctx context.Context, limit int) ([]*entities.DrawResult, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// GetByIDForUpdate retrieves a bet with a row lock, nil when absent
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error)

	// GetPendingByIssue returns every pending bet placed on an issue, oldest first
	GetPendingByIssue(ctx context.Context, issue string) ([]*entities.Bet, error)

	// Settle persists the settlement columns of a bet that is still pending
	Settle(ctx context.Context, bet *entities.Bet) error
}

// UserRepository defines the interface for balance access
type UserRepository interface {
	// GetByIDForUpdate retrieves a user with a row lock, nil when absent
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error)

	// UpdatePoints sets a user's balance
	UpdatePoints(ctx context.Context, id int64, points int64) error
}

// PointRecordRepository defines the interface for the audit ledger
type PointRecordRepository interface {
	// Record creates a new audit entry
	Record(ctx context.Context, record *entities.PointRecord) error

	// GetByRelated returns entries for one related entity, oldest first
	GetByRelated(ctx context.Context, relatedType entities.RelatedType, relatedID int64) ([]*entities.PointRecord, error)
}

// SettingsRepository defines the interface for the key/value settings store
type SettingsRepository interface {
	// GetAll returns every stored setting
	GetAll(ctx context.Context) (map[string]string, error)

	// Set creates or replaces a setting
	Set(ctx context.Context, key, value string) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
