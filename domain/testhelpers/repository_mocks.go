package testhelpers

import (
	"context"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockDrawResultRepository is a mock implementation of DrawResultRepository
type MockDrawResultRepository struct {
	mock.Mock
}

func (m *MockDrawResultRepository) Insert(ctx context.Context, draw *entities.DrawResult) (bool, error) {
	args := m.Called(ctx, draw)
	return args.Bool(0), args.Error(1)
}

func (m *MockDrawResultRepository) GetByIssue(ctx context.Context, issue string) (*entities.DrawResult, error) {
	args := m.Called(ctx, issue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) GetLatest(ctx context.Context) (*entities.DrawResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) GetRecent(ctx context.Context, limit int) ([]*entities.DrawResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) GetUnsettled(ctx context.Context, limit int) ([]*entities.DrawResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) MarkSettled(ctx context.Context, issue string, settledAt time.Time) (bool, error) {
	args := m.Called(ctx, issue, settledAt)
	return args.Bool(0), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetPendingByIssue(ctx context.Context, issue string) ([]*entities.Bet, error) {
	args := m.Called(ctx, issue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) Settle(ctx context.Context, bet *entities.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePoints(ctx context.Context, id int64, points int64) error {
	args := m.Called(ctx, id, points)
	return args.Error(0)
}

// MockPointRecordRepository is a mock implementation of PointRecordRepository
type MockPointRecordRepository struct {
	mock.Mock
}

func (m *MockPointRecordRepository) Record(ctx context.Context, record *entities.PointRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPointRecordRepository) GetByRelated(ctx context.Context, relatedType entities.RelatedType, relatedID int64) ([]*entities.PointRecord, error) {
	args := m.Called(ctx, relatedType, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PointRecord), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
