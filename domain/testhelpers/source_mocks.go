package testhelpers

import (
	"context"
	"sync"
	"time"

	"pc28/domain/entities"
	"pc28/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockSourceAdapter is a mock draw source with a fixed descriptor
type MockSourceAdapter struct {
	mock.Mock
	Desc entities.SourceDescriptor
}

// NewMockSourceAdapter creates an enabled mock adapter
func NewMockSourceAdapter(name string, priority int) *MockSourceAdapter {
	return &MockSourceAdapter{
		Desc: entities.SourceDescriptor{Name: name, Priority: priority, Enabled: true},
	}
}

func (m *MockSourceAdapter) Descriptor() entities.SourceDescriptor {
	return m.Desc
}

func (m *MockSourceAdapter) FetchLatest(ctx context.Context) ([]entities.DrawItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.DrawItem), args.Error(1)
}

// StaticSettingsProvider returns a fixed settings snapshot
type StaticSettingsProvider struct {
	mu       sync.RWMutex
	settings *entities.GameSettings
}

// NewStaticSettingsProvider wraps settings, defaulting to DefaultGameSettings
func NewStaticSettingsProvider(settings *entities.GameSettings) *StaticSettingsProvider {
	if settings == nil {
		settings = entities.DefaultGameSettings()
	}
	return &StaticSettingsProvider{settings: settings}
}

func (p *StaticSettingsProvider) Current() *entities.GameSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// Set replaces the snapshot
func (p *StaticSettingsProvider) Set(settings *entities.GameSettings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = settings
}

// MockLocker is a mock implementation of Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

var _ interfaces.SourceAdapter = (*MockSourceAdapter)(nil)
var _ interfaces.SettingsProvider = (*StaticSettingsProvider)(nil)
var _ interfaces.Locker = (*MockLocker)(nil)
