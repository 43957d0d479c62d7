package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"pc28/domain/entities"
	"pc28/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DefaultSettingsRefreshInterval is how often the settings store is re-read
const DefaultSettingsRefreshInterval = 5 * time.Minute

// ErrInvalidSetting is returned by Update for unknown keys and rejected values
var ErrInvalidSetting = errors.New("invalid setting")

// SettingsCache holds the current game settings snapshot. Readers never block;
// a refresh swaps in a new immutable snapshot.
type SettingsCache struct {
	repo     interfaces.SettingsRepository
	interval time.Duration
	current  atomic.Pointer[entities.GameSettings]
	now      func() time.Time
}

// NewSettingsCache creates a cache primed with the built-in defaults
func NewSettingsCache(repo interfaces.SettingsRepository, interval time.Duration) *SettingsCache {
	if interval <= 0 {
		interval = DefaultSettingsRefreshInterval
	}
	c := &SettingsCache{
		repo:     repo,
		interval: interval,
		now:      time.Now,
	}
	c.current.Store(entities.DefaultGameSettings())
	return c
}

// Current returns the latest snapshot
func (c *SettingsCache) Current() *entities.GameSettings {
	return c.current.Load()
}

// Refresh reloads the settings store. Invalid values keep their previous
// setting and are returned as an error after the valid ones are applied.
func (c *SettingsCache) Refresh(ctx context.Context) error {
	values, err := c.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	next, applyErr := c.Current().WithValues(values)
	next.LoadedAt = c.now()
	c.current.Store(next)

	log.WithFields(log.Fields{
		"drawInterval":    next.DrawIntervalSeconds,
		"closeBeforeDraw": next.CloseBeforeDrawSeconds,
		"autoSettle":      next.AutoSettleEnabled,
		"gameEnabled":     next.GameEnabled,
	}).Debug("Game settings refreshed")

	if applyErr != nil {
		return fmt.Errorf("failed to apply some settings: %w", applyErr)
	}
	return nil
}

// Update validates one setting against the current snapshot, stores it and
// swaps in the resulting snapshot. Nothing is written when validation fails.
func (c *SettingsCache) Update(ctx context.Context, key, value string) (*entities.GameSettings, error) {
	if !entities.IsKnownSetting(key) {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	value = strings.TrimSpace(value)

	next, err := c.Current().WithValues(map[string]string{key: value})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}

	if err := c.repo.Set(ctx, key, value); err != nil {
		return nil, fmt.Errorf("failed to store setting %s: %w", key, err)
	}

	next.LoadedAt = c.now()
	c.current.Store(next)

	log.WithFields(log.Fields{
		"key":   key,
		"value": value,
	}).Info("Game setting updated")
	return next, nil
}

// Start refreshes on a fixed interval until ctx is cancelled or the returned
// stop function is called
func (c *SettingsCache) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Settings refresher started")
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Settings refresher shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settings refresher shutting down (stop requested)...")
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					log.WithError(err).Warn("Settings refresh failed")
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}
