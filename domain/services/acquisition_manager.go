package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"
	"pc28/domain/interfaces"
	"pc28/domain/rules"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultStaleBuffer    = 30 * time.Second
	defaultStaleThreshold = 3
	defaultMaxCycles      = 2
)

var (
	// ErrAllSourcesFailed is returned when no adapter produced draws within the retry cycles
	ErrAllSourcesFailed = errors.New("all draw sources failed")
	// ErrNoSourcesEnabled is returned when every adapter has been disabled
	ErrNoSourcesEnabled = errors.New("no draw sources enabled")
	// ErrUnknownSource is returned when a source name does not match any adapter
	ErrUnknownSource = errors.New("unknown draw source")
	// ErrEmptyResponse is recorded when an adapter answers without any draws
	ErrEmptyResponse = errors.New("source returned no draws")
)

// AcquisitionOption configures an AcquisitionManager
type AcquisitionOption func(*AcquisitionManager)

// WithClock overrides the time source
func WithClock(now func() time.Time) AcquisitionOption {
	return func(m *AcquisitionManager) {
		m.now = now
	}
}

// WithStaleBuffer sets the grace period added to the draw interval before a
// repeated issue counts as stale
func WithStaleBuffer(d time.Duration) AcquisitionOption {
	return func(m *AcquisitionManager) {
		m.staleBuffer = d
	}
}

// WithStaleThreshold sets how many consecutive stale reads rotate to the next source
func WithStaleThreshold(n int) AcquisitionOption {
	return func(m *AcquisitionManager) {
		if n > 0 {
			m.staleThreshold = n
		}
	}
}

// WithMaxRetryCycles sets how many passes over the enabled sources one fetch makes
func WithMaxRetryCycles(n int) AcquisitionOption {
	return func(m *AcquisitionManager) {
		if n > 0 {
			m.maxCycles = n
		}
	}
}

// WithInitialState seeds the acquisition progress, e.g. from the newest ledger row
func WithInitialState(state entities.AcquisitionState) AcquisitionOption {
	return func(m *AcquisitionManager) {
		m.state = state
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics interfaces.MetricsRecorder) AcquisitionOption {
	return func(m *AcquisitionManager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// AcquisitionManager pulls draws from a prioritised list of source adapters,
// rotating away from sources that fail or stop advancing.
type AcquisitionManager struct {
	// mu serialises fetches and guards state. It is held across adapter calls.
	mu    sync.Mutex
	state entities.AcquisitionState

	// sourcesMu guards overrides only, so toggles and listings never wait on a fetch
	sourcesMu sync.RWMutex
	adapters  []interfaces.SourceAdapter
	overrides map[string]bool

	settings       interfaces.SettingsProvider
	eventPublisher interfaces.EventPublisher
	metrics        interfaces.MetricsRecorder

	now            func() time.Time
	staleBuffer    time.Duration
	staleThreshold int
	maxCycles      int
}

// NewAcquisitionManager creates a manager over the given adapters, ordered by ascending priority
func NewAcquisitionManager(adapters []interfaces.SourceAdapter, settings interfaces.SettingsProvider, eventPublisher interfaces.EventPublisher, opts ...AcquisitionOption) *AcquisitionManager {
	sorted := make([]interfaces.SourceAdapter, len(adapters))
	copy(sorted, adapters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Descriptor().Priority < sorted[j].Descriptor().Priority
	})

	m := &AcquisitionManager{
		adapters:       sorted,
		overrides:      make(map[string]bool),
		settings:       settings,
		eventPublisher: eventPublisher,
		metrics:        interfaces.NoopMetricsRecorder{},
		now:            time.Now,
		staleBuffer:    defaultStaleBuffer,
		staleThreshold: defaultStaleThreshold,
		maxCycles:      defaultMaxCycles,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch runs one acquisition. On success the returned items are newest first.
// When every cycle fails the acquisition state is left exactly as it was.
func (m *AcquisitionManager) Fetch(ctx context.Context) (*entities.FetchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.enabledIndexes()) == 0 {
		return nil, ErrNoSourcesEnabled
	}

	snapshot := m.state
	interval := m.settings.Current().DrawInterval()
	var attempts []entities.SourceAttempt

	for cycle := 1; cycle <= m.maxCycles; cycle++ {
		for _, idx := range m.cycleOrder(cycle) {
			adapter := m.adapters[idx]
			name := adapter.Descriptor().Name

			started := m.now()
			items, err := adapter.FetchLatest(ctx)
			elapsed := m.now().Sub(started)
			if err == nil && len(items) == 0 {
				err = ErrEmptyResponse
			}

			if err != nil {
				attempts = append(attempts, entities.SourceAttempt{Source: name, Cycle: cycle, Outcome: entities.AttemptOutcomeFailed, Elapsed: elapsed, Err: err})
				m.recordFailure(name, cycle, elapsed, err)

				if ctx.Err() != nil {
					m.state = snapshot
					return nil, fmt.Errorf("failed to fetch draws: %w", ctx.Err())
				}
				continue
			}

			newest := items[0]
			now := m.now()

			switch {
			case m.isProgress(newest.Issue):
				m.state.LastFetchedIssue = newest.Issue
				m.state.LastFetchTimestamp = now
				m.state.StaleStreak = 0
				m.state.SourceCursor = idx

				attempts = append(attempts, entities.SourceAttempt{Source: name, Cycle: cycle, Outcome: entities.AttemptOutcomeProgress, Elapsed: elapsed})
				m.metrics.RecordSourceAttempt(name, entities.AttemptOutcomeProgress, elapsed)
				log.WithFields(log.Fields{
					"source":  name,
					"issue":   newest.Issue,
					"elapsed": elapsed,
				}).Info("Fetched new draw")
				return &entities.FetchResult{Source: name, Outcome: entities.FetchOutcomeProgress, Items: items, Attempts: attempts}, nil

			case now.Sub(m.state.LastFetchTimestamp) < interval+m.staleBuffer:
				m.state.SourceCursor = idx

				attempts = append(attempts, entities.SourceAttempt{Source: name, Cycle: cycle, Outcome: entities.AttemptOutcomeNotDue, Elapsed: elapsed})
				m.metrics.RecordSourceAttempt(name, entities.AttemptOutcomeNotDue, elapsed)
				log.WithFields(log.Fields{
					"source": name,
					"issue":  newest.Issue,
				}).Debug("Next draw not due yet")
				return &entities.FetchResult{Source: name, Outcome: entities.FetchOutcomeNotDue, Items: items, Attempts: attempts}, nil
			}

			m.state.StaleStreak++
			if m.state.StaleStreak < m.staleThreshold {
				m.state.SourceCursor = idx

				attempts = append(attempts, entities.SourceAttempt{Source: name, Cycle: cycle, Outcome: entities.AttemptOutcomeStale, Elapsed: elapsed})
				m.metrics.RecordSourceAttempt(name, entities.AttemptOutcomeStale, elapsed)
				log.WithFields(log.Fields{
					"source":      name,
					"issue":       newest.Issue,
					"staleStreak": m.state.StaleStreak,
				}).Info("Source returned a stale draw")
				return &entities.FetchResult{Source: name, Outcome: entities.FetchOutcomeStale, Items: items, Attempts: attempts}, nil
			}

			next := m.nextEnabledIndex(idx)
			streak := m.state.StaleStreak
			m.state.StaleStreak = 0
			m.state.SourceCursor = next

			attempts = append(attempts, entities.SourceAttempt{Source: name, Cycle: cycle, Outcome: entities.AttemptOutcomeStaleRotated, Elapsed: elapsed})
			m.metrics.RecordSourceAttempt(name, entities.AttemptOutcomeStaleRotated, elapsed)
			m.recordRotation(name, m.adapters[next].Descriptor().Name, newest.Issue, streak)
		}
	}

	m.state = snapshot
	log.WithFields(log.Fields{
		"cycles":   m.maxCycles,
		"attempts": len(attempts),
	}).Error("All draw sources failed")
	return nil, fmt.Errorf("%w after %d cycles", ErrAllSourcesFailed, m.maxCycles)
}

// State returns a copy of the current acquisition progress
func (m *AcquisitionManager) State() entities.AcquisitionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Sources returns the descriptors of every adapter with its effective enabled flag
func (m *AcquisitionManager) Sources() []entities.SourceDescriptor {
	descriptors := make([]entities.SourceDescriptor, len(m.adapters))
	for i := range m.adapters {
		descriptors[i] = m.descriptorAt(i)
	}
	return descriptors
}

// SetSourceEnabled enables or disables an adapter by name
func (m *AcquisitionManager) SetSourceEnabled(name string, enabled bool) error {
	m.sourcesMu.Lock()
	defer m.sourcesMu.Unlock()

	for _, adapter := range m.adapters {
		if adapter.Descriptor().Name == name {
			m.overrides[name] = enabled
			log.WithFields(log.Fields{
				"source":  name,
				"enabled": enabled,
			}).Info("Draw source toggled")
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSource, name)
}

// HealthCheck probes every enabled adapter concurrently. It does not touch the
// acquisition state and does not block Fetch while probes are in flight.
func (m *AcquisitionManager) HealthCheck(ctx context.Context) *entities.SourcesHealth {
	adapters := m.adapters
	descriptors := m.Sources()

	results := make([]entities.SourceHealth, len(adapters))
	var g errgroup.Group
	for i, adapter := range adapters {
		results[i].SourceDescriptor = descriptors[i]
		if !descriptors[i].Enabled {
			results[i].Error = "disabled"
			continue
		}

		g.Go(func() error {
			started := time.Now()
			items, err := adapter.FetchLatest(ctx)
			results[i].Latency = time.Since(started)
			if err == nil && len(items) == 0 {
				err = ErrEmptyResponse
			}
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Healthy = true
			results[i].LatestIssue = items[0].Issue
			return nil
		})
	}
	_ = g.Wait()

	enabled, healthy := 0, 0
	for _, r := range results {
		if !r.Enabled {
			continue
		}
		enabled++
		if r.Healthy {
			healthy++
		}
	}

	status := entities.HealthStatusDegraded
	switch {
	case healthy == 0:
		status = entities.HealthStatusCritical
	case healthy == enabled:
		status = entities.HealthStatusHealthy
	}

	return &entities.SourcesHealth{
		Status:    status,
		Sources:   results,
		CheckedAt: m.now(),
	}
}

// isProgress reports whether issue is newer than the last one fetched. A
// lagging provider answering with an older issue is not progress.
func (m *AcquisitionManager) isProgress(issue string) bool {
	if m.state.LastFetchedIssue == "" {
		return true
	}
	return rules.CompareIssues(issue, m.state.LastFetchedIssue) > 0
}

func (m *AcquisitionManager) descriptorAt(i int) entities.SourceDescriptor {
	m.sourcesMu.RLock()
	defer m.sourcesMu.RUnlock()

	desc := m.adapters[i].Descriptor()
	if enabled, ok := m.overrides[desc.Name]; ok {
		desc.Enabled = enabled
	}
	return desc
}

func (m *AcquisitionManager) enabledIndexes() []int {
	var indexes []int
	for i := range m.adapters {
		if m.descriptorAt(i).Enabled {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// cycleOrder lists enabled adapter indexes for one pass. The first pass starts
// at the cursor and wraps; later passes start from the highest priority source.
func (m *AcquisitionManager) cycleOrder(cycle int) []int {
	enabled := m.enabledIndexes()
	if cycle > 1 || len(enabled) == 0 {
		return enabled
	}

	cursor := m.state.SourceCursor
	if cursor < 0 || cursor >= len(m.adapters) {
		cursor = 0
	}

	start := 0
	for i, idx := range enabled {
		if idx >= cursor {
			start = i
			break
		}
	}
	return append(enabled[start:len(enabled):len(enabled)], enabled[:start]...)
}

func (m *AcquisitionManager) nextEnabledIndex(idx int) int {
	for step := 1; step <= len(m.adapters); step++ {
		next := (idx + step) % len(m.adapters)
		if m.descriptorAt(next).Enabled {
			return next
		}
	}
	return idx
}

func (m *AcquisitionManager) recordFailure(name string, cycle int, elapsed time.Duration, err error) {
	m.metrics.RecordSourceAttempt(name, entities.AttemptOutcomeFailed, elapsed)
	log.WithFields(log.Fields{
		"source":  name,
		"cycle":   cycle,
		"elapsed": elapsed,
	}).WithError(err).Warn("Draw source failed")

	event := events.SourceFailedEvent{
		Source:    name,
		Cycle:     cycle,
		Error:     err.Error(),
		ElapsedMs: elapsed.Milliseconds(),
	}
	if pubErr := m.eventPublisher.Publish(event); pubErr != nil {
		log.WithError(pubErr).Error("Failed to publish source failed event")
	}
}

func (m *AcquisitionManager) recordRotation(from, to, issue string, streak int) {
	log.WithFields(log.Fields{
		"from":        from,
		"to":          to,
		"issue":       issue,
		"staleStreak": streak,
	}).Warn("Source stuck on the same issue, rotating")

	event := events.SourceRotatedEvent{
		From:        from,
		To:          to,
		StaleIssue:  issue,
		StaleStreak: streak,
	}
	if err := m.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish source rotated event")
	}
}
