package entities

import "time"

// SourceDescriptor is the static identity of a draw source adapter
type SourceDescriptor struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// AcquisitionState is the mutable progress of the acquisition manager.
// One instance is owned by one manager and mutated only by it.
type AcquisitionState struct {
	LastFetchedIssue   string
	LastFetchTimestamp time.Time
	StaleStreak        int
	SourceCursor       int
}

// FetchOutcome classifies a successful acquisition
type FetchOutcome string

const (
	// FetchOutcomeProgress means a new issue was observed
	FetchOutcomeProgress FetchOutcome = "progress"
	// FetchOutcomeNotDue means the same issue was seen before the next draw was expected
	FetchOutcomeNotDue FetchOutcome = "not_due"
	// FetchOutcomeStale means the same issue was seen after the next draw was expected
	FetchOutcomeStale FetchOutcome = "stale"
)

// Outcomes recorded per adapter attempt
const (
	AttemptOutcomeProgress     = "progress"
	AttemptOutcomeNotDue       = "not_due"
	AttemptOutcomeStale        = "stale"
	AttemptOutcomeStaleRotated = "stale_rotated"
	AttemptOutcomeFailed       = "failed"
)

// SourceAttempt records one adapter call made during an acquisition
type SourceAttempt struct {
	Source  string        `json:"source"`
	Cycle   int           `json:"cycle"`
	Outcome string        `json:"outcome"`
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// FetchResult is returned by a successful acquisition
type FetchResult struct {
	Source   string          `json:"source"`
	Outcome  FetchOutcome    `json:"outcome"`
	Items    []DrawItem      `json:"items"`
	Attempts []SourceAttempt `json:"attempts"`
}

// Newest returns the most recent draw item, or nil when there are none
func (r *FetchResult) Newest() *DrawItem {
	if r == nil || len(r.Items) == 0 {
		return nil
	}
	return &r.Items[0]
}

// HealthStatus summarises the reachability of all draw sources
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusCritical HealthStatus = "critical"
)

// SourceHealth is the probe result for one adapter
type SourceHealth struct {
	SourceDescriptor
	Healthy     bool          `json:"healthy"`
	LatestIssue string        `json:"latestIssue,omitempty"`
	Latency     time.Duration `json:"latency"`
	Error       string        `json:"error,omitempty"`
}

// SourcesHealth is the aggregate probe result
type SourcesHealth struct {
	Status    HealthStatus   `json:"status"`
	Sources   []SourceHealth `json:"sources"`
	CheckedAt time.Time      `json:"checkedAt"`
}
