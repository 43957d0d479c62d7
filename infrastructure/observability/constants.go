package observability

// Metric name prefixes
const (
	MetricPrefix = "pc28"
)

// Metric names
const (
	// Acquisition metrics
	SourceAttemptsTotal   = MetricPrefix + ".source.attempts_total"
	SourceAttemptDuration = MetricPrefix + ".source.attempt_duration"
	SyncRunsTotal         = MetricPrefix + ".sync.runs_total"
	SyncRunDuration       = MetricPrefix + ".sync.run_duration"
	DrawsIngestedTotal    = MetricPrefix + ".draws.ingested_total"

	// Settlement metrics
	BetsSettledTotal        = MetricPrefix + ".bets.settled_total"
	SettlementFailuresTotal = MetricPrefix + ".settlement.failures_total"
)

// Label keys
const (
	LabelSource  = "source"
	LabelOutcome = "outcome"
	LabelBetType = "bet_type"
	LabelStatus  = "status"
	LabelReason  = "reason"
)
