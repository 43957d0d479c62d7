package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pc28/domain/entities"
	"pc28/domain/events"
	"pc28/domain/interfaces"
	"pc28/domain/rules"

	log "github.com/sirupsen/logrus"
)

// ErrSyncInProgress is returned when a sync is triggered while another is running
var ErrSyncInProgress = errors.New("draw sync already in progress")

// DrawFetcher returns the newest draws from whichever source is currently usable
type DrawFetcher interface {
	Fetch(ctx context.Context) (*entities.FetchResult, error)
}

// IssueSettler settles issues after new draws land in the ledger
type IssueSettler interface {
	SettleOutstanding(ctx context.Context) ([]*entities.SettlementSummary, error)
}

// SyncSchedule decides how long the sync loop sleeps between attempts
type SyncSchedule struct {
	// Dense is the poll interval right after a draw is expected
	Dense time.Duration
	// Sparse is the poll interval for the rest of the cycle
	Sparse time.Duration
	// DenseWindow is how long after an expected draw dense polling lasts
	DenseWindow time.Duration
}

// DefaultSyncSchedule polls every 5s for a minute after each expected draw and every minute otherwise
func DefaultSyncSchedule() SyncSchedule {
	return SyncSchedule{
		Dense:       5 * time.Second,
		Sparse:      60 * time.Second,
		DenseWindow: 60 * time.Second,
	}
}

// NextDelay returns the sleep before the next attempt. It never sleeps past
// the next expected draw; once a draw is overdue the phase is taken modulo the
// interval so a long outage does not disable dense polling.
func (s SyncSchedule) NextDelay(now, lastDrawTime time.Time, interval time.Duration) time.Duration {
	if lastDrawTime.IsZero() || interval <= 0 {
		return s.Dense
	}

	expected := lastDrawTime.Add(interval)
	if now.Before(expected) {
		return min(s.Sparse, expected.Sub(now))
	}

	sinceExpected := now.Sub(expected) % interval
	if sinceExpected < s.DenseWindow {
		return s.Dense
	}

	untilNext := interval - sinceExpected
	if untilNext <= 0 {
		return s.Dense
	}
	return min(s.Sparse, untilNext)
}

// SyncReport describes one sync attempt
type SyncReport struct {
	Fetch    *entities.FetchResult         `json:"fetch"`
	Inserted []string                      `json:"inserted"`
	Settled  []*entities.SettlementSummary `json:"settled,omitempty"`
}

// DrawSyncWorker drives acquisition on an adaptive schedule and feeds the ledger
type DrawSyncWorker struct {
	fetcher    DrawFetcher
	uowFactory UnitOfWorkFactory
	draws      interfaces.DrawReader
	settler    IssueSettler
	settings   interfaces.SettingsProvider
	metrics    interfaces.MetricsRecorder
	schedule   SyncSchedule

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	running atomic.Bool
}

// NewDrawSyncWorker creates a new draw sync worker
func NewDrawSyncWorker(
	fetcher DrawFetcher,
	uowFactory UnitOfWorkFactory,
	draws interfaces.DrawReader,
	settler IssueSettler,
	settings interfaces.SettingsProvider,
	metrics interfaces.MetricsRecorder,
	schedule SyncSchedule,
) *DrawSyncWorker {
	if metrics == nil {
		metrics = interfaces.NoopMetricsRecorder{}
	}
	return &DrawSyncWorker{
		fetcher:    fetcher,
		uowFactory: uowFactory,
		draws:      draws,
		settler:    settler,
		settings:   settings,
		metrics:    metrics,
		schedule:   schedule,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// SetClock replaces the time source and sleep primitive, for tests
func (w *DrawSyncWorker) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	w.now = now
	w.sleep = sleep
}

// SyncOnce performs one acquisition and ingests any draws missing from the
// ledger. A call made while another is running returns ErrSyncInProgress
// without waiting.
func (w *DrawSyncWorker) SyncOnce(ctx context.Context) (*SyncReport, error) {
	if !w.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer w.running.Store(false)

	started := w.now()
	result, err := w.fetcher.Fetch(ctx)
	if err != nil {
		w.metrics.RecordSyncRun("failed", w.now().Sub(started))
		return nil, fmt.Errorf("failed to fetch draws: %w", err)
	}

	// Items are ingested whatever the outcome: the manager records progress
	// before the ledger does, so a failed insert is retried on the next read.
	report := &SyncReport{Fetch: result}
	inserted, err := w.ingest(ctx, result)
	report.Inserted = inserted
	if err != nil {
		w.metrics.RecordSyncRun("ingest_failed", w.now().Sub(started))
		return report, err
	}

	if len(report.Inserted) > 0 && w.settings.Current().AutoSettleEnabled && w.settler != nil {
		summaries, err := w.settler.SettleOutstanding(ctx)
		report.Settled = summaries
		if err != nil {
			log.WithError(err).Warn("Auto settlement did not complete")
		}
	}

	w.metrics.RecordSyncRun(string(result.Outcome), w.now().Sub(started))
	return report, nil
}

// Run loops until ctx is cancelled
func (w *DrawSyncWorker) Run(ctx context.Context) {
	log.Info("Draw sync worker started")

	if w.settings.Current().AutoSettleEnabled && w.settler != nil {
		if _, err := w.settler.SettleOutstanding(ctx); err != nil {
			log.WithError(err).Warn("Startup settlement sweep did not complete")
		}
	}

	for {
		if _, err := w.SyncOnce(ctx); err != nil {
			switch {
			case errors.Is(err, ErrSyncInProgress):
				log.Debug("Skipping scheduled sync, another attempt is running")
			case ctx.Err() != nil:
			default:
				log.WithError(err).Error("Draw sync failed")
			}
		}

		delay := w.nextDelay(ctx)
		log.WithField("delay", delay).Debug("Next draw sync scheduled")

		if err := w.sleep(ctx, delay); err != nil {
			log.Info("Draw sync worker shutting down...")
			return
		}
	}
}

// Start begins the worker and returns its stop function
func (w *DrawSyncWorker) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	go w.Run(ctx)
	return cancel
}

func (w *DrawSyncWorker) nextDelay(ctx context.Context) time.Duration {
	var lastDrawTime time.Time
	latest, err := w.draws.GetLatest(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read latest draw for scheduling")
	} else if latest != nil {
		lastDrawTime = latest.DrawTime
	}
	return w.schedule.NextDelay(w.now(), lastDrawTime, w.settings.Current().DrawInterval())
}

// ingest appends fetched draws oldest first, one transaction per draw
func (w *DrawSyncWorker) ingest(ctx context.Context, result *entities.FetchResult) ([]string, error) {
	var inserted []string
	for i := len(result.Items) - 1; i >= 0; i-- {
		draw, err := rules.NewDrawResult(result.Items[i], result.Source)
		if err != nil {
			log.WithFields(log.Fields{
				"source": result.Source,
				"issue":  result.Items[i].Issue,
			}).WithError(err).Warn("Discarding malformed draw")
			continue
		}

		ok, err := w.insertDraw(ctx, draw)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted = append(inserted, draw.Issue)
			w.metrics.RecordDrawIngested(draw.Source)
		}
	}
	return inserted, nil
}

func (w *DrawSyncWorker) insertDraw(ctx context.Context, draw *entities.DrawResult) (bool, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	inserted, err := uow.DrawResultRepository().Insert(ctx, draw)
	if err != nil {
		return false, fmt.Errorf("failed to insert draw %s: %w", draw.Issue, err)
	}
	if !inserted {
		return false, nil
	}

	if err := uow.EventBus().Publish(events.DrawIngestedEvent{
		Issue:        draw.Issue,
		Digits:       draw.Digits,
		Sum:          draw.Sum,
		IsReturn:     draw.IsReturn,
		ReturnReason: string(draw.ReturnReason),
		Combo:        string(draw.Combo),
		DrawTime:     draw.DrawTime,
		Source:       draw.Source,
	}); err != nil {
		log.WithError(err).Error("Failed to publish draw ingested event")
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit draw %s: %w", draw.Issue, err)
	}

	log.WithFields(log.Fields{
		"issue":  draw.Issue,
		"digits": rules.FormatDrawResult(draw.Digits),
		"source": draw.Source,
	}).Info("Draw ingested")
	return true, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
