package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pc28/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics and implements
// interfaces.MetricsRecorder. Every Record method is a no-op until the
// provider is initialized with an exporter.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	sourceAttemptsCounter     metric.Int64Counter
	sourceAttemptDurationHist metric.Float64Histogram
	syncRunsCounter           metric.Int64Counter
	syncRunDurationHist       metric.Float64Histogram
	drawsIngestedCounter      metric.Int64Counter
	betsSettledCounter        metric.Int64Counter
	settlementFailuresCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter selected by configuration
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))

	if err := mp.initWithReader(reader); err != nil {
		return err
	}
	otel.SetMeterProvider(mp.meterProvider)

	log.Info("Metrics provider initialized successfully")
	return nil
}

// initWithReader builds the meter provider around reader. Callers hold mp.mu.
func (mp *MetricsProvider) initWithReader(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("pc28")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.sourceAttemptsCounter, err = mp.meter.Int64Counter(
		SourceAttemptsTotal,
		metric.WithDescription("Draw source adapter calls by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create source attempts counter: %w", err)
	}

	mp.sourceAttemptDurationHist, err = mp.meter.Float64Histogram(
		SourceAttemptDuration,
		metric.WithDescription("Duration of draw source adapter calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15),
	)
	if err != nil {
		return fmt.Errorf("failed to create source attempt duration histogram: %w", err)
	}

	mp.syncRunsCounter, err = mp.meter.Int64Counter(
		SyncRunsTotal,
		metric.WithDescription("Draw sync runs by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync runs counter: %w", err)
	}

	mp.syncRunDurationHist, err = mp.meter.Float64Histogram(
		SyncRunDuration,
		metric.WithDescription("Duration of draw sync runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run duration histogram: %w", err)
	}

	mp.drawsIngestedCounter, err = mp.meter.Int64Counter(
		DrawsIngestedTotal,
		metric.WithDescription("Draw results appended to the ledger"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draws ingested counter: %w", err)
	}

	mp.betsSettledCounter, err = mp.meter.Int64Counter(
		BetsSettledTotal,
		metric.WithDescription("Bets settled by type and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets settled counter: %w", err)
	}

	mp.settlementFailuresCounter, err = mp.meter.Int64Counter(
		SettlementFailuresTotal,
		metric.WithDescription("Settlement failures by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement failures counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordSourceAttempt records one adapter call
func (mp *MetricsProvider) RecordSourceAttempt(source, outcome string, elapsed time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelSource, source),
		attribute.String(LabelOutcome, outcome),
	)
	mp.sourceAttemptsCounter.Add(context.Background(), 1, attrs)
	mp.sourceAttemptDurationHist.Record(context.Background(), elapsed.Seconds(), attrs)
}

// RecordSyncRun records one scheduler iteration
func (mp *MetricsProvider) RecordSyncRun(outcome string, elapsed time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelOutcome, outcome))
	mp.syncRunsCounter.Add(context.Background(), 1, attrs)
	mp.syncRunDurationHist.Record(context.Background(), elapsed.Seconds(), attrs)
}

// RecordDrawIngested records a new ledger row
func (mp *MetricsProvider) RecordDrawIngested(source string) {
	if !mp.isEnabled() {
		return
	}

	mp.drawsIngestedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelSource, source)),
	)
}

// RecordBetSettled records a settled bet
func (mp *MetricsProvider) RecordBetSettled(betType, status string) {
	if !mp.isEnabled() {
		return
	}

	mp.betsSettledCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelBetType, betType),
			attribute.String(LabelStatus, status),
		),
	)
}

// RecordSettlementFailure records a bet or issue that failed to settle
func (mp *MetricsProvider) RecordSettlementFailure(reason string) {
	if !mp.isEnabled() {
		return
	}

	mp.settlementFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// isEnabled reports whether instruments exist. The "none" exporter and a
// disabled config initialize without a meter provider.
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization.
// A nil provider is safe to record on.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
