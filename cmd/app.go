package cmd

import (
	"context"
	"fmt"

	"pc28/application"
	"pc28/config"
	"pc28/database"
	"pc28/domain/entities"
	"pc28/domain/interfaces"
	"pc28/domain/services"
	"pc28/infrastructure"
	"pc28/infrastructure/lock"
	"pc28/infrastructure/observability"
	"pc28/infrastructure/sources"
	"pc28/repository"

	log "github.com/sirupsen/logrus"
)

// app holds the wired components shared by the server and the one-shot commands
type app struct {
	cfg *config.Config
	db  *database.DB

	natsClient  *infrastructure.NATSClient
	redisClient *lock.RedisClient

	eventPublisher interfaces.EventPublisher
	metrics        *observability.MetricsProvider

	draws       *repository.DrawResultRepository
	records     *repository.PointRecordRepository
	settings    *application.SettingsCache
	acquisition *services.AcquisitionManager
	window      *services.BettingWindowService
	settlement  *application.SettlementCoordinator
	syncWorker  *application.DrawSyncWorker
}

// newApp connects every backing service and builds the core components.
// The caller must call close.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	log.Info("Database connection established successfully")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}
	a.metrics = observability.GetMetrics()

	if err := a.initEventPublisher(ctx); err != nil {
		a.close()
		return nil, err
	}

	locker, err := a.initLocker(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.draws = repository.NewDrawResultRepository(db)
	a.records = repository.NewPointRecordRepository(db)

	a.settings = application.NewSettingsCache(repository.NewSettingsRepository(db), cfg.SettingsRefresh())
	if err := a.settings.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Failed to load game settings, using defaults where missing")
	}

	adapters, err := sources.NewFromConfig(cfg.Sources, a.draws)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to build draw sources: %w", err)
	}

	opts := []services.AcquisitionOption{
		services.WithStaleBuffer(cfg.StaleBuffer()),
		services.WithStaleThreshold(cfg.StaleThreshold),
		services.WithMetrics(a.metrics),
	}
	latest, err := a.draws.GetLatest(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read newest draw, acquisition starts empty")
	} else if latest != nil {
		opts = append(opts, services.WithInitialState(entities.AcquisitionState{
			LastFetchedIssue:   latest.Issue,
			LastFetchTimestamp: latest.DrawTime,
		}))
	}
	a.acquisition = services.NewAcquisitionManager(adapters, a.settings, a.eventPublisher, opts...)

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, a.eventPublisher)
	a.window = services.NewBettingWindowService(a.draws, a.settings, nil)
	a.settlement = application.NewSettlementCoordinator(uowFactory, locker, a.settings, a.metrics)
	a.syncWorker = application.NewDrawSyncWorker(
		a.acquisition,
		uowFactory,
		a.draws,
		a.settlement,
		a.settings,
		a.metrics,
		application.SyncSchedule{
			Dense:       cfg.SyncDense(),
			Sparse:      cfg.SyncSparse(),
			DenseWindow: cfg.SyncDenseWindow(),
		},
	)

	return a, nil
}

func (a *app) initEventPublisher(ctx context.Context) error {
	if a.cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, domain events stay in-process")
		bus := infrastructure.NewLocalEventBus()
		registerEventLog(bus)
		a.eventPublisher = bus
		return nil
	}

	log.WithField("servers", a.cfg.NATSServers).Info("Connecting to NATS...")
	client := infrastructure.NewNATSClient(a.cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.natsClient = client

	publisher := infrastructure.NewNATSEventPublisher(client, infrastructure.NewEventSubjectMapper())
	registerEventLog(publisher)
	if err := publisher.EnsureDomainEventStream(client); err != nil {
		log.WithError(err).Warn("Failed to ensure lottery event stream")
	}
	a.eventPublisher = publisher
	return nil
}

func (a *app) initLocker(ctx context.Context) (interfaces.Locker, error) {
	if a.cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, settlement locks are process-local")
		return lock.NewMemoryLocker(), nil
	}

	log.WithField("addr", a.cfg.RedisAddr).Info("Connecting to Redis...")
	client, err := lock.NewRedisClient(ctx, lock.RedisConfig{
		Addr:       a.cfg.RedisAddr,
		Password:   a.cfg.RedisPassword,
		DB:         a.cfg.RedisDB,
		PoolSize:   10,
		MaxRetries: 3,
	})
	if err != nil {
		return nil, err
	}
	a.redisClient = client
	return lock.NewRedisLocker(client), nil
}

// close releases every connection in reverse order of acquisition
func (a *app) close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.WithError(err).Warn("Error closing Redis client")
		}
	}
	if a.natsClient != nil {
		if err := a.natsClient.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS client")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down metrics")
	}

	if a.db != nil {
		log.Info("Closing database connection...")
		a.db.Close()
	}
}
