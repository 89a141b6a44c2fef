package cmd

import (
	"context"
	"fmt"
	"time"

	"skywager/application"
	"skywager/config"
	"skywager/database"
	"skywager/domain/events"
	"skywager/domain/interfaces"
	"skywager/domain/services"
	"skywager/infrastructure"
	"skywager/infrastructure/observability"
	"skywager/infrastructure/weather"
	"skywager/server"

	log "github.com/sirupsen/logrus"
)

// app holds the wired components shared by the serve and settle commands
type app struct {
	cfg        *config.Config
	db         *database.DB
	natsClient *infrastructure.NATSClient
	runner     *application.SettlementRunner
	placement  *application.PlacementHandler
	cashOut    *application.CashOutHandler
	accounts   *application.AccountHandler
}

// Run initializes and starts the HTTP API and the settlement worker
func Run(ctx context.Context) error {
	log.Info("Starting skywager...")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Start settlement worker
	worker := application.NewSettlementWorker(a.runner, a.cfg.SettlementCron)
	stopWorker, err := worker.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start settlement worker: %w", err)
	}
	defer stopWorker()

	srv := server.New(server.Dependencies{
		DB:         a.db,
		Settlement: a.runner,
		Placement:  a.placement,
		CashOut:    a.cashOut,
		Accounts:   a.accounts,
	}, a.cfg.CORSAllowedOrigins)

	log.WithField("environment", a.cfg.Environment).Info("skywager is running")
	if err := srv.ListenAndServe(ctx, a.cfg.HTTPAddr); err != nil {
		return err
	}

	log.Info("Shutting down skywager...")
	return nil
}

// Settle runs a single settlement pass and exits
func Settle(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("settlement run failed: %w", err)
	}

	log.WithFields(log.Fields{
		"singles":  summary.Singles,
		"parlays":  summary.Parlays,
		"combined": summary.Combined,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	}).Info("Settlement finished")
	return nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Get()
	a := &app{cfg: cfg}

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), database.PoolOptions{
		MaxConns:        int32(cfg.DatabaseMaxConns),
		MaxConnIdleTime: cfg.DatabaseMaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	log.Info("Database connection established successfully")

	// Initialize event publisher
	eventPublisher, err := a.newEventPublisher(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	// Load odds policy
	policy, err := config.LoadOddsPolicy(cfg.OddsPolicyFile)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load odds policy: %w", err)
	}
	valuer := services.NewOddsValuer(policy)

	weatherClient := weather.NewClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey, cfg.WeatherUnits, cfg.WeatherTimeout)
	log.WithField("baseURL", cfg.WeatherAPIURL).Info("Weather client configured")

	a.runner = application.NewSettlementRunner(uowFactory, weatherClient, cfg.SettlementConcurrency)
	a.placement = application.NewPlacementHandler(uowFactory, valuer)
	a.cashOut = application.NewCashOutHandler(uowFactory, weatherClient, valuer)
	a.accounts = application.NewAccountHandler(uowFactory)

	return a, nil
}

// newEventPublisher connects to NATS when enabled, otherwise events are dropped
func (a *app) newEventPublisher(ctx context.Context) (interfaces.EventPublisher, error) {
	if !a.cfg.NATSEnabled {
		log.Info("NATS disabled, domain events will not be published")
		return infrastructure.NewNoopEventPublisher(), nil
	}

	log.WithField("servers", a.cfg.NATSServers).Info("Connecting to NATS...")
	client := infrastructure.NewNATSClient(infrastructure.NATSOptions{
		Servers:       a.cfg.NATSServers,
		MaxReconnects: a.cfg.NATSMaxReconnects,
		ReconnectWait: a.cfg.NATSReconnectWait,
		StreamMaxAge:  a.cfg.NATSStreamMaxAge,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.natsClient = client

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.DomainEventStream, mapper.GetAllSubjects()); err != nil {
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(client, mapper)
	publisher.RegisterLocalHandler(events.EventTypeWagerSettled, func(ctx context.Context, event events.Event) error {
		log.WithField("event", event).Debug("Wager settled")
		return nil
	})
	log.Info("NATS event publisher initialized successfully")
	return publisher, nil
}

func (a *app) close() {
	if a.natsClient != nil {
		if err := a.natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}

	if a.db != nil {
		log.Info("Closing database connection...")
		a.db.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}
}
