package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"scamguard/internal/alerts"
	"scamguard/internal/api"
	"scamguard/internal/api/handlers"
	"scamguard/internal/config"
	"scamguard/internal/domain/services"
	"scamguard/internal/infrastructure/cache"
	"scamguard/internal/notify"
	"scamguard/internal/repository"
	"scamguard/internal/rules"
	"scamguard/internal/sources"
	"scamguard/internal/sources/abusech"
	"scamguard/internal/sources/email"
	"scamguard/internal/sources/ip"
	"scamguard/internal/sources/phishing"
	"scamguard/internal/sources/phone"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

func main() {
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	})

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting ScamGuard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Score cache: Redis normally, in-memory without one
	var scoreCache cache.Store
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisCache.Close()
		scoreCache = redisCache
	} else {
		log.Warn().Msg("running without Redis, using in-memory score cache")
		scoreCache = cache.NewMemory()
	}

	// Stores: PostgreSQL normally, in-memory without one
	var (
		alertStore repository.AlertStore
		prefStore  repository.PreferenceStore
	)
	if cfg.Database.Enabled {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		alertStore, err = repository.NewPostgresAlertStore(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize alert store")
		}
		prefStore, err = repository.NewPostgresPreferenceStore(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize preference store")
		}
		log.Info().Msg("stores initialized with database")
	} else {
		log.Warn().Msg("running without database, using in-memory stores")
		alertStore = repository.NewMemoryAlertStore()
		prefStore = repository.NewMemoryPreferenceStore()
	}

	// Streaming: hub plus optional NATS bridge for multi-instance fan-out
	bridge, err := streaming.NewNATSBridge(cfg.NATS, uuid.NewString(), log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to NATS, continuing without cross-instance fan-out")
		bridge = nil
	}
	if bridge != nil {
		defer bridge.Close()
	}
	hub := streaming.NewHub(bridge, log)
	go hub.Run(ctx)

	// Reputation sources
	registry := sources.NewRegistry(log)
	registerAdapters(registry, log)
	registry.ConfigureFromConfig(cfg.Sources)

	aggregator := services.NewAggregator(registry, scoreCache, cfg.Scoring.CacheTTL, log)

	// Rule engine: file rules when configured, compiled-in defaults otherwise
	ruleSet := rules.DefaultRules()
	if cfg.Rules.File != "" {
		loaded, err := rules.LoadRules(cfg.Rules.File)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Rules.File).Msg("failed to load rules")
		}
		ruleSet = loaded
	}
	engine := rules.NewEngine(ruleSet, log)
	log.Info().Int("rules", len(ruleSet)).Msg("rule engine initialized")

	// Alert pipeline
	prefService := alerts.NewPreferenceService(prefStore, log)
	manager := alerts.NewManager(alertStore, hub, log)

	channels := []notify.Channel{
		notify.NewPushChannel(cfg.Channels.Push, log),
		notify.NewEmailChannel(cfg.Channels.Email, log),
		notify.NewSMSChannel(cfg.Channels.SMS, log),
		notify.NewInAppChannel(hub, log),
	}
	dispatcher := alerts.NewDispatcher(prefService, channels, hub, cfg.Dispatch.TickInterval, log)
	go dispatcher.Run(ctx)

	// HTTP server
	h := handlers.NewHandlers(handlers.Dependencies{
		Aggregator:  aggregator,
		Registry:    registry,
		Engine:      engine,
		Manager:     manager,
		Dispatcher:  dispatcher,
		Preferences: prefService,
		Hub:         hub,
		Logger:      log,
		Version:     cfg.App.Version,
	})
	router := api.NewRouter(*cfg, h, hub, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Deliver whatever is still queued before exit
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	dispatcher.Drain(drainCtx)

	log.Info().Msg("stopped")
}

// registerAdapters registers every reputation source adapter
func registerAdapters(registry *sources.Registry, log *logger.Logger) {
	adapters := []sources.Adapter{
		phishing.NewOpenPhishAdapter(log),
		ip.NewAbuseIPDBAdapter(log),
		abusech.NewURLhausAdapter(log),
		phone.NewNumLookupAdapter(log),
		email.NewEmailRepAdapter(log),
	}
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			log.Error().Err(err).Str("source", a.Slug()).Msg("failed to register adapter")
		}
	}
}
