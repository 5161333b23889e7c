package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/database"
	"github.com/AnuragDani/gateway-decider/internal/decider"
	"github.com/AnuragDani/gateway-decider/internal/eligibility"
	"github.com/AnuragDani/gateway-decider/internal/events"
	"github.com/AnuragDani/gateway-decider/internal/logger"
	"github.com/AnuragDani/gateway-decider/internal/metrics"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
	ws "github.com/AnuragDani/gateway-decider/internal/websocket"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithWriter("decider-service", os.Stdout, cfg.LogLevel)
	log.Info("Gateway decider starting", "port", cfg.Port, "config_path", cfg.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.MaxOpenConns)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	checks := map[string]healthCheck{"database": db.Ping}

	// Score cache
	var store cache.Store
	if cfg.RedisURL == config.MemoryCacheURL {
		log.Warn("Using in-process score cache; scores are lost on restart")
		store = cache.NewMemoryStore()
	} else {
		redisStore, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisStore.Close()
		store = redisStore
		checks["redis"] = func(context.Context) error { return redisStore.HealthCheck() }
	}

	m := metrics.New()
	wsHub := ws.NewHub(log.With("component", "ws-hub"))
	go wsHub.Run(ctx)

	emitters := telemetry.Multi{m, wsHub}
	var publisher *events.Publisher
	if cfg.TelemetryURL != "" {
		publisher = events.NewPublisher(cfg.TelemetryURL, log.With("component", "telemetry"))
		emitters = append(emitters, publisher)
	}

	// Static eligibility data backs up the configuration tables
	static := eligibility.NewStatic(config.DefaultDeciderConfig().Eligibility)
	dbSource := database.NewConfigSource(db, log)
	lookup := eligibility.NewLookup(
		eligibility.Chain{dbSource, static},
		eligibility.AnyGate{dbSource, static},
		log,
	)

	service := &DeciderService{
		decider: decider.New(db, lookup, store, nil,
			decider.WithEmitter(emitters),
			decider.WithLogger(log.With("component", "decider")),
		),
		static:     static,
		configPath: cfg.ConfigPath,
		scoreTTL:   cfg.ScoreTTL,
		checks:     checks,
		wsHub:      wsHub,
		publisher:  publisher,
		metrics:    m,
		log:        log,
		startedAt:  time.Now(),
	}

	deciderCfg, err := service.loadConfig()
	if err != nil {
		log.Warn("Using built-in decider defaults", "path", cfg.ConfigPath, "error", err)
		deciderCfg = config.DefaultDeciderConfig()
		if cfg.ScoreTTL > 0 {
			deciderCfg.Cache.ScoreTTL = cfg.ScoreTTL
		}
	}
	service.apply(deciderCfg)

	srv := newServer(":"+cfg.Port, service.router(), cfg.ReadTimeout, cfg.WriteTimeout)
	go func() {
		log.Info("Gateway decider listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if publisher != nil {
		publisher.Flush()
	}

	log.Info("Server exiting")
}
