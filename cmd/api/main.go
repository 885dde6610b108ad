package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	httpAdapter "github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/http"
	mw "github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/http/middleware"
	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/subscriber"
	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/websocket"
	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/secondary/memory"
	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/secondary/messaging"
	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/secondary/postgres"
	"github.com/chiillbro/aether-incident-response-sub000/internal/auth"
	"github.com/chiillbro/aether-incident-response-sub000/internal/config"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/events"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/services"
	"github.com/chiillbro/aether-incident-response-sub000/internal/infrastructure/logging"
)

// stopper is a started job queue.
type stopper interface {
	Stop(ctx context.Context) error
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Initialize Database Pool
	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	if cfg.Database.AutoMigrate {
		applied, err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			logger.Error("database migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations checked", "applied", applied)
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	bus := events.NewBus(logger)

	// 5. Initialize Rate Limiter
	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer rateLimiter.Stop()
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	teamRepo := postgres.NewTeamRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)

	// Services (Core)
	typing := services.NewTypingTracker(hub, cfg.Chat.TypingTimeout, logger)
	channels := services.NewIncidentChannelService(hub, messageRepo, typing, services.ChatConfig{
		HistoryLimit:     cfg.Chat.HistoryLimit,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
	}, logger)
	gatekeeper := services.NewGatekeeper(tokenManager, userRepo, logger)
	channels.Subscribe(bus)

	wsRouter, err := websocket.NewRouter(websocket.IncidentRoutes(channels), logger)
	if err != nil {
		logger.Error("failed to build websocket router", "error", err)
		os.Exit(1)
	}

	// Notification pipeline
	relay := subscriber.NewNotificationRelay(hub, logger)
	retry := domain.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Notify.MaxAttempts
	retry.BaseBackoff = cfg.Notify.RetryBackoff

	checkers := map[string]ports.HealthChecker{"database": pool}

	var (
		queue      ports.JobQueue
		queueStop  stopper
		natsClient *messaging.Client
		relaySubs  []*nats.Subscription
		consumer   *subscriber.DomainEventConsumer

		// ingester feeds POST /api/v1/events into the pipeline.
		ingester ports.EventIngester = subscriber.NewDomainEventConsumer(bus, logger)
	)
	switch cfg.Notify.Transport {
	case config.TransportNATS:
		natsClient, err = messaging.ConnectWithRetry(ctx, cfg.NATS.URL, cfg.App.Name, cfg.NATS.ConnectTimeout, logger)
		if err != nil {
			logger.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		checkers["nats"] = natsClient

		relaySubs, err = relay.Attach(natsClient.Conn)
		if err != nil {
			logger.Error("failed to attach notification relay", "error", err)
			os.Exit(1)
		}

		worker := services.NewNotificationWorker(teamRepo, messaging.NewPublisher(natsClient.Conn), logger)
		jsQueue := messaging.NewJobQueue(natsClient.JS, worker, messaging.QueueConfig{
			Workers:    cfg.Notify.Workers,
			JobTimeout: cfg.Notify.JobTimeout,
			Retry:      retry,
		}, logger)
		if err := jsQueue.Start(ctx); err != nil {
			logger.Error("failed to start job queue", "error", err)
			os.Exit(1)
		}
		queue, queueStop = jsQueue, jsQueue

		if cfg.NATS.DomainEventsEnabled {
			consumer = subscriber.NewDomainEventConsumer(bus, logger)
			if err := consumer.Start(ctx, natsClient.JS); err != nil {
				logger.Error("failed to start domain event consumer", "error", err)
				os.Exit(1)
			}
			ingester = messaging.NewEventForwarder(natsClient.JS)
		}
	default:
		worker := services.NewNotificationWorker(teamRepo, relay, logger)
		memQueue := memory.NewJobQueue(worker, memory.Config{
			Workers:    cfg.Notify.Workers,
			JobTimeout: cfg.Notify.JobTimeout,
			Retry:      retry,
		}, logger)
		memQueue.Start(ctx)
		queue, queueStop = memQueue, memQueue
	}

	notifications := services.NewNotificationService(queue, logger)
	services.NewNotificationDispatcher(notifications, logger).Subscribe(bus)
	logger.Info("notification pipeline ready", "transport", cfg.Notify.Transport)

	// Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, gatekeeper, channels, wsRouter, httpAdapter.WebSocketConfig{
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		IsDevelopment:   cfg.IsDevelopment(),
		Client: websocket.ClientConfig{
			PongWait:        cfg.WebSocket.PongWait,
			PingInterval:    cfg.WebSocket.PingInterval,
			MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
			SendBuffer:      cfg.WebSocket.SendBuffer,
			EventsPerSecond: cfg.WebSocket.EventsPerSecond,
			EventsBurst:     cfg.WebSocket.EventsBurst,
		},
	}, logger)
	messageHandler := httpAdapter.NewMessageHandler(channels, errorHandler, logger)
	eventHandler := httpAdapter.NewEventHandler(ingester, errorHandler, logger)
	healthHandler := httpAdapter.NewHealthHandler(cfg.App.Version, hub, checkers)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Apply general rate limiting if enabled
	if rateLimiter != nil {
		r.Use(rateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/incidents", messageHandler.RegisterRoutes)
			r.Route("/events", eventHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout does not apply to hijacked websocket connections.
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	hub.Shutdown("server shutting down")

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("domain event consumer shutdown error", "error", err)
		}
	}
	for _, sub := range relaySubs {
		_ = sub.Unsubscribe()
	}
	if err := queueStop.Stop(shutdownCtx); err != nil {
		logger.Error("job queue shutdown error", "error", err)
	}
	cancelRun()

	logger.Info("server shutdown complete")
}

// corsOrigins turns websocket host patterns into CORS origin patterns.
func corsOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || len(cfg.WebSocket.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	origins := make([]string, 0, len(cfg.WebSocket.AllowedOrigins)*2)
	for _, host := range cfg.WebSocket.AllowedOrigins {
		origins = append(origins, "https://"+host, "http://"+host)
	}
	return origins
}
