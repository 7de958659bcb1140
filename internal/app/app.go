// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/targetzero/coursebot/internal/api"
	"github.com/targetzero/coursebot/internal/buildinfo"
	"github.com/targetzero/coursebot/internal/config"
	"github.com/targetzero/coursebot/internal/dialogue"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/metrics"
	"github.com/targetzero/coursebot/internal/ratelimit"
	"github.com/targetzero/coursebot/internal/sentry"
	"github.com/targetzero/coursebot/internal/storage"
	"github.com/targetzero/coursebot/internal/webhook"
)

const serviceName = "coursebot"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	dialogue       *Dialogue
	apiLimiter     *ratelimit.KeyedLimiter
	chatLimiter    *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler // nil when LINE is not configured
	router         *gin.Engine
	server         *http.Server
	wg             sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:            cfg.LogLevel,
		Writer:           os.Stdout,
		BetterStackToken: cfg.BetterStackToken,
	})
	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls pick up request and chat IDs through the
	// context handler.
	slog.SetDefault(log.Logger)

	log.WithField("release", buildinfo.Release()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.Info("Better Stack logging enabled")
	}

	sentryCfg := sentry.Config{
		DSN:         cfg.SentryDSN,
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.Environment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.SentrySampleRate,
	}
	if err := sentry.Initialize(sentryCfg); err != nil {
		log.WithError(err).Warn("Error reporting disabled")
	} else if sentryCfg.Enabled() {
		log.Info("Error reporting enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Turn log connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	app := &Application{
		cfg:      cfg,
		logger:   log,
		db:       db,
		metrics:  m,
		registry: registry,
	}

	app.dialogue, err = NewDialogue(ctx, cfg, log, m, app.recordTurn)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dialogue: %w", err)
	}

	app.apiLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:              "api",
		RequestsPerSecond: cfg.APIRateRPS,
		Burst:             cfg.APIRateBurst,
		DailyLimit:        cfg.APIRateDaily,
		Metrics:           m,
	})
	apiHandler, err := api.NewHandler(app.dialogue.Controller, log, cfg.RequestTimeout)
	if err != nil {
		app.closeResources(ctx)
		return nil, fmt.Errorf("api: %w", err)
	}

	if cfg.LineEnabled() {
		app.chatLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:              "line_chat",
			RequestsPerSecond: cfg.LineChatRateRPS,
			Burst:             cfg.LineChatRateBurst,
			Metrics:           m,
		})
		app.webhookHandler, err = webhook.NewHandler(webhook.HandlerConfig{
			ChannelSecret: cfg.LineChannelSecret,
			ChannelToken:  cfg.LineChannelToken,
			Dialogue:      app.dialogue.Controller,
			Conversations: webhook.NewConversations(webhook.ConversationConfig{
				MaxChats: cfg.LineMaxConversations,
				IdleTTL:  cfg.LineConversationTTL,
				Metrics:  m,
			}),
			ChatLimiter: app.chatLimiter,
			GlobalRPS:   cfg.LineGlobalRateRPS,
			Timeout:     cfg.RequestTimeout,
			Metrics:     m,
			Logger:      log,
		})
		if err != nil {
			app.closeResources(ctx)
			return nil, fmt.Errorf("webhook: %w", err)
		}
		log.Info("LINE channel enabled")
	}

	app.router = app.newRouter(apiHandler)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func (a *Application) newRouter(apiHandler *api.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.serviceInfo)
	router.GET("/healthz", a.livenessCheck)
	router.HEAD("/healthz", a.livenessCheck)
	router.GET("/ready", a.readinessCheck)
	router.HEAD("/ready", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsPassword != "", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	apiHandler.Register(router, ratelimit.Middleware(a.apiLimiter, a.logger))
	if a.webhookHandler != nil {
		router.POST("/callback", a.webhookHandler.Handle)
	}
	return router
}

// recordTurn writes a handled turn to the turn log. Failures are logged and
// never reach the user.
func (a *Application) recordTurn(ctx context.Context, e dialogue.Event) {
	err := a.db.RecordTurn(ctx, storage.Turn{
		RequestID: e.RequestID,
		Code:      e.Code,
		Outcome:   string(e.Outcome),
		Utterance: e.Utterance,
		Records:   e.Records,
		Duration:  e.Duration,
		CreatedAt: time.Now(),
	})
	if err != nil {
		a.logger.WithError(err).WarnContext(ctx, "Failed to record turn")
	}
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT or SIGTERM.
//
// Background jobs are stopped and awaited before anything they use is
// closed.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops accepting requests, lets in-flight requests and webhook
// events finish, then closes resources.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
	}

	a.closeResources(shutdownCtx)
	a.logger.Info("Shutdown complete")
	return nil
}

func (a *Application) closeResources(ctx context.Context) {
	a.logger.Info("Closing resources...")

	if a.dialogue != nil {
		if err := a.dialogue.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "dialogue").Error("Component close error")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	if a.apiLimiter != nil {
		a.apiLimiter.Stop()
	}
	if a.chatLimiter != nil {
		a.chatLimiter.Stop()
	}

	sentry.Flush(2 * time.Second)
	if err := a.logger.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
}
