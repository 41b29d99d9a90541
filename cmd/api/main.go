package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio_pipeline_backend/internal/adapters"
	"studio_pipeline_backend/internal/appointments"
	"studio_pipeline_backend/internal/auditor"
	auditorservice "studio_pipeline_backend/internal/auditor/service"
	"studio_pipeline_backend/internal/email"
	"studio_pipeline_backend/internal/events"
	apphttp "studio_pipeline_backend/internal/http"
	"studio_pipeline_backend/internal/http/router"
	"studio_pipeline_backend/internal/leads"
	"studio_pipeline_backend/internal/outcomes"
	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/platform/config"
	"studio_pipeline_backend/platform/db"
	"studio_pipeline_backend/platform/logger"
	"studio_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)

	// Outcome policy: commission tiers, cadences, source rules
	policy, err := domain.LoadPolicy(cfg.GetOutcomePolicyPath())
	if err != nil {
		log.Error("failed to load outcome policy", "error", err)
		panic("failed to load outcome policy: " + err.Error())
	}
	log.Info("outcome policy loaded", "version", policy.Version)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, log, val)

	leadMarker := adapters.NewAppointmentsLeadMarker(leadsModule.Service)
	appointmentsModule := appointments.NewModule(pool, leadMarker, eventBus, log, val)

	outcomesModule := outcomes.NewModule(pool, policy, eventBus, log, val)

	var digest auditorservice.DigestSender
	if cfg.GetAuditDigestRecipient() != "" {
		digest = adapters.NewAuditorDigestSender(sender, cfg.GetAuditDigestRecipient())
	}
	auditorModule := auditor.NewModule(pool, policy, eventBus, log, digest, cfg.GetAuditRunRetention())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			appointmentsModule,
			outcomesModule,
			auditorModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
