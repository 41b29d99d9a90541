package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio_pipeline_backend/internal/adapters"
	auditorrepo "studio_pipeline_backend/internal/auditor/repository"
	auditorservice "studio_pipeline_backend/internal/auditor/service"
	"studio_pipeline_backend/internal/email"
	"studio_pipeline_backend/internal/events"
	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/internal/scheduler"
	"studio_pipeline_backend/platform/config"
	"studio_pipeline_backend/platform/db"
	"studio_pipeline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)

	policy, err := domain.LoadPolicy(cfg.GetOutcomePolicyPath())
	if err != nil {
		log.Error("failed to load outcome policy", "error", err)
		panic("failed to load outcome policy: " + err.Error())
	}

	var digest auditorservice.DigestSender
	if cfg.GetAuditDigestRecipient() != "" {
		digest = adapters.NewAuditorDigestSender(sender, cfg.GetAuditDigestRecipient())
	}
	auditorSvc := auditorservice.NewService(auditorrepo.New(pool), policy, eventBus, log, digest, cfg.GetAuditRunRetention())

	periodic, err := scheduler.NewPeriodicScheduler(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, pool, auditorSvc, eventBus, log, sender, cfg.GetAuditDigestRecipient())
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
