package scheduler

import (
	"context"
	"fmt"
	"time"

	auditorservice "studio_pipeline_backend/internal/auditor/service"
	"studio_pipeline_backend/internal/email"
	"studio_pipeline_backend/internal/events"
	outcomesrepo "studio_pipeline_backend/internal/outcomes/repository"
	"studio_pipeline_backend/platform/config"
	"studio_pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const followUpScanLimit = 500

type Worker struct {
	server          *asynq.Server
	mux             *asynq.ServeMux
	pool            *pgxpool.Pool
	auditor         *auditorservice.Service
	outcomes        *outcomesrepo.Repository
	bus             events.Bus
	log             *logger.Logger
	sender          email.Sender
	digestRecipient string
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, auditor *auditorservice.Service, bus events.Bus, log *logger.Logger, sender email.Sender, digestRecipient string) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:          server,
		mux:             mux,
		pool:            pool,
		auditor:         auditor,
		outcomes:        outcomesrepo.New(pool),
		bus:             bus,
		log:             log,
		sender:          sender,
		digestRecipient: digestRecipient,
	}

	mux.HandleFunc(TaskAuditSweep, w.handleAuditSweep)
	mux.HandleFunc(TaskAuditRun, w.handleAuditRun)
	mux.HandleFunc(TaskFollowUpScan, w.handleFollowUpScan)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleAuditSweep runs the nightly consistency sweep for every organization
// that has appointment data. A failing organization does not stop the sweep
// for the rest.
func (w *Worker) handleAuditSweep(ctx context.Context, _ *asynq.Task) error {
	orgIDs, err := w.listOrganizationIDs(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, orgID := range orgIDs {
		if _, err := w.auditor.RunFullAudit(ctx, orgID, "scheduled"); err != nil {
			failed++
			w.log.Error("scheduled audit failed", "organization_id", orgID, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("audit sweep: %d of %d organizations failed", failed, len(orgIDs))
	}
	return nil
}

func (w *Worker) handleAuditRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAuditRunPayload(task)
	if err != nil {
		return err
	}

	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	_, err = w.auditor.RunFullAudit(ctx, orgID, "scheduled")
	return err
}

// handleFollowUpScan publishes a due event per open touch and, when a digest
// recipient is configured, mails one summary per organization.
func (w *Worker) handleFollowUpScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpScanPayload(task)
	if err != nil {
		return err
	}

	var orgIDs []uuid.UUID
	if payload.OrganizationID != "" {
		orgID, err := uuid.Parse(payload.OrganizationID)
		if err != nil {
			return err
		}
		orgIDs = []uuid.UUID{orgID}
	} else {
		orgIDs, err = w.listOrganizationIDs(ctx)
		if err != nil {
			return err
		}
	}

	asOf := time.Now()
	for _, orgID := range orgIDs {
		entries, err := w.outcomes.ListDueFollowUps(ctx, orgID, asOf, followUpScanLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			continue
		}

		digest := email.FollowUpDigestData{AsOf: asOf}
		for _, entry := range entries {
			w.bus.Publish(ctx, events.FollowUpDue{
				BaseEvent:      events.NewBaseEvent(),
				EntryID:        entry.ID,
				AppointmentID:  entry.AppointmentID,
				OrganizationID: entry.OrganizationID,
				SubjectName:    entry.SubjectName,
				TouchNumber:    entry.TouchNumber,
				ScheduledDate:  entry.ScheduledDate,
			})
			digest.Entries = append(digest.Entries, email.FollowUpDigestEntry{
				SubjectName:   entry.SubjectName,
				TouchNumber:   entry.TouchNumber,
				TriggerType:   entry.TriggerType,
				ScheduledDate: entry.ScheduledDate,
			})
		}

		if w.sender != nil && w.digestRecipient != "" {
			if err := w.sender.SendFollowUpDigestEmail(ctx, w.digestRecipient, digest); err != nil {
				w.log.Error("follow-up digest delivery failed", "organization_id", orgID, "error", err)
			}
		}
	}
	return nil
}

func (w *Worker) listOrganizationIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := w.pool.Query(ctx, `SELECT DISTINCT organization_id FROM appointments WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
