package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"studio_pipeline_backend/platform/config"
	"studio_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAuditRun queues an on-demand sweep for one organization.
func (c *Client) EnqueueAuditRun(ctx context.Context, organizationID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewAuditRunTask(AuditRunPayload{OrganizationID: organizationID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// EnqueueFollowUpScan queues an immediate due-touch scan.
func (c *Client) EnqueueFollowUpScan(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	_, err := c.client.EnqueueContext(ctx, NewFollowUpScanTask(), asynq.Queue(c.queue))
	return err
}

// PeriodicScheduler registers the recurring sweeps with asynq. The nightly
// audit and the morning follow-up scan run on cron specs from config.
type PeriodicScheduler struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodicScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*PeriodicScheduler, error) {
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

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	if _, err := scheduler.Register(cfg.GetAuditCronSpec(), NewAuditSweepTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register audit sweep: %w", err)
	}
	if _, err := scheduler.Register(cfg.GetFollowUpCronSpec(), NewFollowUpScanTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register follow-up scan: %w", err)
	}

	return &PeriodicScheduler{scheduler: scheduler, log: log}, nil
}

func (p *PeriodicScheduler) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
