package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string         { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool   { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string   { return "pipeline" }
func (c testSchedulerConfig) GetAsynqConcurrency() int    { return 1 }
func (c testSchedulerConfig) GetAuditCronSpec() string    { return "0 2 * * *" }
func (c testSchedulerConfig) GetFollowUpCronSpec() string { return "0 7 * * *" }

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestClientEnqueuesAuditRun(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueAuditRun(context.Background(), "7c3e9f1a-2b4d-4c8e-9f0a-1b2c3d4e5f60"); err != nil {
		t.Fatalf("EnqueueAuditRun: %v", err)
	}

	if len(srv.Keys()) == 0 {
		t.Fatal("expected task keys in redis after enqueue")
	}
}

func TestClientEnqueuesFollowUpScan(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueFollowUpScan(context.Background()); err != nil {
		t.Fatalf("EnqueueFollowUpScan: %v", err)
	}

	if len(srv.Keys()) == 0 {
		t.Fatal("expected task keys in redis after enqueue")
	}
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewAuditRunTask(AuditRunPayload{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("NewAuditRunTask: %v", err)
	}
	payload, err := ParseAuditRunPayload(task)
	if err != nil {
		t.Fatalf("ParseAuditRunPayload: %v", err)
	}
	if payload.OrganizationID != "org-1" {
		t.Fatalf("expected org-1, got %q", payload.OrganizationID)
	}

	// A bare follow-up scan carries no payload and parses to the zero value.
	scan, err := ParseFollowUpScanPayload(NewFollowUpScanTask())
	if err != nil {
		t.Fatalf("ParseFollowUpScanPayload: %v", err)
	}
	if scan.OrganizationID != "" {
		t.Fatalf("expected empty organization, got %q", scan.OrganizationID)
	}
}
