package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskAuditSweep fans a consistency sweep out to every organization.
const TaskAuditSweep = "audit:sweep"

// TaskAuditRun sweeps a single organization.
const TaskAuditRun = "audit:run"

// TaskFollowUpScan publishes due-touch events for the follow-up queue.
const TaskFollowUpScan = "followups:scan"

type AuditRunPayload struct {
	OrganizationID string `json:"organizationId"`
}

type FollowUpScanPayload struct {
	OrganizationID string `json:"organizationId"`
}

func NewAuditSweepTask() *asynq.Task {
	return asynq.NewTask(TaskAuditSweep, nil)
}

func NewAuditRunTask(payload AuditRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRun, data), nil
}

func ParseAuditRunPayload(task *asynq.Task) (AuditRunPayload, error) {
	var payload AuditRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AuditRunPayload{}, err
	}
	return payload, nil
}

func NewFollowUpScanTask() *asynq.Task {
	return asynq.NewTask(TaskFollowUpScan, nil)
}

func NewFollowUpScanTaskFor(payload FollowUpScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpScan, data), nil
}

func ParseFollowUpScanPayload(task *asynq.Task) (FollowUpScanPayload, error) {
	if len(task.Payload()) == 0 {
		return FollowUpScanPayload{}, nil
	}
	var payload FollowUpScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpScanPayload{}, err
	}
	return payload, nil
}
