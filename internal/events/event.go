// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"studio_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Source         string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadIntakeStatusChanged is published when a lead moves between intake
// statuses (new, booked, closed).
type LeadIntakeStatusChanged struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
}

func (e LeadIntakeStatusChanged) EventName() string { return "leads.intake.status_changed" }

// =============================================================================
// Appointments Domain Events
// =============================================================================

// AppointmentCreated is published when an intro visit is booked.
type AppointmentCreated struct {
	BaseEvent
	AppointmentID  uuid.UUID  `json:"appointmentId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	SubjectName    string     `json:"subjectName"`
	StartAt        time.Time  `json:"startAt"`
	LeadSource     string     `json:"leadSource,omitempty"`
	BookedBy       string     `json:"bookedBy,omitempty"`
}

func (e AppointmentCreated) EventName() string { return "appointments.created" }

// AppointmentStatusChanged is published when an appointment's lifecycle
// status changes, whether by direct edit or by an outcome being applied.
type AppointmentStatusChanged struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
	Editor         string    `json:"editor"`
}

func (e AppointmentStatusChanged) EventName() string { return "appointments.status.changed" }

// AppointmentDeleted is published when an appointment is soft deleted.
type AppointmentDeleted struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Editor         string    `json:"editor"`
}

func (e AppointmentDeleted) EventName() string { return "appointments.deleted" }

// =============================================================================
// Outcomes Domain Events
// =============================================================================

// OutcomeRecorded is published after the orchestrator commits the
// authoritative run and appointment writes for an outcome call.
type OutcomeRecorded struct {
	BaseEvent
	RunID          uuid.UUID `json:"runId"`
	AppointmentID  uuid.UUID `json:"appointmentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	OldResult      string    `json:"oldResult,omitempty"`
	NewResult      string    `json:"newResult"`
	NewStatus      string    `json:"newStatus"`
	Editor         string    `json:"editor"`
}

func (e OutcomeRecorded) EventName() string { return "outcomes.recorded" }

// FollowUpBatchReplaced is published when an outcome regenerates the open
// follow-up cadence for an appointment.
type FollowUpBatchReplaced struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	TriggerType    string    `json:"triggerType"`
	EntryCount     int       `json:"entryCount"`
}

func (e FollowUpBatchReplaced) EventName() string { return "outcomes.followups.replaced" }

// FollowUpDue is published by the scheduler when an open follow-up entry
// reaches its scheduled date.
type FollowUpDue struct {
	BaseEvent
	EntryID        uuid.UUID `json:"entryId"`
	AppointmentID  uuid.UUID `json:"appointmentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	SubjectName    string    `json:"subjectName"`
	TouchNumber    int       `json:"touchNumber"`
	ScheduledDate  time.Time `json:"scheduledDate"`
}

func (e FollowUpDue) EventName() string { return "outcomes.followup.due" }

// =============================================================================
// Auditor Domain Events
// =============================================================================

// AuditRunCompleted is published when a full consistency sweep finishes.
type AuditRunCompleted struct {
	BaseEvent
	AuditRunID     uuid.UUID `json:"auditRunId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ChecksRun      int       `json:"checksRun"`
	ChecksFailed   int       `json:"checksFailed"`
	FindingCount   int       `json:"findingCount"`
	Trigger        string    `json:"trigger"`
}

func (e AuditRunCompleted) EventName() string { return "auditor.run.completed" }

// AuditFixApplied is published when an operator applies one of the
// whitelisted repair actions.
type AuditFixApplied struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	Action         string    `json:"action"`
	RowsAffected   int       `json:"rowsAffected"`
	Editor         string    `json:"editor"`
}

func (e AuditFixApplied) EventName() string { return "auditor.fix.applied" }
