package transport

import (
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/outcomes/repository"
	"studio_pipeline_backend/internal/outcomes/service"
)

// RecordOutcomeRequest is the request body for recording an outcome.
// Result is free text; the orchestrator normalizes it.
type RecordOutcomeRequest struct {
	Result      string              `json:"result" validate:"required,min=1,max=200"`
	RunID       *uuid.UUID          `json:"runId,omitempty"`
	Objection   *string             `json:"objection,omitempty" validate:"omitempty,max=2000"`
	AttemptDate *time.Time          `json:"attemptDate,omitempty"`
	CoachName   *string             `json:"coachName,omitempty" validate:"omitempty,max=200"`
	SourceLabel string              `json:"sourceLabel,omitempty" validate:"omitempty,oneof=form bulk_import admin_correction"`
	Reason      *string             `json:"reason,omitempty" validate:"omitempty,max=2000"`
	SecondVisit *SecondVisitRequest `json:"secondVisit,omitempty"`
}

// SecondVisitRequest is the optional follow-on booking attached to an outcome.
type SecondVisitRequest struct {
	StartAt   time.Time `json:"startAt" validate:"required"`
	CoachName string    `json:"coachName" validate:"required,min=1,max=200"`
}

// SnoozeFollowUpRequest pushes a follow-up entry to a later date.
type SnoozeFollowUpRequest struct {
	Until time.Time `json:"until" validate:"required"`
}

// CompleteFollowUpRequest marks a follow-up entry Sent or Converted.
type CompleteFollowUpRequest struct {
	Converted bool `json:"converted"`
}

// FollowUpQueueQuery is the query parameters for the follow-up queue.
type FollowUpQueueQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

// FollowUpEntryResponse is one follow-up entry.
type FollowUpEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointmentId"`
	LeadID        *uuid.UUID `json:"leadId,omitempty"`
	SubjectName   string     `json:"subjectName"`
	TouchNumber   int        `json:"touchNumber"`
	TriggerType   string     `json:"triggerType"`
	TriggerDate   time.Time  `json:"triggerDate"`
	ScheduledDate time.Time  `json:"scheduledDate"`
	Status        string     `json:"status"`
	SnoozedUntil  *time.Time `json:"snoozedUntil,omitempty"`
	Note          *string    `json:"note,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// AuditEventResponse is one entry in the appointment's outcome trail.
type AuditEventResponse struct {
	ID            uuid.UUID      `json:"id"`
	AppointmentID uuid.UUID      `json:"appointmentId"`
	RunID         *uuid.UUID     `json:"runId,omitempty"`
	OldResult     *string        `json:"oldResult,omitempty"`
	NewResult     string         `json:"newResult"`
	OldStatus     *string        `json:"oldStatus,omitempty"`
	NewStatus     string         `json:"newStatus"`
	Editor        string         `json:"editor"`
	Source        string         `json:"source"`
	Reason        *string        `json:"reason,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// LoyaltyResponse is the studio's running conversion total.
type LoyaltyResponse struct {
	TotalConversions int64 `json:"totalConversions"`
}

func ToFollowUpResponse(e repository.FollowUpEntry) FollowUpEntryResponse {
	return FollowUpEntryResponse{
		ID:            e.ID,
		AppointmentID: e.AppointmentID,
		LeadID:        e.LeadID,
		SubjectName:   e.SubjectName,
		TouchNumber:   e.TouchNumber,
		TriggerType:   e.TriggerType,
		TriggerDate:   e.TriggerDate,
		ScheduledDate: e.ScheduledDate,
		Status:        e.Status,
		SnoozedUntil:  e.SnoozedUntil,
		Note:          e.Note,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func ToFollowUpResponses(entries []repository.FollowUpEntry) []FollowUpEntryResponse {
	out := make([]FollowUpEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToFollowUpResponse(e))
	}
	return out
}

func ToAuditEventResponse(e repository.OutcomeAuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:            e.ID,
		AppointmentID: e.AppointmentID,
		RunID:         e.RunID,
		OldResult:     e.OldResult,
		NewResult:     e.NewResult,
		OldStatus:     e.OldStatus,
		NewStatus:     e.NewStatus,
		Editor:        e.Editor,
		Source:        e.Source,
		Reason:        e.Reason,
		Metadata:      e.Metadata,
		CreatedAt:     e.CreatedAt,
	}
}

func ToAuditEventResponses(events []repository.OutcomeAuditEvent) []AuditEventResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, ToAuditEventResponse(e))
	}
	return out
}

// ToApplyParams converts the request body to orchestrator params.
func (r RecordOutcomeRequest) ToApplyParams(organizationID, appointmentID uuid.UUID, editor string) service.ApplyOutcomeParams {
	params := service.ApplyOutcomeParams{
		OrganizationID: organizationID,
		AppointmentID:  appointmentID,
		RunID:          r.RunID,
		RawResult:      r.Result,
		Objection:      r.Objection,
		AttemptDate:    r.AttemptDate,
		CoachName:      r.CoachName,
		Editor:         editor,
		SourceLabel:    r.SourceLabel,
		Reason:         r.Reason,
	}
	if r.SecondVisit != nil {
		params.SecondVisit = &service.SecondVisitDraft{
			StartAt:   r.SecondVisit.StartAt,
			CoachName: r.SecondVisit.CoachName,
		}
	}
	return params
}
