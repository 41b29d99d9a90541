// Package transport defines the request and response shapes for the
// appointments API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/appointments/repository"
	"studio_pipeline_backend/internal/appointments/service"
)

type CreateAppointmentRequest struct {
	LeadID       *uuid.UUID `json:"leadId"`
	SubjectName  string     `json:"subjectName" validate:"required,min=1,max=200"`
	SubjectPhone *string    `json:"subjectPhone" validate:"omitempty,max=32"`
	SubjectEmail *string    `json:"subjectEmail" validate:"omitempty,email"`
	StartAt      time.Time  `json:"startAt" validate:"required"`
	LeadSource   *string    `json:"leadSource" validate:"omitempty,max=100"`
	BookedBy     *string    `json:"bookedBy" validate:"omitempty,max=100"`
	Owner        *string    `json:"owner" validate:"omitempty,max=100"`
	IsVIP        bool       `json:"isVip"`
}

func (r CreateAppointmentRequest) ToCreateParams(organizationID uuid.UUID, editor string) service.CreateParams {
	return service.CreateParams{
		OrganizationID: organizationID,
		LeadID:         r.LeadID,
		SubjectName:    r.SubjectName,
		SubjectPhone:   r.SubjectPhone,
		SubjectEmail:   r.SubjectEmail,
		StartAt:        r.StartAt,
		LeadSource:     r.LeadSource,
		BookedBy:       r.BookedBy,
		Owner:          r.Owner,
		IsVIP:          r.IsVIP,
		Editor:         editor,
	}
}

type UpdateAppointmentRequest struct {
	SubjectName  *string    `json:"subjectName" validate:"omitempty,min=1,max=200"`
	SubjectPhone *string    `json:"subjectPhone" validate:"omitempty,max=32"`
	SubjectEmail *string    `json:"subjectEmail" validate:"omitempty,email"`
	StartAt      *time.Time `json:"startAt"`
	LeadSource   *string    `json:"leadSource" validate:"omitempty,max=100"`
	Owner        *string    `json:"owner" validate:"omitempty,max=100"`
	Reason       *string    `json:"reason" validate:"omitempty,max=500"`
}

func (r UpdateAppointmentRequest) ToUpdateParams(editor string) service.UpdateParams {
	return service.UpdateParams{
		SubjectName:  r.SubjectName,
		SubjectPhone: r.SubjectPhone,
		SubjectEmail: r.SubjectEmail,
		StartAt:      r.StartAt,
		LeadSource:   r.LeadSource,
		Owner:        r.Owner,
		Editor:       editor,
		Reason:       r.Reason,
	}
}

type SetFlagsRequest struct {
	IsVIP         *bool `json:"isVip"`
	IsComp        *bool `json:"isComp"`
	IgnoreMetrics *bool `json:"ignoreMetrics"`
}

type StatusChangeRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type ListQuery struct {
	Status    *string    `form:"status"`
	Owner     *string    `form:"owner"`
	StartFrom *time.Time `form:"startFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	StartTo   *time.Time `form:"startTo" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int        `form:"limit"`
	Offset    int        `form:"offset"`
}

func (q ListQuery) ToFilter() repository.ListFilter {
	return repository.ListFilter{
		Status:    q.Status,
		Owner:     q.Owner,
		StartFrom: q.StartFrom,
		StartTo:   q.StartTo,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
}

type AppointmentResponse struct {
	ID                       uuid.UUID  `json:"id"`
	LeadID                   *uuid.UUID `json:"leadId,omitempty"`
	SubjectName              string     `json:"subjectName"`
	SubjectPhone             *string    `json:"subjectPhone,omitempty"`
	SubjectEmail             *string    `json:"subjectEmail,omitempty"`
	StartAt                  time.Time  `json:"startAt"`
	Status                   string     `json:"status"`
	LeadSource               *string    `json:"leadSource,omitempty"`
	BookedBy                 *string    `json:"bookedBy,omitempty"`
	Owner                    *string    `json:"owner,omitempty"`
	IsVIP                    bool       `json:"isVip"`
	IsComp                   bool       `json:"isComp"`
	IgnoreMetrics            bool       `json:"ignoreMetrics"`
	OriginatingAppointmentID *uuid.UUID `json:"originatingAppointmentId,omitempty"`
	ClosedAt                 *time.Time `json:"closedAt,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

func ToAppointmentResponse(a repository.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                       a.ID,
		LeadID:                   a.LeadID,
		SubjectName:              a.SubjectName,
		SubjectPhone:             a.SubjectPhone,
		SubjectEmail:             a.SubjectEmail,
		StartAt:                  a.StartAt,
		Status:                   a.Status,
		LeadSource:               a.LeadSource,
		BookedBy:                 a.BookedBy,
		Owner:                    a.Owner,
		IsVIP:                    a.IsVIP,
		IsComp:                   a.IsComp,
		IgnoreMetrics:            a.IgnoreMetrics,
		OriginatingAppointmentID: a.OriginatingAppointmentID,
		ClosedAt:                 a.ClosedAt,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
	}
}

type ListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

func ToListResponse(appts []repository.Appointment, total int) ListResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, ToAppointmentResponse(a))
	}
	return ListResponse{Appointments: out, Total: total}
}
