// Package transport defines the request and response shapes for the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/leads/repository"
	"studio_pipeline_backend/internal/leads/service"
)

type CreateLeadRequest struct {
	Name   string  `json:"name" validate:"required,min=1,max=200"`
	Phone  *string `json:"phone" validate:"omitempty,max=32"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Source *string `json:"source" validate:"omitempty,max=100"`
	IsVIP  bool    `json:"isVip"`
}

func (r CreateLeadRequest) ToCreateParams(organizationID uuid.UUID, editor string) service.CreateParams {
	return service.CreateParams{
		OrganizationID: organizationID,
		Name:           r.Name,
		Phone:          r.Phone,
		Email:          r.Email,
		Source:         r.Source,
		IsVIP:          r.IsVIP,
		Editor:         editor,
	}
}

type ListQuery struct {
	IntakeStatus *string `form:"intakeStatus" validate:"omitempty,oneof=new booked closed"`
	Limit        int     `form:"limit"`
	Offset       int     `form:"offset"`
}

type LeadResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Source       *string   `json:"source,omitempty"`
	IntakeStatus string    `json:"intakeStatus"`
	IsVIP        bool      `json:"isVip"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:           l.ID,
		Name:         l.Name,
		Phone:        l.Phone,
		Email:        l.Email,
		Source:       l.Source,
		IntakeStatus: l.IntakeStatus,
		IsVIP:        l.IsVIP,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

type ListResponse struct {
	Leads []LeadResponse `json:"leads"`
	Total int            `json:"total"`
}

func ToListResponse(leads []repository.Lead, total int) ListResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, ToLeadResponse(l))
	}
	return ListResponse{Leads: out, Total: total}
}
