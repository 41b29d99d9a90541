package adapters

import (
	"context"

	"studio_pipeline_backend/internal/leads/service"

	"github.com/google/uuid"
)

// AppointmentsLeadMarker adapts the leads service for appointment booking
// linkage. It implements the appointments service.LeadMarker interface.
type AppointmentsLeadMarker struct {
	leads *service.Service
}

func NewAppointmentsLeadMarker(leads *service.Service) *AppointmentsLeadMarker {
	return &AppointmentsLeadMarker{leads: leads}
}

func (a *AppointmentsLeadMarker) MarkBooked(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, editor string) error {
	return a.leads.MarkBooked(ctx, leadID, organizationID, editor)
}
