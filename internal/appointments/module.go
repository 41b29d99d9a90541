// Package appointments provides the intro-visit booking domain module.
package appointments

import (
	"studio_pipeline_backend/internal/appointments/handler"
	"studio_pipeline_backend/internal/appointments/repository"
	"studio_pipeline_backend/internal/appointments/service"
	"studio_pipeline_backend/internal/events"
	apphttp "studio_pipeline_backend/internal/http"
	"studio_pipeline_backend/platform/logger"
	"studio_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Repo    *repository.Repository
}

// NewModule creates a new appointments module with all dependencies wired.
// leads may be nil when no intake context is mounted.
func NewModule(pool *pgxpool.Pool, leads service.LeadMarker, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, leads, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
		Repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/v1/appointments
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appointments := ctx.Protected.Group("/appointments")
	m.handler.RegisterRoutes(appointments)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
