// Package leads provides the intake queue domain module.
package leads

import (
	"studio_pipeline_backend/internal/events"
	apphttp "studio_pipeline_backend/internal/http"
	"studio_pipeline_backend/internal/leads/handler"
	"studio_pipeline_backend/internal/leads/repository"
	"studio_pipeline_backend/internal/leads/service"
	"studio_pipeline_backend/platform/logger"
	"studio_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the leads domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Repo    *repository.Repository
}

// NewModule creates a new leads module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
		Repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes registers the module's routes under /api/v1/leads
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leads)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
