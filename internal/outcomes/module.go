// Package outcomes provides the outcome orchestration domain module.
package outcomes

import (
	"studio_pipeline_backend/internal/events"
	apphttp "studio_pipeline_backend/internal/http"
	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/internal/outcomes/handler"
	"studio_pipeline_backend/internal/outcomes/repository"
	"studio_pipeline_backend/internal/outcomes/service"
	"studio_pipeline_backend/platform/logger"
	"studio_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the outcomes domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Repo    *repository.Repository
}

// NewModule creates a new outcomes module with all dependencies wired
func NewModule(pool *pgxpool.Pool, policy domain.Policy, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, policy, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
		Repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "outcomes"
}

// RegisterRoutes registers the module's routes under /api/v1/outcomes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	outcomes := ctx.Protected.Group("/outcomes")
	m.handler.RegisterRoutes(outcomes)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
