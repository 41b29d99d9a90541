// Package auditor provides the consistency auditor domain module.
package auditor

import (
	"studio_pipeline_backend/internal/auditor/handler"
	"studio_pipeline_backend/internal/auditor/repository"
	"studio_pipeline_backend/internal/auditor/service"
	"studio_pipeline_backend/internal/events"
	apphttp "studio_pipeline_backend/internal/http"
	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the auditor domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new auditor module with all dependencies wired.
// digest may be nil when email delivery is disabled.
func NewModule(pool *pgxpool.Pool, policy domain.Policy, bus events.Bus, log *logger.Logger, digest service.DigestSender, retention int) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, policy, bus, log, digest, retention)
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "auditor"
}

// RegisterRoutes registers the module's routes. Sweeps and history live
// under /api/v1/audit; fixes under /api/v1/admin/audit behind the admin
// token guard.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	audit := ctx.Protected.Group("/audit")
	adminAudit := ctx.Admin.Group("/audit")
	m.handler.RegisterRoutes(audit, adminAudit)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
