package handler

import (
	"net/http"
	"strconv"

	"studio_pipeline_backend/internal/auditor/service"
	"studio_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for the consistency auditor
type Handler struct {
	svc *service.Service
}

// New creates a new auditor handler
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the audit routes. The fix endpoint additionally
// sits behind the admin token guard; the group wiring is done in module.go.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminRG *gin.RouterGroup) {
	rg.POST("/run", h.RunAudit)
	rg.GET("/runs", h.ListRuns)
	adminRG.POST("/fix/:action", h.RunFix)
}

// mustGetTenantID extracts the organization ID from identity.
func mustGetTenantID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return *tenantID, true
}

// RunAudit handles POST /api/v1/audit/run
func (h *Handler) RunAudit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	run, err := h.svc.RunFullAudit(c.Request.Context(), tenantID, "manual")
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, run)
}

// ListRuns handles GET /api/v1/audit/runs
func (h *Handler) ListRuns(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		limit = parsed
	}

	runs, err := h.svc.History(c.Request.Context(), tenantID, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, runs)
}

// RunFix handles POST /api/v1/admin/audit/fix/:action
func (h *Handler) RunFix(c *gin.Context) {
	action := c.Param("action")

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	fix, err := h.svc.RunFix(c.Request.Context(), tenantID, action, identity.UserID().String())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, fix)
}
