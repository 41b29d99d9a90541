package handler

import (
	"net/http"

	"studio_pipeline_backend/internal/outcomes/service"
	"studio_pipeline_backend/internal/outcomes/transport"
	"studio_pipeline_backend/platform/httpkit"
	"studio_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for outcomes and the follow-up queue
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new outcomes handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
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

// RegisterRoutes registers the outcome routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/appointments/:id/outcome", h.RecordOutcome)
	rg.GET("/appointments/:id/trail", h.GetAuditTrail)
	rg.GET("/appointments/:id/follow-ups", h.ListFollowUps)

	rg.GET("/follow-ups/queue", h.FollowUpQueue)
	rg.PATCH("/follow-ups/:id/snooze", h.SnoozeFollowUp)
	rg.PATCH("/follow-ups/:id/complete", h.CompleteFollowUp)

	rg.GET("/loyalty", h.GetLoyalty)
}

// RecordOutcome handles POST /api/v1/outcomes/appointments/:id/outcome
func (h *Handler) RecordOutcome(c *gin.Context) {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.ApplyOutcome(c.Request.Context(), req.ToApplyParams(tenantID, appointmentID, identity.UserID().String()))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetAuditTrail handles GET /api/v1/outcomes/appointments/:id/trail
func (h *Handler) GetAuditTrail(c *gin.Context) {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	trail, err := h.svc.AuditTrail(c.Request.Context(), appointmentID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAuditEventResponses(trail))
}

// ListFollowUps handles GET /api/v1/outcomes/appointments/:id/follow-ups
func (h *Handler) ListFollowUps(c *gin.Context) {
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	entries, err := h.svc.FollowUpsForAppointment(c.Request.Context(), appointmentID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToFollowUpResponses(entries))
}

// FollowUpQueue handles GET /api/v1/outcomes/follow-ups/queue
func (h *Handler) FollowUpQueue(c *gin.Context) {
	var req transport.FollowUpQueueQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	entries, err := h.svc.FollowUpQueue(c.Request.Context(), tenantID, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToFollowUpResponses(entries))
}

// SnoozeFollowUp handles PATCH /api/v1/outcomes/follow-ups/:id/snooze
func (h *Handler) SnoozeFollowUp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SnoozeFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	entry, err := h.svc.SnoozeFollowUp(c.Request.Context(), id, tenantID, req.Until, identity.UserID().String())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToFollowUpResponse(entry))
}

// CompleteFollowUp handles PATCH /api/v1/outcomes/follow-ups/:id/complete
func (h *Handler) CompleteFollowUp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CompleteFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	entry, err := h.svc.CompleteFollowUp(c.Request.Context(), id, tenantID, req.Converted, identity.UserID().String())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToFollowUpResponse(entry))
}

// GetLoyalty handles GET /api/v1/outcomes/loyalty
func (h *Handler) GetLoyalty(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	total, err := h.svc.LoyaltyCount(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LoyaltyResponse{TotalConversions: total})
}
