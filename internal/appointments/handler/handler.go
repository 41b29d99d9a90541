package handler

import (
	"context"
	"net/http"

	"studio_pipeline_backend/internal/appointments/repository"
	"studio_pipeline_backend/internal/appointments/service"
	"studio_pipeline_backend/internal/appointments/transport"
	"studio_pipeline_backend/platform/httpkit"
	"studio_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for appointment bookings
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new appointments handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func mustGetTenantID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return *tenantID, true
}

// RegisterRoutes registers the appointment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.PATCH("/:id/flags", h.SetFlags)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/reactivate", h.Reactivate)
	rg.DELETE("/:id", h.Delete)
}

// Create handles POST /api/v1/appointments
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAppointmentRequest
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

	appt, err := h.svc.Create(c.Request.Context(), req.ToCreateParams(tenantID, identity.UserID().String()))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAppointmentResponse(appt))
}

// List handles GET /api/v1/appointments
func (h *Handler) List(c *gin.Context) {
	var req transport.ListQuery
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

	appts, total, err := h.svc.List(c.Request.Context(), tenantID, req.ToFilter())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToListResponse(appts, total))
}

// Get handles GET /api/v1/appointments/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
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

	appt, err := h.svc.Get(c.Request.Context(), id, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(appt))
}

// Update handles PATCH /api/v1/appointments/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateAppointmentRequest
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

	appt, err := h.svc.Update(c.Request.Context(), id, tenantID, req.ToUpdateParams(identity.UserID().String()))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(appt))
}

// SetFlags handles PATCH /api/v1/appointments/:id/flags
func (h *Handler) SetFlags(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SetFlagsRequest
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

	appt, err := h.svc.SetFlags(c.Request.Context(), id, tenantID, repositoryFlagParams(req, identity.UserID().String()))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(appt))
}

// Cancel handles POST /api/v1/appointments/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.statusChange(c, h.svc.Cancel)
}

// Reactivate handles POST /api/v1/appointments/:id/reactivate
func (h *Handler) Reactivate(c *gin.Context) {
	h.statusChange(c, h.svc.Reactivate)
}

type statusChangeFn func(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, editor string, reason *string) (repository.Appointment, error)

func (h *Handler) statusChange(c *gin.Context, fn statusChangeFn) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
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

	appt, err := fn(c.Request.Context(), id, tenantID, identity.UserID().String(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(appt))
}

func repositoryFlagParams(req transport.SetFlagsRequest, editor string) repository.FlagParams {
	return repository.FlagParams{
		IsVIP:         req.IsVIP,
		IsComp:        req.IsComp,
		IgnoreMetrics: req.IgnoreMetrics,
		Editor:        editor,
	}
}

// Delete handles DELETE /api/v1/appointments/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
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

	if err := h.svc.Delete(c.Request.Context(), id, tenantID, identity.UserID().String()); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}
