package alerts

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/middleware"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ServiceInterface is what the handler needs from the alert service
type ServiceInterface interface {
	ListAlerts(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Alert, error)
}

// UpdateStatusRequest is the body of PATCH /alerts/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,alert_status"`
}

// Handler serves the alert feed
type Handler struct {
	service ServiceInterface
}

// NewHandler creates an alert handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

// ListAlerts lists the feed with optional severity and status filters
func (h *Handler) ListAlerts(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := Filter{
		UserID:   c.Query("user_id"),
		Severity: Severity(c.Query("severity")),
		Status:   Status(c.Query("status")),
	}

	alerts, total, err := h.service.ListAlerts(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list alerts")
		return
	}

	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// UpdateStatus sets an alert's status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert id")
		return
	}

	var req UpdateStatusRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	alert, err := h.service.UpdateStatus(c.Request.Context(), id, Status(req.Status))
	if err != nil {
		respondError(c, err, "failed to update alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// RegisterRoutes registers alert routes. /alerts/nearby is owned by the geo handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/alerts", h.ListAlerts)
	rg.PATCH("/alerts/:id/status", h.UpdateStatus)
}
