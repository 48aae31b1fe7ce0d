package aggregates

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/gin-gonic/gin"
)

// ServiceInterface is what the handler needs from the rollup service
type ServiceInterface interface {
	GetUserRollup(ctx context.Context, userID string) (*UserRollup, error)
	GetDashboard(ctx context.Context, days int) (*Dashboard, error)
}

// Handler serves rollups
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a rollup handler
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

// GetUserRollup returns a user's counters
func (h *Handler) GetUserRollup(c *gin.Context) {
	rollup, err := h.service.GetUserRollup(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err, "failed to get rollup")
		return
	}
	common.SuccessResponse(c, rollup)
}

// GetDashboard returns the global dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	days := 0
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	dashboard, err := h.service.GetDashboard(c.Request.Context(), days)
	if err != nil {
		respondError(c, err, "failed to get dashboard")
		return
	}
	common.SuccessResponse(c, dashboard)
}

// RegisterRoutes registers rollup routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:user_id/rollup", h.GetUserRollup)
	rg.GET("/dashboard", h.GetDashboard)
}
