package ledger

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/pagination"
	"github.com/gin-gonic/gin"
)

// Lister is what the handler needs from the service
type Lister interface {
	ListUserMessages(ctx context.Context, userID string, limit, offset int) ([]*ClassifiedMessage, int64, error)
}

// Handler serves the message history
type Handler struct {
	service Lister
}

// NewHandler creates a ledger handler
func NewHandler(service Lister) *Handler {
	return &Handler{service: service}
}

// ListMessages returns a user's classified messages
func (h *Handler) ListMessages(c *gin.Context) {
	params := pagination.ParseParams(c)

	messages, total, err := h.service.ListUserMessages(c.Request.Context(), c.Param("user_id"), params.Limit, params.Offset)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list messages")
		return
	}

	common.SuccessResponseWithMeta(c, messages, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// RegisterRoutes registers ledger routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:user_id/messages", h.ListMessages)
}
