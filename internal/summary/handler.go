package summary

import (
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Request is the body of POST /summary
type Request struct {
	Messages []string `json:"messages" validate:"max=5000"`
}

// Handler serves transaction summaries
type Handler struct{}

// NewHandler creates a summary handler
func NewHandler() *Handler {
	return &Handler{}
}

// Summarize totals the submitted messages
func (h *Handler) Summarize(c *gin.Context) {
	var req Request
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	s := Summarize(req.Messages)
	logger.WithContext(c.Request.Context()).Debug("summarized transactions",
		zap.Int("messages", s.TransactionsCount),
		zap.Int("months", len(s.MonthlySummary)),
	)
	common.SuccessResponse(c, s)
}

// RegisterRoutes registers summary routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/summary", h.Summarize)
}
