package scan

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/scanstate"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/eventbus"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/middleware"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner executes scans
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// StateReader reads scan bookkeeping
type StateReader interface {
	Get(ctx context.Context, userID string) (*scanstate.ScanState, error)
}

// ScanRequest is the body of POST /users/:user_id/scans. Messages are loosely
// shaped and normalized before the scan runs.
type ScanRequest struct {
	Messages         []map[string]interface{} `json:"messages" validate:"max=5000"`
	AccountCreatedAt *time.Time               `json:"account_created_at"`
}

// Handler serves scan endpoints
type Handler struct {
	runner    Runner
	states    StateReader
	publisher eventbus.Publisher
}

// NewHandler creates a scan handler. publisher may be nil, which disables async scans.
func NewHandler(runner Runner, states StateReader, publisher eventbus.Publisher) *Handler {
	return &Handler{runner: runner, states: states, publisher: publisher}
}

// toAppError maps scan failures onto HTTP errors
func toAppError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrInvalidUserID), errors.Is(err, ErrInvalidMessage):
		return common.NewBadRequestError(err.Error(), err)
	case errors.Is(err, ErrScanInProgress):
		return common.NewConflictError("scan already in progress", err)
	case errors.Is(err, ErrStoreUnavailable):
		return common.NewServiceUnavailableError("scan storage unavailable", err)
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return common.NewInternalError("scan failed", err)
}

// StartScan runs a scan, or queues it when async=true
func (h *Handler) StartScan(c *gin.Context) {
	userID := c.Param("user_id")
	if !validation.IsValidUserID(userID) {
		common.AppErrorResponse(c, toAppError(ErrInvalidUserID))
		return
	}

	var body ScanRequest
	if !middleware.ValidateAndBind(c, &body) {
		return
	}

	messages, err := NormalizeMessages(body.Messages)
	if err != nil {
		common.AppErrorResponse(c, toAppError(err))
		return
	}

	req := Request{UserID: userID, Messages: messages, AccountCreatedAt: body.AccountCreatedAt}

	if c.Query("async") == "true" {
		h.enqueue(c, req)
		return
	}

	result, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		appErr := toAppError(err)
		if result != nil {
			appErr = appErr.WithDetails(result)
		}
		if appErr.Code >= http.StatusInternalServerError {
			logger.WithContext(c.Request.Context()).Error("scan failed", zap.String("user_id", userID), zap.Error(err))
		}
		common.AppErrorResponse(c, appErr)
		return
	}

	common.SuccessResponse(c, result)
}

func (h *Handler) enqueue(c *gin.Context, req Request) {
	if h.publisher == nil {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "asynchronous scans are not enabled")
		return
	}

	data := eventbus.ScanRequestedData{
		UserID:           req.UserID,
		Messages:         make([]eventbus.ScanMessage, len(req.Messages)),
		AccountCreatedAt: req.AccountCreatedAt,
		RequestedAt:      time.Now().UTC(),
	}
	for i, m := range req.Messages {
		data.Messages[i] = eventbus.ScanMessage{Sender: m.Sender, Text: m.Text, ObservedAt: m.ObservedAt}
	}

	event, err := eventbus.NewEvent(eventbus.EventScanRequested, eventSource, data)
	if err == nil {
		err = h.publisher.Publish(c.Request.Context(), eventbus.SubjectScanRequested, event)
	}
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to queue scan", zap.String("user_id", req.UserID), zap.Error(err))
		common.AppErrorResponse(c, common.NewServiceUnavailableError("failed to queue scan", err))
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusAccepted, gin.H{
		"event_id": event.ID,
		"user_id":  req.UserID,
		"status":   "queued",
		"messages": len(req.Messages),
	})
}

// GetScanState returns a user's scan bookkeeping
func (h *Handler) GetScanState(c *gin.Context) {
	userID := c.Param("user_id")
	if !validation.IsValidUserID(userID) {
		common.AppErrorResponse(c, toAppError(ErrInvalidUserID))
		return
	}

	state, err := h.states.Get(c.Request.Context(), userID)
	if err != nil {
		common.AppErrorResponse(c, common.NewServiceUnavailableError("scan storage unavailable", err))
		return
	}
	common.SuccessResponse(c, state)
}

// RegisterRoutes registers scan routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/users/:user_id/scans", h.StartScan)
	rg.GET("/users/:user_id/scan-state", h.GetScanState)
}
