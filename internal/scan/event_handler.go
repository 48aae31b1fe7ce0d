package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/eventbus"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"go.uber.org/zap"
)

const (
	eventSource     = "finsight-scan"
	scanWorkerGroup = "scan-workers"

	// busyRetryDelay spaces redeliveries so MaxDeliver attempts outlast a running scan.
	busyRetryDelay  = time.Minute
	storeRetryDelay = 15 * time.Second
)

// Subscriber is the consuming side of the bus
type Subscriber interface {
	Subscribe(ctx context.Context, subject, durable string, handler eventbus.Handler) error
}

// EventHandler runs scans queued on the bus
type EventHandler struct {
	runner Runner
}

// NewEventHandler creates a scan event handler
func NewEventHandler(runner Runner) *EventHandler {
	return &EventHandler{runner: runner}
}

// RegisterSubscriptions attaches the durable scan consumer
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, sub Subscriber) error {
	if err := sub.Subscribe(ctx, eventbus.SubjectScanRequested, scanWorkerGroup, h.HandleScanRequested); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventbus.SubjectScanRequested, err)
	}
	return nil
}

// HandleScanRequested runs one queued scan. Returning an error redelivers the
// event, which is used for transient conditions only.
func (h *EventHandler) HandleScanRequested(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.ScanRequestedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		logger.Error("dropping undecodable scan request", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	ctx = logger.ContextWithCorrelationID(ctx, event.ID)
	log := logger.WithContext(ctx).With(zap.String("user_id", data.UserID))

	req := Request{UserID: data.UserID, AccountCreatedAt: data.AccountCreatedAt}
	for _, m := range data.Messages {
		req.Messages = append(req.Messages, RawMessage{Sender: m.Sender, Text: m.Text, ObservedAt: m.ObservedAt})
	}

	result, err := h.runner.Run(ctx, req)
	switch {
	case err == nil:
		log.Info("queued scan finished",
			zap.String("mode", string(result.Mode)),
			zap.Int("analyzed", result.Analyzed),
			zap.Bool("partial", result.Partial),
		)
		return nil
	case errors.Is(err, ErrInvalidUserID):
		log.Warn("dropping scan request for invalid user")
		return nil
	case errors.Is(err, ErrScanInProgress):
		log.Info("scan already running for user, deferring queued scan", zap.Duration("delay", busyRetryDelay))
		return eventbus.RetryAfter(err, busyRetryDelay)
	case errors.Is(err, ErrStoreUnavailable):
		log.Warn("queued scan deferred", zap.Error(err), zap.Duration("delay", storeRetryDelay))
		return eventbus.RetryAfter(err, storeRetryDelay)
	default:
		log.Error("queued scan failed", zap.Error(err))
		return err
	}
}
