package alerts

import (
	"context"
	"errors"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service exposes the alert feed to operators
type Service struct {
	repo RepositoryInterface
}

// NewService creates an alert service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// ListAlerts returns a page of the feed, newest first
func (s *Service) ListAlerts(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error) {
	if filter.Severity != "" && filter.Severity != SeverityFraud && filter.Severity != SeveritySuspicious {
		return nil, 0, common.NewBadRequestError("severity must be fraud_grade or suspicious_grade", nil)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, common.NewBadRequestError("status must be active, resolved or blocked", nil)
	}

	alerts, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list alerts", err)
	}
	return alerts, total, nil
}

// UpdateStatus flags an alert. Only the status changes.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Alert, error) {
	if !status.Valid() {
		return nil, common.NewBadRequestError("status must be active, resolved or blocked", nil)
	}

	a, err := s.repo.UpdateStatus(ctx, id, status)
	if errors.Is(err, ErrNotFound) {
		return nil, common.NewNotFoundError("alert not found", err)
	}
	if err != nil {
		return nil, common.NewInternalError("failed to update alert", err)
	}

	logger.WithContext(ctx).Info("alert status updated",
		zap.String("alert_id", id.String()),
		zap.String("status", string(status)),
	)
	return a, nil
}
