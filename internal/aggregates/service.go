package aggregates

import (
	"context"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/validation"
)

const (
	defaultDashboardDays = 7
	maxDashboardDays     = 90
	recentAlertCount     = 5
)

// Dashboard is the global view served to operators
type Dashboard struct {
	Rollup       *GlobalRollup   `json:"rollup"`
	RecentAlerts []*alerts.Alert `json:"recent_alerts"`
}

// Service is the read side of the rollups
type Service struct {
	rollups RepositoryInterface
	alerts  alerts.RepositoryInterface
}

// NewService creates a rollup read service
func NewService(rollups RepositoryInterface, alertRepo alerts.RepositoryInterface) *Service {
	return &Service{rollups: rollups, alerts: alertRepo}
}

// GetUserRollup returns one user's counters
func (s *Service) GetUserRollup(ctx context.Context, userID string) (*UserRollup, error) {
	if !validation.IsValidUserID(userID) {
		return nil, common.NewBadRequestError("invalid user id", nil)
	}
	rollup, err := s.rollups.GetUserRollup(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError("failed to load user rollup", err)
	}
	return rollup, nil
}

// GetDashboard returns global counters, day buckets and the newest alerts
func (s *Service) GetDashboard(ctx context.Context, days int) (*Dashboard, error) {
	if days <= 0 {
		days = defaultDashboardDays
	}
	if days > maxDashboardDays {
		days = maxDashboardDays
	}

	rollup, err := s.rollups.GetGlobalRollup(ctx, days)
	if err != nil {
		return nil, common.NewInternalError("failed to load dashboard", err)
	}

	recent, _, err := s.alerts.List(ctx, alerts.Filter{}, recentAlertCount, 0)
	if err != nil {
		return nil, common.NewInternalError("failed to load recent alerts", err)
	}
	if recent == nil {
		recent = []*alerts.Alert{}
	}

	return &Dashboard{Rollup: rollup, RecentAlerts: recent}, nil
}
