package alerts

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface stores the alert feed
type RepositoryInterface interface {
	// CreateIfAbsent inserts a unless an alert already exists for a.MessageID.
	// It returns the stored alert and whether this call created it.
	CreateIfAbsent(ctx context.Context, a *Alert) (*Alert, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*Alert, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error)
	// ListLocated returns every alert that has coordinates.
	ListLocated(ctx context.Context) ([]*Alert, error)
	// ListByUser returns all of a user's alerts, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Alert, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Alert, error)
}
