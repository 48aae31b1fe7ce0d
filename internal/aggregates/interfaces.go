package aggregates

import (
	"context"
)

// RepositoryInterface stores rollups. Each Apply method is an idempotent
// increment keyed by the delta's message id and reports whether it took effect.
type RepositoryInterface interface {
	ApplyUser(ctx context.Context, d Delta) (bool, error)
	ApplyGlobal(ctx context.Context, d Delta) (bool, error)
	GetUserRollup(ctx context.Context, userID string) (*UserRollup, error)
	// GetGlobalRollup returns totals plus the most recent days buckets, newest first.
	GetGlobalRollup(ctx context.Context, days int) (*GlobalRollup, error)
}
