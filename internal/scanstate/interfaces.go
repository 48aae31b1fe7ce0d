package scanstate

import (
	"context"
	"time"
)

// RepositoryInterface persists scan state
type RepositoryInterface interface {
	// Get returns the user's state, creating a fresh record on first access.
	Get(ctx context.Context, userID string) (*ScanState, error)
	// CompleteScan records a successful scan that started at `at`.
	CompleteScan(ctx context.Context, userID string, at time.Time) (*ScanState, error)
	// Reset forgets past scans so the next one runs in initial mode.
	Reset(ctx context.Context, userID string, accountCreatedAt *time.Time) (*ScanState, error)
}
