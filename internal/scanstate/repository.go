package scanstate

import (
	"context"
	"fmt"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/database"
)

const scanStateColumns = `user_id, initial_scan_completed, last_scan_at, total_scans, account_created_at, created_at, updated_at`

// Repository stores scan state in Postgres
type Repository struct {
	db database.DBTX
}

// NewRepository creates a Postgres scan state repository
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanState(scan func(dest ...interface{}) error) (*ScanState, error) {
	s := &ScanState{}
	err := scan(&s.UserID, &s.InitialScanCompleted, &s.LastScanAt, &s.TotalScans, &s.AccountCreatedAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Get returns the state for userID, inserting a default row if none exists
func (r *Repository) Get(ctx context.Context, userID string) (*ScanState, error) {
	query := `
		WITH inserted AS (
			INSERT INTO scan_states (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING ` + scanStateColumns + `
		)
		SELECT ` + scanStateColumns + ` FROM inserted
		UNION ALL
		SELECT ` + scanStateColumns + ` FROM scan_states WHERE user_id = $1
		LIMIT 1`

	state, err := scanState(r.db.QueryRow(ctx, query, userID).Scan)
	if err != nil {
		return nil, fmt.Errorf("get scan state: %w", err)
	}
	return state, nil
}

// CompleteScan marks the initial pass done, bumps the counter and advances
// last_scan_at monotonically so concurrent scans never move it backwards.
func (r *Repository) CompleteScan(ctx context.Context, userID string, at time.Time) (*ScanState, error) {
	query := `
		INSERT INTO scan_states (user_id, initial_scan_completed, last_scan_at, total_scans, updated_at)
		VALUES ($1, TRUE, $2, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			initial_scan_completed = TRUE,
			last_scan_at = GREATEST(scan_states.last_scan_at, EXCLUDED.last_scan_at),
			total_scans = scan_states.total_scans + 1,
			updated_at = NOW()
		RETURNING ` + scanStateColumns

	state, err := scanState(r.db.QueryRow(ctx, query, userID, at.UTC()).Scan)
	if err != nil {
		return nil, fmt.Errorf("complete scan: %w", err)
	}
	return state, nil
}

// Reset clears the initial flag and last scan time. total_scans is history and is kept.
func (r *Repository) Reset(ctx context.Context, userID string, accountCreatedAt *time.Time) (*ScanState, error) {
	query := `
		INSERT INTO scan_states (user_id, account_created_at, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			initial_scan_completed = FALSE,
			last_scan_at = NULL,
			account_created_at = COALESCE(EXCLUDED.account_created_at, scan_states.account_created_at),
			updated_at = NOW()
		RETURNING ` + scanStateColumns

	state, err := scanState(r.db.QueryRow(ctx, query, userID, accountCreatedAt).Scan)
	if err != nil {
		return nil, fmt.Errorf("reset scan state: %w", err)
	}
	return state, nil
}
