package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/database"
)

// Repository keeps rollups in Postgres. The applied-set insert and the
// counter increment share one statement, so both happen or neither does.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a Postgres rollup repository
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// ApplyUser increments the user's rollup once per message
func (r *Repository) ApplyUser(ctx context.Context, d Delta) (bool, error) {
	benign, suspicious, fraud := d.increments()

	query := `
		WITH applied AS (
			INSERT INTO user_rollup_applied (user_id, message_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
			RETURNING user_id
		)
		INSERT INTO user_rollups (user_id, total, benign, suspicious, fraud, last_activity_at, updated_at)
		SELECT user_id, 1, $3, $4, $5, $6, NOW() FROM applied
		ON CONFLICT (user_id) DO UPDATE SET
			total = user_rollups.total + 1,
			benign = user_rollups.benign + EXCLUDED.benign,
			suspicious = user_rollups.suspicious + EXCLUDED.suspicious,
			fraud = user_rollups.fraud + EXCLUDED.fraud,
			last_activity_at = GREATEST(user_rollups.last_activity_at, EXCLUDED.last_activity_at),
			updated_at = NOW()
		RETURNING user_id`

	var userID string
	err := r.db.QueryRow(ctx, query, d.UserID, d.MessageID, benign, suspicious, fraud, d.ActivityAt).Scan(&userID)
	if database.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("apply user rollup: %w", err)
	}
	return true, nil
}

// ApplyGlobal increments the global rollup and the day bucket once per message
func (r *Repository) ApplyGlobal(ctx context.Context, d Delta) (bool, error) {
	benign, suspicious, fraud := d.increments()

	query := `
		WITH applied AS (
			INSERT INTO global_rollup_applied (message_id)
			VALUES ($1)
			ON CONFLICT DO NOTHING
			RETURNING message_id
		), daily AS (
			INSERT INTO global_rollup_daily (day, total, benign, suspicious, fraud)
			SELECT $2::date, 1, $3, $4, $5 FROM applied
			ON CONFLICT (day) DO UPDATE SET
				total = global_rollup_daily.total + 1,
				benign = global_rollup_daily.benign + EXCLUDED.benign,
				suspicious = global_rollup_daily.suspicious + EXCLUDED.suspicious,
				fraud = global_rollup_daily.fraud + EXCLUDED.fraud
			RETURNING day
		)
		UPDATE global_rollup SET
			total = total + 1,
			benign = benign + $3,
			suspicious = suspicious + $4,
			fraud = fraud + $5,
			last_activity_at = GREATEST(last_activity_at, $6),
			updated_at = NOW()
		WHERE id = 1 AND EXISTS (SELECT 1 FROM daily)
		RETURNING id`

	var id int
	err := r.db.QueryRow(ctx, query, d.MessageID, d.Day, benign, suspicious, fraud, d.ActivityAt).Scan(&id)
	if database.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("apply global rollup: %w", err)
	}
	return true, nil
}

// GetUserRollup returns the user's counters. Unknown users get zeroes.
func (r *Repository) GetUserRollup(ctx context.Context, userID string) (*UserRollup, error) {
	rollup := &UserRollup{UserID: userID}
	err := r.db.QueryRow(ctx, `
		SELECT total, benign, suspicious, fraud, last_activity_at
		FROM user_rollups WHERE user_id = $1`, userID,
	).Scan(&rollup.Total, &rollup.Benign, &rollup.Suspicious, &rollup.Fraud, &rollup.LastActivityAt)
	if database.IsNoRows(err) {
		return rollup, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user rollup: %w", err)
	}
	return rollup, nil
}

// GetGlobalRollup returns the dashboard counters
func (r *Repository) GetGlobalRollup(ctx context.Context, days int) (*GlobalRollup, error) {
	rollup := &GlobalRollup{Days: []DayBucket{}}
	err := r.db.QueryRow(ctx, `
		SELECT total, benign, suspicious, fraud, last_activity_at
		FROM global_rollup WHERE id = 1`,
	).Scan(&rollup.Total, &rollup.Benign, &rollup.Suspicious, &rollup.Fraud, &rollup.LastActivityAt)
	if err != nil && !database.IsNoRows(err) {
		return nil, fmt.Errorf("get global rollup: %w", err)
	}

	if days <= 0 {
		return rollup, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT day, total, benign, suspicious, fraud
		FROM global_rollup_daily
		ORDER BY day DESC
		LIMIT $1`, days)
	if err != nil {
		return nil, fmt.Errorf("list day buckets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day    time.Time
			bucket DayBucket
		)
		if err := rows.Scan(&day, &bucket.Total, &bucket.Benign, &bucket.Suspicious, &bucket.Fraud); err != nil {
			return nil, fmt.Errorf("scan day bucket: %w", err)
		}
		bucket.Day = day.Format(DayLayout)
		rollup.Days = append(rollup.Days, bucket)
	}
	return rollup, rows.Err()
}
