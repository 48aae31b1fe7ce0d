package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/database"
	"github.com/google/uuid"
)

const alertColumns = `id, user_id, message_id, sender, message_text, label, confidence, severity,
	risk_score, title, status, latitude, longitude, created_at, updated_at`

// Repository is the Postgres alert feed
type Repository struct {
	db database.DBTX
}

// NewRepository creates a Postgres alert repository
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanAlert(scan func(dest ...interface{}) error) (*Alert, error) {
	a := &Alert{}
	var lat, lng *float64
	err := scan(
		&a.ID, &a.UserID, &a.MessageID, &a.Sender, &a.MessageText, &a.Label, &a.Confidence, &a.Severity,
		&a.RiskScore, &a.Title, &a.Status, &lat, &lng, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		a.Location = &Coordinates{Latitude: *lat, Longitude: *lng}
	}
	return a, nil
}

// CreateIfAbsent inserts the alert unless its message already has one
func (r *Repository) CreateIfAbsent(ctx context.Context, a *Alert) (*Alert, bool, error) {
	var lat, lng *float64
	if a.Location != nil {
		lat, lng = &a.Location.Latitude, &a.Location.Longitude
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING ` + alertColumns

	stored, err := scanAlert(r.db.QueryRow(ctx, query,
		a.ID, a.UserID, a.MessageID, a.Sender, a.MessageText, a.Label, a.Confidence, a.Severity,
		a.RiskScore, a.Title, a.Status, lat, lng, a.CreatedAt,
	).Scan)
	if err == nil {
		return stored, true, nil
	}
	if !database.IsNoRows(err) {
		return nil, false, fmt.Errorf("insert alert: %w", err)
	}

	existing, err := scanAlert(r.db.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE message_id = $1`, a.MessageID).Scan)
	if err != nil {
		return nil, false, fmt.Errorf("load existing alert: %w", err)
	}
	return existing, false, nil
}

// Get returns an alert by id
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	a, err := scanAlert(r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id).Scan)
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func whereClause(filter Filter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Severity != "" {
		add("severity = $%d", filter.Severity)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns a page of alerts, newest first, and the filtered total
func (r *Repository) List(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error) {
	where, args := whereClause(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM alerts%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		alertColumns, where, len(args)+1, len(args)+2)
	alerts, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// ListLocated returns all alerts carrying coordinates
func (r *Repository) ListLocated(ctx context.Context) ([]*Alert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM alerts
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY created_at DESC, id`)
}

// ListByUser returns all of a user's alerts, newest first
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]*Alert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM alerts WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

// UpdateStatus changes an alert's status
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Alert, error) {
	a, err := scanAlert(r.db.QueryRow(ctx,
		`UPDATE alerts SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+alertColumns,
		id, status).Scan)
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update alert status: %w", err)
	}
	return a, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]*Alert, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
