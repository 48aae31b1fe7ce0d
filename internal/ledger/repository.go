package ledger

import (
	"context"
	"fmt"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/database"
)

const messageColumns = `id, user_id, sender, text, observed_at, fingerprint, label, confidence, rationale, scan_mode, classification_failed, created_at`

// Repository is the Postgres ledger. The (user_id, fingerprint) unique
// constraint provides the insert-if-absent guarantee.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a Postgres ledger
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanMessage(scan func(dest ...interface{}) error) (*ClassifiedMessage, error) {
	m := &ClassifiedMessage{}
	err := scan(
		&m.ID, &m.UserID, &m.Sender, &m.Text, &m.ObservedAt, &m.Fingerprint,
		&m.Label, &m.Confidence, &m.Rationale, &m.ScanMode, &m.ClassificationFailed, &m.CreatedAt,
	)
	return m, err
}

// WriteIfAbsent inserts the message or returns the existing one
func (r *Repository) WriteIfAbsent(ctx context.Context, msg *ClassifiedMessage) (*WriteResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO classified_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (user_id, fingerprint) DO NOTHING
		RETURNING ` + messageColumns

	stored, err := scanMessage(r.db.QueryRow(ctx, query,
		msg.ID, msg.UserID, msg.Sender, msg.Text, msg.ObservedAt.UTC(), msg.Fingerprint,
		msg.Label, msg.Confidence, msg.Rationale, msg.ScanMode, msg.ClassificationFailed,
	).Scan)
	if err == nil {
		return &WriteResult{Inserted: true, Message: stored}, nil
	}
	if !database.IsNoRows(err) {
		return nil, fmt.Errorf("insert classified message: %w", err)
	}

	// Conflict: somebody already holds this fingerprint.
	existing, err := r.Lookup(ctx, msg.UserID, msg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("load existing classified message: %w", err)
	}
	return &WriteResult{Inserted: false, Message: existing}, nil
}

// Lookup finds a user's message by fingerprint
func (r *Repository) Lookup(ctx context.Context, userID, fingerprint string) (*ClassifiedMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM classified_messages WHERE user_id = $1 AND fingerprint = $2`

	m, err := scanMessage(r.db.QueryRow(ctx, query, userID, fingerprint).Scan)
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup classified message: %w", err)
	}
	return m, nil
}

// ListByUser returns a user's messages, most recently observed first
func (r *Repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ClassifiedMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM classified_messages
		WHERE user_id = $1
		ORDER BY observed_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list classified messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*ClassifiedMessage, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan classified message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountByUser counts a user's messages
func (r *Repository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM classified_messages WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count classified messages: %w", err)
	}
	return total, nil
}
