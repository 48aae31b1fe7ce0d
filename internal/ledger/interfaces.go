package ledger

import (
	"context"
)

// RepositoryInterface is the message ledger
type RepositoryInterface interface {
	// WriteIfAbsent inserts msg unless the user already has a message with the
	// same fingerprint. It is atomic with respect to concurrent writers.
	WriteIfAbsent(ctx context.Context, msg *ClassifiedMessage) (*WriteResult, error)
	Lookup(ctx context.Context, userID, fingerprint string) (*ClassifiedMessage, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ClassifiedMessage, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}
