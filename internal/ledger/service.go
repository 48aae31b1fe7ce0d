package ledger

import (
	"context"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/validation"
)

// Service exposes read access to the ledger
type Service struct {
	repo RepositoryInterface
}

// NewService creates a ledger service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// ListUserMessages returns one page of a user's messages and the user's total
func (s *Service) ListUserMessages(ctx context.Context, userID string, limit, offset int) ([]*ClassifiedMessage, int64, error) {
	if !validation.IsValidUserID(userID) {
		return nil, 0, common.NewBadRequestError("invalid user id", nil)
	}

	messages, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list messages", err)
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to count messages", err)
	}
	return messages, total, nil
}
