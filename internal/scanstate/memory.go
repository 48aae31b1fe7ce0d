package scanstate

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps scan state in process memory
type MemoryRepository struct {
	mu     sync.Mutex
	states map[string]*ScanState
	now    func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		states: make(map[string]*ScanState),
		now:    time.Now,
	}
}

func (r *MemoryRepository) getLocked(userID string) *ScanState {
	s, ok := r.states[userID]
	if !ok {
		now := r.now().UTC()
		s = &ScanState{UserID: userID, CreatedAt: now, UpdatedAt: now}
		r.states[userID] = s
	}
	return s
}

func clone(s *ScanState) *ScanState {
	c := *s
	if s.LastScanAt != nil {
		t := *s.LastScanAt
		c.LastScanAt = &t
	}
	if s.AccountCreatedAt != nil {
		t := *s.AccountCreatedAt
		c.AccountCreatedAt = &t
	}
	return &c
}

func (r *MemoryRepository) Get(ctx context.Context, userID string) (*ScanState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.getLocked(userID)), nil
}

func (r *MemoryRepository) CompleteScan(ctx context.Context, userID string, at time.Time) (*ScanState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getLocked(userID)
	at = at.UTC()
	if s.LastScanAt == nil || at.After(*s.LastScanAt) {
		s.LastScanAt = &at
	}
	s.InitialScanCompleted = true
	s.TotalScans++
	s.UpdatedAt = r.now().UTC()
	return clone(s), nil
}

func (r *MemoryRepository) Reset(ctx context.Context, userID string, accountCreatedAt *time.Time) (*ScanState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getLocked(userID)
	s.InitialScanCompleted = false
	s.LastScanAt = nil
	if accountCreatedAt != nil {
		t := accountCreatedAt.UTC()
		s.AccountCreatedAt = &t
	}
	s.UpdatedAt = r.now().UTC()
	return clone(s), nil
}
