package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type userShard struct {
	mu    sync.Mutex
	byFP  map[string]*ClassifiedMessage
	order []*ClassifiedMessage
}

// MemoryRepository is an in-process ledger. Writers for the same user
// serialize on that user's shard.
type MemoryRepository struct {
	mu     sync.RWMutex
	shards map[string]*userShard
	now    func() time.Time
}

// NewMemoryRepository creates an empty in-memory ledger
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		shards: make(map[string]*userShard),
		now:    time.Now,
	}
}

func (r *MemoryRepository) shard(userID string, create bool) *userShard {
	r.mu.RLock()
	s, ok := r.shards[userID]
	r.mu.RUnlock()
	if ok || !create {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.shards[userID]; !ok {
		s = &userShard{byFP: make(map[string]*ClassifiedMessage)}
		r.shards[userID] = s
	}
	return s
}

func copyMessage(m *ClassifiedMessage) *ClassifiedMessage {
	c := *m
	return &c
}

func (r *MemoryRepository) WriteIfAbsent(ctx context.Context, msg *ClassifiedMessage) (*WriteResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	s := r.shard(msg.UserID, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byFP[msg.Fingerprint]; ok {
		return &WriteResult{Inserted: false, Message: copyMessage(existing)}, nil
	}

	stored := copyMessage(msg)
	stored.ObservedAt = stored.ObservedAt.UTC()
	stored.CreatedAt = r.now().UTC()
	s.byFP[stored.Fingerprint] = stored
	s.order = append(s.order, stored)
	return &WriteResult{Inserted: true, Message: copyMessage(stored)}, nil
}

func (r *MemoryRepository) Lookup(ctx context.Context, userID, fingerprint string) (*ClassifiedMessage, error) {
	s := r.shard(userID, false)
	if s == nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byFP[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(m), nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ClassifiedMessage, error) {
	s := r.shard(userID, false)
	if s == nil {
		return []*ClassifiedMessage{}, nil
	}
	s.mu.Lock()
	sorted := make([]*ClassifiedMessage, len(s.order))
	for i, m := range s.order {
		sorted[i] = copyMessage(m)
	}
	s.mu.Unlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt.After(sorted[j].ObservedAt)
	})

	if offset >= len(sorted) {
		return []*ClassifiedMessage{}, nil
	}
	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return sorted[offset:end], nil
}

func (r *MemoryRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	s := r.shard(userID, false)
	if s == nil {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.order)), nil
}
