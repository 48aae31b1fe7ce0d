package alerts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps the alert feed in process memory
type MemoryRepository struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*Alert
	byMessage map[uuid.UUID]uuid.UUID
}

// NewMemoryRepository creates an empty in-memory alert repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:      make(map[uuid.UUID]*Alert),
		byMessage: make(map[uuid.UUID]uuid.UUID),
	}
}

func copyAlert(a *Alert) *Alert {
	c := *a
	if a.Location != nil {
		loc := *a.Location
		c.Location = &loc
	}
	return &c
}

func (r *MemoryRepository) CreateIfAbsent(ctx context.Context, a *Alert) (*Alert, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byMessage[a.MessageID]; ok {
		return copyAlert(r.byID[id]), false, nil
	}
	stored := copyAlert(a)
	r.byID[stored.ID] = stored
	r.byMessage[stored.MessageID] = stored.ID
	return copyAlert(stored), true, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAlert(a), nil
}

// selectLocked returns copies matching keep, newest first
func (r *MemoryRepository) selectLocked(keep func(*Alert) bool) []*Alert {
	out := make([]*Alert, 0)
	for _, a := range r.byID {
		if keep(a) {
			out = append(out, copyAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error) {
	r.mu.RLock()
	matched := r.selectLocked(filter.match)
	r.mu.RUnlock()

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*Alert{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (r *MemoryRepository) ListLocated(ctx context.Context) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selectLocked(func(a *Alert) bool { return a.Location != nil }), nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selectLocked(func(a *Alert) bool { return a.UserID == userID }), nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return copyAlert(a), nil
}
