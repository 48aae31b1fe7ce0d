package aggregates

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memUser struct {
	rollup  UserRollup
	applied map[uuid.UUID]struct{}
}

// MemoryRepository keeps rollups in process memory
type MemoryRepository struct {
	mu            sync.Mutex
	users         map[string]*memUser
	global        GlobalRollup
	days          map[string]*DayBucket
	globalApplied map[uuid.UUID]struct{}
}

// NewMemoryRepository creates empty in-memory rollups
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:         make(map[string]*memUser),
		days:          make(map[string]*DayBucket),
		globalApplied: make(map[uuid.UUID]struct{}),
	}
}

func latest(current *time.Time, at time.Time) *time.Time {
	if current == nil || at.After(*current) {
		return &at
	}
	return current
}

func (r *MemoryRepository) ApplyUser(ctx context.Context, d Delta) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[d.UserID]
	if !ok {
		u = &memUser{rollup: UserRollup{UserID: d.UserID}, applied: make(map[uuid.UUID]struct{})}
		r.users[d.UserID] = u
	}
	if _, done := u.applied[d.MessageID]; done {
		return false, nil
	}
	u.applied[d.MessageID] = struct{}{}
	u.rollup.add(d.Label)
	u.rollup.LastActivityAt = latest(u.rollup.LastActivityAt, d.ActivityAt)
	return true, nil
}

func (r *MemoryRepository) ApplyGlobal(ctx context.Context, d Delta) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, done := r.globalApplied[d.MessageID]; done {
		return false, nil
	}
	r.globalApplied[d.MessageID] = struct{}{}

	r.global.add(d.Label)
	r.global.LastActivityAt = latest(r.global.LastActivityAt, d.ActivityAt)

	bucket, ok := r.days[d.Day]
	if !ok {
		bucket = &DayBucket{Day: d.Day}
		r.days[d.Day] = bucket
	}
	bucket.add(d.Label)
	return true, nil
}

func (r *MemoryRepository) GetUserRollup(ctx context.Context, userID string) (*UserRollup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return &UserRollup{UserID: userID}, nil
	}
	c := u.rollup
	return &c, nil
}

func (r *MemoryRepository) GetGlobalRollup(ctx context.Context, days int) (*GlobalRollup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := GlobalRollup{Counts: r.global.Counts, LastActivityAt: r.global.LastActivityAt, Days: []DayBucket{}}
	for _, b := range r.days {
		out.Days = append(out.Days, *b)
	}
	sort.Slice(out.Days, func(i, j int) bool { return out.Days[i].Day > out.Days[j].Day })
	if days < 0 {
		days = 0
	}
	if len(out.Days) > days {
		out.Days = out.Days[:days]
	}
	return &out, nil
}
