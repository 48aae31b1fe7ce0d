package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	redisClient "github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/redis"
)

const (
	userLocationPrefix = "user:location:"

	// DefaultLocationTTL is how long a reported device location stays usable
	DefaultLocationTTL = 24 * time.Hour
)

// LocationStore remembers the last device location each user reported
type LocationStore interface {
	UpdateLastKnown(ctx context.Context, userID string, lat, lng float64) error
	// GetLastKnownCoordinates returns nil when no fresh location is known.
	GetLastKnownCoordinates(ctx context.Context, userID string) (*Coordinates, error)
}

// UserLocation is the stored form of a reported location
type UserLocation struct {
	UserID    string    `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisLocationStore keeps last-known locations in Redis with a TTL
type RedisLocationStore struct {
	redis *redisClient.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisLocationStore creates a Redis-backed location store
func NewRedisLocationStore(redis *redisClient.Client, ttl time.Duration) *RedisLocationStore {
	if ttl <= 0 {
		ttl = DefaultLocationTTL
	}
	return &RedisLocationStore{redis: redis, ttl: ttl, now: time.Now}
}

func locationKey(userID string) string {
	return fmt.Sprintf("%s%s", userLocationPrefix, userID)
}

// UpdateLastKnown stores the user's current location
func (s *RedisLocationStore) UpdateLastKnown(ctx context.Context, userID string, lat, lng float64) error {
	if !(Coordinates{Latitude: lat, Longitude: lng}).Valid() {
		return fmt.Errorf("invalid coordinates (%v, %v)", lat, lng)
	}

	location := UserLocation{
		UserID:    userID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: s.now().UTC(),
	}
	if err := s.redis.SetJSON(ctx, locationKey(userID), location, s.ttl); err != nil {
		return fmt.Errorf("store user location: %w", err)
	}
	return nil
}

// GetLastKnownCoordinates reads the user's last location
func (s *RedisLocationStore) GetLastKnownCoordinates(ctx context.Context, userID string) (*Coordinates, error) {
	var location UserLocation
	found, err := s.redis.GetJSON(ctx, locationKey(userID), &location)
	if err != nil {
		return nil, fmt.Errorf("load user location: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &Coordinates{Latitude: location.Latitude, Longitude: location.Longitude}, nil
}

type memLocation struct {
	coords    Coordinates
	expiresAt time.Time
}

// MemoryLocationStore is the in-process location store
type MemoryLocationStore struct {
	mu        sync.RWMutex
	locations map[string]memLocation
	ttl       time.Duration
	now       func() time.Time
}

// NewMemoryLocationStore creates an empty in-memory location store
func NewMemoryLocationStore(ttl time.Duration) *MemoryLocationStore {
	if ttl <= 0 {
		ttl = DefaultLocationTTL
	}
	return &MemoryLocationStore{locations: make(map[string]memLocation), ttl: ttl, now: time.Now}
}

func (s *MemoryLocationStore) UpdateLastKnown(ctx context.Context, userID string, lat, lng float64) error {
	c := Coordinates{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return fmt.Errorf("invalid coordinates (%v, %v)", lat, lng)
	}
	s.mu.Lock()
	s.locations[userID] = memLocation{coords: c, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryLocationStore) GetLastKnownCoordinates(ctx context.Context, userID string) (*Coordinates, error) {
	s.mu.RLock()
	loc, ok := s.locations[userID]
	s.mu.RUnlock()
	if !ok || !s.now().Before(loc.expiresAt) {
		return nil, nil
	}
	c := loc.coords
	return &c, nil
}
