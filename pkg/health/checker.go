package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Checker reports nil when a dependency is usable
type Checker func() error

// CheckerConfig tunes dependency probes
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig probes with a 2s timeout
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// PostgresChecker pings the pool
func PostgresChecker(pool Pinger) Checker {
	return PostgresCheckerWithConfig(pool, DefaultCheckerConfig())
}

// PostgresCheckerWithConfig pings the pool with a custom timeout
func PostgresCheckerWithConfig(pool Pinger, cfg CheckerConfig) Checker {
	return func() error {
		if pool == nil {
			return errors.New("database pool not configured")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}

// RedisChecker pings Redis
func RedisChecker(client redis.UniversalClient) Checker {
	return func() error {
		if client == nil {
			return errors.New("redis client not configured")
		}
		ctx, cancel := context.WithTimeout(context.Background(), DefaultCheckerConfig().Timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// NATSChecker reports the connection status
func NATSChecker(nc *nats.Conn) Checker {
	return func() error {
		if nc == nil {
			return errors.New("nats connection not configured")
		}
		if status := nc.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats connection %s", status)
		}
		return nil
	}
}

// HTTPEndpointChecker treats any non-5xx response as healthy
func HTTPEndpointChecker(url string) Checker {
	return HTTPEndpointCheckerWithConfig(url, DefaultCheckerConfig())
}

// HTTPEndpointCheckerWithConfig is HTTPEndpointChecker with a custom timeout
func HTTPEndpointCheckerWithConfig(url string, cfg CheckerConfig) Checker {
	client := &http.Client{Timeout: cfg.Timeout}
	return func() error {
		resp, err := client.Get(url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("endpoint returned %d", resp.StatusCode)
		}
		return nil
	}
}

// CompositeChecker runs every checker and reports failures as name.child
func CompositeChecker(name string, checkers map[string]Checker) Checker {
	return func() error {
		names := make([]string, 0, len(checkers))
		for n := range checkers {
			names = append(names, n)
		}
		sort.Strings(names)

		var failures []string
		for _, n := range names {
			if err := checkers[n](); err != nil {
				failures = append(failures, fmt.Sprintf("%s.%s: %v", name, n, err))
			}
		}
		if len(failures) > 0 {
			return errors.New(strings.Join(failures, "; "))
		}
		return nil
	}
}

// CachedChecker memoizes a checker result for cacheTTL
type CachedChecker struct {
	checker   Checker
	cacheTTL  time.Duration
	mu        sync.Mutex
	lastErr   error
	checkedAt time.Time
}

// NewCachedChecker wraps checker with a result cache
func NewCachedChecker(checker Checker, cacheTTL time.Duration) *CachedChecker {
	return &CachedChecker{checker: checker, cacheTTL: cacheTTL}
}

// Check returns the cached result or runs the checker when stale
func (c *CachedChecker) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checkedAt.IsZero() && time.Since(c.checkedAt) < c.cacheTTL {
		return c.lastErr
	}
	c.lastErr = c.checker()
	c.checkedAt = time.Now()
	return c.lastErr
}
