package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestPostgresChecker(t *testing.T) {
	assert.NoError(t, PostgresChecker(fakePinger{})())
	assert.EqualError(t, PostgresChecker(fakePinger{err: errors.New("refused")})(), "refused")
	assert.Error(t, PostgresChecker(nil)())
}

func TestRedisChecker(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, RedisChecker(client)())

	mock.ExpectPing().SetErr(errors.New("down"))
	assert.Error(t, RedisChecker(client)())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNATSChecker_Nil(t *testing.T) {
	assert.Error(t, NATSChecker(nil)())
}

func TestHTTPEndpointChecker(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer healthy.Close()
	assert.NoError(t, HTTPEndpointChecker(healthy.URL)())

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	assert.Error(t, HTTPEndpointChecker(broken.URL)())
}

func TestCompositeChecker(t *testing.T) {
	ok := func() error { return nil }
	assert.NoError(t, CompositeChecker("deps", map[string]Checker{})())
	assert.NoError(t, CompositeChecker("deps", map[string]Checker{"a": ok, "b": ok})())

	err := CompositeChecker("deps", map[string]Checker{
		"postgres": func() error { return errors.New("connection refused") },
		"redis":    ok,
	})()
	require.Error(t, err)
	assert.Equal(t, "deps.postgres: connection refused", err.Error())
}

func TestCachedChecker(t *testing.T) {
	calls := 0
	cached := NewCachedChecker(func() error {
		calls++
		return errors.New("flaky")
	}, 40*time.Millisecond)

	assert.Error(t, cached.Check())
	assert.Error(t, cached.Check())
	assert.Equal(t, 1, calls, "error results are cached too")

	time.Sleep(50 * time.Millisecond)
	_ = cached.Check()
	assert.Equal(t, 2, calls)
}
