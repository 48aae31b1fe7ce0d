package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/config"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient() (*Client, redismock.ClientMock) {
	c, mock := redismock.NewClientMock()
	return &Client{Client: c}, mock
}

func TestRedisConfig_RedisAddr(t *testing.T) {
	cfg := config.RedisConfig{Host: "redis.internal", Port: "6380"}
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr())
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func TestSetAndGetJSON(t *testing.T) {
	client, mock := newMockClient()
	ctx := context.Background()

	mock.ExpectSet("loc:u1", []byte(`{"lat":-1.9441,"lng":30.0619}`), time.Hour).SetVal("OK")
	require.NoError(t, client.SetJSON(ctx, "loc:u1", location{Lat: -1.9441, Lng: 30.0619}, time.Hour))

	mock.ExpectGet("loc:u1").SetVal(`{"lat":-1.9441,"lng":30.0619}`)
	var got location
	found, err := client.GetJSON(ctx, "loc:u1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, -1.9441, got.Lat)

	mock.ExpectGet("loc:u2").RedisNil()
	found, err = client.GetJSON(ctx, "loc:u2", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireAndReleaseLock(t *testing.T) {
	client, mock := newMockClient()
	ctx := context.Background()

	mock.ExpectSetNX("scan:lock:u1", "token-a", time.Minute).SetVal(true)
	ok, err := client.AcquireLock(ctx, "scan:lock:u1", "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectSetNX("scan:lock:u1", "token-b", time.Minute).SetVal(false)
	ok, err = client.AcquireLock(ctx, "scan:lock:u1", "token-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectEval(releaseScript, []string{"scan:lock:u1"}, "token-b").SetVal(int64(0))
	assert.ErrorIs(t, client.ReleaseLock(ctx, "scan:lock:u1", "token-b"), ErrLockNotHeld)

	mock.ExpectEval(releaseScript, []string{"scan:lock:u1"}, "token-a").SetVal(int64(1))
	assert.NoError(t, client.ReleaseLock(ctx, "scan:lock:u1", "token-a"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRedisRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{goredis.Nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("redis: connection pool timeout"), true},
		{errors.New("LOADING Redis is loading the dataset in memory"), true},
		{errors.New("READONLY You can't write against a read only replica."), true},
		{errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"), false},
		{errors.New("NOAUTH Authentication required."), false},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
