package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/config"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/httpclient"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTP(httpclient.NewClient(server.URL, time.Second), "/predict-spam")
}

func TestClassify_SingleMessage(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict-spam", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var req map[string]string
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "Congratulations, you won 1,000,000 RWF", req["text"])

		_, _ = w.Write([]byte(`{"label":"spam","confidence":95,"probabilities":{"spam":0.95,"ham":0.05}}`))
	})

	result, err := client.Classify(context.Background(), "Congratulations, you won 1,000,000 RWF")
	require.NoError(t, err)
	assert.Equal(t, LabelFraud, result.Label)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "spam", result.RawLabel)
	assert.Equal(t, 0.05, result.Probabilities["ham"])
}

func TestClassifyBatch_KeepsOrder(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req map[string][]string
		require.NoError(t, json.Unmarshal(raw, &req))
		require.Len(t, req["texts"], 2)

		_, _ = w.Write([]byte(`[{"label":"ham","confidence":0.9},{"label":"fraud","confidence":0.82,"rationale":"prize lure"}]`))
	})

	results, err := client.ClassifyBatch(context.Background(), []string{"Your balance is 3,000 RWF", "Claim your prize now"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, LabelBenign, results[0].Label)
	assert.Equal(t, LabelFraud, results[1].Label)
	assert.Equal(t, "prize lure", results[1].Rationale)
}

func TestClassifyBatch_CountMismatchIsInvalid(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"ham","confidence":0.9}]`))
	})

	_, err := client.ClassifyBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClassify_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, want: ErrUnavailable},
		{name: "throttled", status: http.StatusTooManyRequests, body: ``, want: ErrUnavailable},
		{name: "rejected payload", status: http.StatusUnprocessableEntity, body: `{"detail":"bad"}`, want: ErrInvalidResponse},
		{name: "garbage", status: http.StatusOK, body: `<html>`, want: ErrInvalidResponse},
		{name: "empty object", status: http.StatusOK, body: `{}`, want: ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Classify(context.Background(), "hello")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassify_TimeoutIsUnavailable(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := client.Classify(ctx, "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClassify_EmptyTextSkipsNetwork(t *testing.T) {
	var calls int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := client.Classify(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestNewClient_BreakerOpensOnServerErrorsOnly(t *testing.T) {
	var calls int32
	status := int32(http.StatusBadRequest)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer server.Close()

	client := NewClient(config.ClassifierConfig{
		BaseURL:          server.URL + "/",
		Path:             "predict-spam",
		Timeout:          time.Second,
		BreakerTimeout:   60,
		FailureThreshold: 2,
	})

	for i := 0; i < 3; i++ {
		_, err := client.Classify(context.Background(), "hello")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "4xx must not trip the breaker")

	atomic.StoreInt32(&status, http.StatusServiceUnavailable)
	for i := 0; i < 2; i++ {
		_, _ = client.Classify(context.Background(), "hello")
	}
	_, err := client.Classify(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}
