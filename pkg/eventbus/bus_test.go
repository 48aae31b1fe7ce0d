package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAcker struct {
	acks, naks, terms int
	delays            []time.Duration
}

func (r *recordingAcker) Ack(...nats.AckOpt) error  { r.acks++; return nil }
func (r *recordingAcker) Nak(...nats.AckOpt) error  { r.naks++; return nil }
func (r *recordingAcker) Term(...nats.AckOpt) error { r.terms++; return nil }
func (r *recordingAcker) NakWithDelay(d time.Duration, _ ...nats.AckOpt) error {
	r.delays = append(r.delays, d)
	return nil
}

func encodedEvent(t *testing.T) []byte {
	t.Helper()
	event, err := NewEvent(EventScanRequested, "test", ScanRequestedData{UserID: "u1"})
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestDispatch_Outcomes(t *testing.T) {
	errBusy := errors.New("scan already in progress")

	tests := []struct {
		name      string
		handler   Handler
		wantAcks  int
		wantNaks  int
		wantDelay []time.Duration
	}{
		{
			name:     "success acks",
			handler:  func(context.Context, *Event) error { return nil },
			wantAcks: 1,
		},
		{
			name:     "plain error naks at once",
			handler:  func(context.Context, *Event) error { return errors.New("boom") },
			wantNaks: 1,
		},
		{
			name:      "retry error naks with delay",
			handler:   func(context.Context, *Event) error { return RetryAfter(errBusy, time.Minute) },
			wantDelay: []time.Duration{time.Minute},
		},
		{
			name: "wrapped retry error keeps its delay",
			handler: func(context.Context, *Event) error {
				return fmt.Errorf("run scan: %w", RetryAfter(errBusy, 30*time.Second))
			},
			wantDelay: []time.Duration{30 * time.Second},
		},
		{
			name:     "zero delay falls back to nak",
			handler:  func(context.Context, *Event) error { return RetryAfter(errBusy, 0) },
			wantNaks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &recordingAcker{}
			dispatch(context.Background(), SubjectScanRequested, encodedEvent(t), msg, tt.handler)

			assert.Equal(t, tt.wantAcks, msg.acks)
			assert.Equal(t, tt.wantNaks, msg.naks)
			assert.Equal(t, tt.wantDelay, msg.delays)
			assert.Zero(t, msg.terms)
		})
	}
}

func TestDispatch_MalformedPayloadIsTerminated(t *testing.T) {
	msg := &recordingAcker{}
	called := false
	dispatch(context.Background(), SubjectScanRequested, []byte(`{"id":`), msg, func(context.Context, *Event) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Equal(t, 1, msg.terms)
	assert.Zero(t, msg.acks+msg.naks)
}

func TestRetryAfter(t *testing.T) {
	assert.NoError(t, RetryAfter(nil, time.Second))

	base := errors.New("store down")
	err := RetryAfter(base, 15*time.Second)
	assert.ErrorIs(t, err, base)

	var retry *RetryError
	require.True(t, errors.As(err, &retry))
	assert.Equal(t, 15*time.Second, retry.Delay)
}
