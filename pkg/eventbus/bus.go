package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Handler processes one event. A returned error naks the message for redelivery,
// delayed when the error carries a RetryError.
type Handler func(ctx context.Context, event *Event) error

// RetryError asks the bus to redeliver after Delay instead of immediately
type RetryError struct {
	Delay time.Duration
	Err   error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry in %s: %v", e.Delay, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// RetryAfter wraps err so the message is redelivered no sooner than delay
func RetryAfter(err error, delay time.Duration) error {
	if err == nil {
		return nil
	}
	return &RetryError{Delay: delay, Err: err}
}

// acker is the acknowledgement surface of *nats.Msg
type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	NakWithDelay(delay time.Duration, opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// Publisher is the write side of the bus
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

// Config configures the JetStream connection
type Config struct {
	URL        string
	Stream     string
	Subjects   []string
	Name       string
	MaxAge     time.Duration
	AckWait    time.Duration
	MaxDeliver int
}

// Bus publishes and consumes events over NATS JetStream
type Bus struct {
	nc   *nats.Conn
	js   nats.JetStreamContext
	cfg  Config
	subs []*nats.Subscription
}

// Connect dials NATS and ensures the stream exists
func Connect(cfg Config) (*Bus, error) {
	if cfg.AckWait <= 0 {
		cfg.AckWait = 5 * time.Minute
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 5
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 72 * time.Hour
	}
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = []string{"scans.>", "alerts.>"}
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("eventbus: disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("eventbus: reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			nc.Close()
			return nil, fmt.Errorf("stream info %s: %w", cfg.Stream, err)
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: cfg.Subjects,
			Storage:  nats.FileStorage,
			MaxAge:   cfg.MaxAge,
		}); err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
		}
		logger.Info("eventbus: stream created", zap.String("stream", cfg.Stream), zap.Strings("subjects", cfg.Subjects))
	}

	return &Bus{nc: nc, js: js, cfg: cfg}, nil
}

// Conn exposes the underlying connection for health checks
func (b *Bus) Conn() *nats.Conn {
	return b.nc
}

// Publish writes event to subject and waits for the JetStream ack.
// The event ID doubles as the dedup message id.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(subject, raw, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable, manually acked consumer to subject
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, handler Handler) error {
	sub, err := b.js.Subscribe(subject, func(msg *nats.Msg) {
		dispatch(ctx, msg.Subject, msg.Data, msg, handler)
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckWait(b.cfg.AckWait),
		nats.MaxDeliver(b.cfg.MaxDeliver),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

func dispatch(ctx context.Context, subject string, data []byte, msg acker, handler Handler) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Error("eventbus: dropping malformed event", zap.String("subject", subject), zap.Error(err))
		// Redelivery cannot fix a payload that does not decode.
		_ = msg.Term()
		return
	}

	err := handler(ctx, &event)
	if err == nil {
		_ = msg.Ack()
		return
	}

	fields := []zap.Field{
		zap.String("subject", subject),
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.Error(err),
	}
	var retry *RetryError
	if errors.As(err, &retry) && retry.Delay > 0 {
		logger.Warn("eventbus: handler deferred, redelivering later", append(fields, zap.Duration("delay", retry.Delay))...)
		_ = msg.NakWithDelay(retry.Delay)
		return
	}
	logger.Warn("eventbus: handler failed, requesting redelivery", fields...)
	_ = msg.Nak()
}

// Close drains subscriptions and the connection
func (b *Bus) Close() {
	for _, sub := range b.subs {
		_ = sub.Drain()
	}
	if b.nc != nil {
		_ = b.nc.Drain()
	}
}
