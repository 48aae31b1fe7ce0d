package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/config"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/httpclient"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/resilience"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable covers timeouts, transport errors, 5xx answers and an open breaker.
	ErrUnavailable = errors.New("classifier unavailable")
	// ErrInvalidResponse means the endpoint answered with something we cannot interpret.
	ErrInvalidResponse = errors.New("classifier returned an invalid response")
	// ErrEmptyText is returned before any network call for blank input.
	ErrEmptyText = errors.New("message text is empty")
)

const tracerName = "classifier"

// Client calls the external scoring endpoint. It never retries; retry policy belongs to the caller.
type Client struct {
	http *httpclient.Client
	path string
}

// NewClient builds a breaker-guarded client from configuration
func NewClient(cfg config.ClassifierConfig) *Client {
	settings := resilience.BuildSettings("classifier",
		cfg.BreakerInterval, cfg.BreakerTimeout, cfg.FailureThreshold, cfg.SuccessThreshold)
	// Rejections of our own payload say nothing about classifier health.
	settings.IsFailure = func(err error) bool {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
		}
		return true
	}
	breaker := resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation("classifier"))

	return NewClientWithHTTP(
		httpclient.NewClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout).Apply(httpclient.WithBreaker(breaker)),
		cfg.Path,
	)
}

// NewClientWithHTTP wires an existing HTTP client, mainly for tests
func NewClientWithHTTP(client *httpclient.Client, path string) *Client {
	if path == "" {
		path = "/predict-spam"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &Client{http: client, path: path}
}

// Classify scores a single message
func (c *Client) Classify(ctx context.Context, text string) (result *Result, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	ctx, span := tracing.Start(ctx, tracerName, "classifier.classify")
	defer func() { tracing.End(span, err) }()

	body, err := c.http.Post(ctx, c.path, singleRequest{Text: text}, nil)
	if err != nil {
		return nil, c.wrapTransport(ctx, err)
	}

	results, err := decode(body)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("%w: expected 1 result, got %d", ErrInvalidResponse, len(results))
	}
	span.SetAttributes(attribute.String("classifier.label", string(results[0].Label)))
	return &results[0], nil
}

// ClassifyBatch scores several messages in one call. Results keep input order.
func (c *Client) ClassifyBatch(ctx context.Context, texts []string) (results []Result, err error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyText)
		}
	}

	ctx, span := tracing.Start(ctx, tracerName, "classifier.classify_batch", attribute.Int("classifier.batch_size", len(texts)))
	defer func() { tracing.End(span, err) }()

	body, err := c.http.Post(ctx, c.path, batchRequest{Texts: texts}, nil)
	if err != nil {
		return nil, c.wrapTransport(ctx, err)
	}

	results, err = decode(body)
	if err != nil {
		return nil, err
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrInvalidResponse, len(texts), len(results))
	}
	return results, nil
}

func (c *Client) wrapTransport(ctx context.Context, err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode < 500 && httpErr.StatusCode != 429 {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	logger.WithContext(ctx).Debug("classifier call failed", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// decode accepts a single object or an array of objects.
func decode(body []byte) ([]Result, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}

	var wire []wireResult
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	} else {
		var one wireResult
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		wire = []wireResult{one}
	}

	results := make([]Result, 0, len(wire))
	for _, w := range wire {
		if w.Label == "" && w.Confidence == nil {
			return nil, fmt.Errorf("%w: result without label or confidence", ErrInvalidResponse)
		}
		results = append(results, normalize(w))
	}
	return results, nil
}
