package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/aggregates"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/dedup"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/geo"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/ledger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/scanstate"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/config"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/resilience"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/tracing"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Propagator applies a ledger record to the derived aggregates
type Propagator interface {
	Apply(ctx context.Context, msg *ledger.ClassifiedMessage, location *alerts.Coordinates) (*aggregates.PropagationResult, error)
}

// Options tunes the orchestrator
type Options struct {
	Workers           int
	Deadline          time.Duration
	ClassifierRetries int
	RetryBackoff      time.Duration
}

// OptionsFromConfig maps scan configuration to Options
func OptionsFromConfig(cfg config.ScanConfig) Options {
	return Options{
		Workers:           cfg.Workers,
		Deadline:          cfg.Deadline,
		ClassifierRetries: cfg.ClassifierRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Deadline <= 0 {
		o.Deadline = 3 * time.Minute
	}
	if o.ClassifierRetries < 0 {
		o.ClassifierRetries = 0
	}
	if o.ClassifierRetries > config.MaxClassifierRetries {
		o.ClassifierRetries = config.MaxClassifierRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	return o
}

// Orchestrator runs initial and incremental scans
type Orchestrator struct {
	states     scanstate.RepositoryInterface
	ledger     ledger.RepositoryInterface
	classifier classifier.Classifier
	propagator Propagator
	locations  geo.LocationStore
	locker     Locker
	opts       Options

	scans      *keyedMutex
	userWrites *keyedMutex
	now        func() time.Time
}

// Deps groups the orchestrator's collaborators. Locations and Locker may be nil.
type Deps struct {
	States     scanstate.RepositoryInterface
	Ledger     ledger.RepositoryInterface
	Classifier classifier.Classifier
	Propagator Propagator
	Locations  geo.LocationStore
	Locker     Locker
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	return &Orchestrator{
		states:     deps.States,
		ledger:     deps.Ledger,
		classifier: deps.Classifier,
		propagator: deps.Propagator,
		locations:  deps.Locations,
		locker:     deps.Locker,
		opts:       opts.withDefaults(),
		scans:      newKeyedMutex(),
		userWrites: newKeyedMutex(),
		now:        time.Now,
	}
}

// RunScan scans messages for userID
func (o *Orchestrator) RunScan(ctx context.Context, userID string, messages []RawMessage) (*Result, error) {
	return o.Run(ctx, Request{UserID: userID, Messages: messages})
}

// Run executes one scan request. A non-nil Result is returned with
// ErrStoreUnavailable so callers can report what was committed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if !validation.IsValidUserID(req.UserID) {
		return nil, ErrInvalidUserID
	}

	release, ok := o.scans.TryLock(req.UserID)
	if !ok {
		return nil, ErrScanInProgress
	}
	defer release()

	if o.locker != nil {
		unlock, err := o.locker.Acquire(ctx, req.UserID)
		switch {
		case errors.Is(err, ErrScanInProgress):
			return nil, err
		case err != nil:
			// The ledger's unique fingerprint still prevents double counting.
			logger.WithContext(ctx).Warn("scan lock unavailable, continuing without it",
				zap.String("user_id", req.UserID), zap.Error(err))
		default:
			defer unlock()
		}
	}

	ctx, span := tracing.Start(ctx, "scan", "scan.Run",
		attribute.String("user.id", req.UserID),
		attribute.Int("scan.candidates", len(req.Messages)),
	)

	started := o.now()
	result, err := o.run(ctx, req, started.UTC())

	outcome := "completed"
	switch {
	case err != nil:
		outcome = "failed"
	case result.Partial:
		outcome = "partial"
	case result.Eligible == 0:
		outcome = "empty"
	}
	if result != nil {
		recordScan(result, outcome, o.now().Sub(started))
		span.SetAttributes(
			attribute.String("scan.mode", string(result.Mode)),
			attribute.Int("scan.analyzed", result.Analyzed),
		)
	}
	tracing.End(span, err)
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, req Request, startedAt time.Time) (*Result, error) {
	log := logger.WithContext(ctx).With(zap.String("user_id", req.UserID))
	result := &Result{UserID: req.UserID, Candidates: len(req.Messages), StartedAt: startedAt}

	state, err := o.states.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: load scan state: %w", ErrStoreUnavailable, err)
	}

	if state.AccountRecreated(req.AccountCreatedAt) {
		log.Info("account recreated since last scan, resetting scan state",
			zap.Timep("last_scan_at", state.LastScanAt),
			zap.Timep("account_created_at", req.AccountCreatedAt),
		)
		if state, err = o.states.Reset(ctx, req.UserID, req.AccountCreatedAt); err != nil {
			return nil, fmt.Errorf("%w: reset scan state: %w", ErrStoreUnavailable, err)
		}
		result.AccountReset = true
	}

	eligible := make([]RawMessage, 0, len(req.Messages))
	if state.NeedsInitialScan() {
		result.Mode = ledger.ScanModeInitial
		eligible = append(eligible, req.Messages...)
	} else {
		result.Mode = ledger.ScanModeIncremental
		for _, m := range req.Messages {
			if m.ObservedAt.After(*state.LastScanAt) {
				eligible = append(eligible, m)
			}
		}
	}
	result.Eligible = len(eligible)

	if len(eligible) == 0 {
		result.CompletedAt = o.now().UTC()
		log.Debug("nothing to scan", zap.String("mode", string(result.Mode)))
		return result, nil
	}

	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].ObservedAt.Before(eligible[j].ObservedAt) })

	location := o.lastKnownLocation(ctx, req.UserID)
	o.processAll(ctx, req.UserID, result, eligible, location)
	result.CompletedAt = o.now().UTC()

	attempted := result.Analyzed + result.Duplicates + result.Skipped
	if attempted > 0 && result.Skipped == attempted {
		log.Error("ledger unreachable for every message", zap.Int("attempted", attempted))
		return result, fmt.Errorf("%w: no message could be recorded", ErrStoreUnavailable)
	}

	if result.Partial {
		log.Warn("scan deadline reached, state not advanced",
			zap.Int("analyzed", result.Analyzed),
			zap.Int("eligible", result.Eligible),
		)
		return result, nil
	}

	// Skipped and half-propagated messages are older than startedAt; advancing
	// would hide them from the next pass, which repairs them through the dedup hit.
	if result.Skipped > 0 || result.PropagationErrors > 0 {
		log.Warn("scan left work unfinished, state not advanced",
			zap.Int("skipped", result.Skipped),
			zap.Int("propagation_errors", result.PropagationErrors),
			zap.Int("analyzed", result.Analyzed),
		)
		return result, nil
	}

	if _, err := o.states.CompleteScan(ctx, req.UserID, startedAt); err != nil {
		return result, fmt.Errorf("%w: complete scan: %w", ErrStoreUnavailable, err)
	}

	log.Info("scan completed",
		zap.String("mode", string(result.Mode)),
		zap.Int("analyzed", result.Analyzed),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("failed", result.Failed),
		zap.Int("new_fraud", result.NewFraudCount),
	)
	return result, nil
}

// unstarted is eligible minus everything that reached an outcome
func (r *Result) unstarted() int {
	return r.Eligible - (r.Analyzed + r.Duplicates + r.Skipped + r.interrupted)
}

func (o *Orchestrator) lastKnownLocation(ctx context.Context, userID string) *alerts.Coordinates {
	if o.locations == nil {
		return nil
	}
	coords, err := o.locations.GetLastKnownCoordinates(ctx, userID)
	if err != nil {
		logger.WithContext(ctx).Warn("last known location unavailable", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return coords
}

func (o *Orchestrator) processAll(ctx context.Context, userID string, result *Result, eligible []RawMessage, location *alerts.Coordinates) {
	scanCtx, cancel := context.WithTimeout(ctx, o.opts.Deadline)
	defer cancel()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(o.opts.Workers)

	for _, raw := range eligible {
		if scanCtx.Err() != nil {
			break
		}
		raw := raw
		g.Go(func() error {
			if scanCtx.Err() != nil {
				mu.Lock()
				result.interrupted++
				mu.Unlock()
				return nil
			}
			p := o.processMessage(scanCtx, userID, result.Mode, raw, location)

			mu.Lock()
			defer mu.Unlock()
			result.add(p)
			return nil
		})
	}
	_ = g.Wait()

	if result.interrupted > 0 || result.unstarted() > 0 {
		result.Partial = true
	}
}

type processed struct {
	outcome     outcome
	label       classifier.Label
	failed      bool
	propagation error
}

func (r *Result) add(p processed) {
	switch p.outcome {
	case outcomeAnalyzed:
		r.Analyzed++
		if p.failed {
			r.Failed++
		}
		switch p.label {
		case classifier.LabelFraud:
			r.NewFraudCount++
		case classifier.LabelSuspicious:
			r.NewSuspiciousCount++
		}
	case outcomeDuplicate:
		r.Duplicates++
	case outcomeStoreFailure:
		r.Skipped++
	case outcomeInterrupted:
		r.interrupted++
	}
	if p.propagation != nil {
		r.PropagationErrors++
	}
}

// processMessage runs the per-message pipeline. It never returns an error:
// every failure is folded into the outcome so one message cannot stop the scan.
func (o *Orchestrator) processMessage(ctx context.Context, userID string, mode ledger.ScanMode, raw RawMessage, location *alerts.Coordinates) processed {
	log := logger.WithContext(ctx).With(zap.String("user_id", userID))
	fp := dedup.Fingerprint(raw.Text, raw.Sender, raw.ObservedAt)

	existing, err := o.ledger.Lookup(ctx, userID, fp)
	switch {
	case err == nil:
		duplicatesSkippedTotal.Inc()
		// Re-applying repairs aggregates an earlier crash left behind.
		return processed{outcome: outcomeDuplicate, propagation: o.propagate(ctx, existing, location)}
	case !errors.Is(err, ledger.ErrNotFound):
		if ctx.Err() != nil {
			return processed{outcome: outcomeInterrupted}
		}
		log.Error("ledger lookup failed", zap.String("fingerprint", fp), zap.Error(err))
		return processed{outcome: outcomeStoreFailure}
	}

	verdict, failed := o.classify(ctx, raw.Text)
	if verdict == nil {
		return processed{outcome: outcomeInterrupted}
	}
	if failed {
		classifierFailuresTotal.Inc()
		log.Warn("classification failed, recording fallback verdict", zap.String("fingerprint", fp))
	}

	msg := &ledger.ClassifiedMessage{
		ID:                   uuid.New(),
		UserID:               userID,
		Sender:               raw.Sender,
		Text:                 raw.Text,
		ObservedAt:           raw.ObservedAt.UTC(),
		Fingerprint:          fp,
		Label:                verdict.Label,
		Confidence:           verdict.Confidence,
		Rationale:            verdict.Rationale,
		ScanMode:             mode,
		ClassificationFailed: failed,
	}

	// The verdict is paid for; finish recording it even if the deadline passes now.
	commitCtx := context.WithoutCancel(ctx)

	unlock := o.userWrites.Lock(userID)
	written, err := o.ledger.WriteIfAbsent(commitCtx, msg)
	unlock()
	if err != nil {
		log.Error("ledger write failed", zap.String("fingerprint", fp), zap.Error(err))
		return processed{outcome: outcomeStoreFailure}
	}

	propErr := o.propagate(commitCtx, written.Message, location)
	if !written.Inserted {
		duplicatesSkippedTotal.Inc()
		return processed{outcome: outcomeDuplicate, propagation: propErr}
	}

	messagesClassifiedTotal.WithLabelValues(string(written.Message.Label)).Inc()
	return processed{
		outcome:     outcomeAnalyzed,
		label:       written.Message.Label,
		failed:      written.Message.ClassificationFailed,
		propagation: propErr,
	}
}

// classify asks the classifier with bounded retries. It returns the fallback
// verdict and failed=true when the classifier cannot answer, and nil when the
// scan context ended first.
func (o *Orchestrator) classify(ctx context.Context, text string) (*classifier.Result, bool) {
	cfg := resilience.RetryConfig{
		MaxAttempts:       o.opts.ClassifierRetries + 1,
		InitialBackoff:    o.opts.RetryBackoff,
		MaxBackoff:        o.opts.RetryBackoff,
		BackoffMultiplier: 1,
		RetryableChecker: func(err error) bool {
			return !errors.Is(err, classifier.ErrEmptyText)
		},
	}

	v, err := resilience.Retry(ctx, cfg, func(ctx context.Context) (interface{}, error) {
		return o.classifier.Classify(ctx, text)
	})
	if err == nil {
		if r, ok := v.(*classifier.Result); ok && r != nil && r.Label.Valid() {
			return r, false
		}
	}
	if ctx.Err() != nil {
		return nil, false
	}
	return &classifier.Result{Label: classifier.LabelBenign, Confidence: 0}, true
}

func (o *Orchestrator) propagate(ctx context.Context, msg *ledger.ClassifiedMessage, location *alerts.Coordinates) error {
	if o.propagator == nil {
		return nil
	}
	_, err := o.propagator.Apply(ctx, msg, location)
	if err != nil {
		propagationErrorsTotal.Inc()
	}
	return err
}
