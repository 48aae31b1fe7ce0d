package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/aggregates"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/dedup"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/geo"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/ledger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/scanstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier flags texts containing "won" as fraud and everything else benign
type stubClassifier struct {
	calls int32
	fn    func(ctx context.Context, text string) (*classifier.Result, error)
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (*classifier.Result, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.fn != nil {
		return s.fn(ctx, text)
	}
	if strings.Contains(strings.ToLower(text), "won") {
		return &classifier.Result{Label: classifier.LabelFraud, Confidence: 0.95}, nil
	}
	return &classifier.Result{Label: classifier.LabelBenign, Confidence: 0.9}, nil
}

func (s *stubClassifier) ClassifyBatch(ctx context.Context, texts []string) ([]classifier.Result, error) {
	out := make([]classifier.Result, len(texts))
	for i, t := range texts {
		r, err := s.Classify(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = *r
	}
	return out, nil
}

func (s *stubClassifier) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

type testEnv struct {
	orch       *Orchestrator
	states     *scanstate.MemoryRepository
	ledger     *ledger.MemoryRepository
	rollups    *aggregates.MemoryRepository
	alerts     *alerts.MemoryRepository
	locations  *geo.MemoryLocationStore
	classifier *stubClassifier
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		states:     scanstate.NewMemoryRepository(),
		ledger:     ledger.NewMemoryRepository(),
		rollups:    aggregates.NewMemoryRepository(),
		alerts:     alerts.NewMemoryRepository(),
		locations:  geo.NewMemoryLocationStore(0),
		classifier: &stubClassifier{},
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	env.orch = NewOrchestrator(Deps{
		States:     env.states,
		Ledger:     env.ledger,
		Classifier: env.classifier,
		Propagator: aggregates.NewPropagator(env.rollups, env.alerts, nil),
		Locations:  env.locations,
	}, opts)
	return env
}

func (e *testEnv) userRollup(t *testing.T, userID string) *aggregates.UserRollup {
	t.Helper()
	r, err := e.rollups.GetUserRollup(context.Background(), userID)
	require.NoError(t, err)
	return r
}

var t0 = time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)

func m1() RawMessage {
	return RawMessage{Sender: "+250788111222", Text: "Congratulations, you won 2,000,000 RWF! Send 5,000 to claim", ObservedAt: t0}
}

func TestRunScan_FraudScenario(t *testing.T) {
	env := newTestEnv(t, Options{})
	require.NoError(t, env.locations.UpdateLastKnown(context.Background(), "u1", -1.9441, 30.0619))
	ctx := context.Background()

	first, err := env.orch.RunScan(ctx, "u1", []RawMessage{m1()})
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeInitial, first.Mode)
	assert.Equal(t, 1, first.Analyzed)
	assert.Equal(t, 1, first.NewFraudCount)

	count, _ := env.ledger.CountByUser(ctx, "u1")
	assert.Equal(t, int64(1), count)
	feed, total, _ := env.alerts.List(ctx, alerts.Filter{UserID: "u1"}, 10, 0)
	require.Equal(t, int64(1), total)
	assert.Equal(t, alerts.SeverityFraud, feed[0].Severity)
	require.NotNil(t, feed[0].Location)
	assert.Equal(t, aggregates.Counts{Total: 1, Fraud: 1}, env.userRollup(t, "u1").Counts)

	// Resubmitting M1 verbatim changes nothing.
	again, err := env.orch.RunScan(ctx, "u1", []RawMessage{m1()})
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeIncremental, again.Mode)
	assert.Zero(t, again.Analyzed)
	assert.Equal(t, aggregates.Counts{Total: 1, Fraud: 1}, env.userRollup(t, "u1").Counts)

	// M2 an hour later, in a later incremental scan.
	m2 := RawMessage{Sender: "MTN", Text: "Your balance is 12,000 RWF", ObservedAt: time.Now().Add(time.Hour)}
	calls := env.classifier.Calls()
	third, err := env.orch.RunScan(ctx, "u1", []RawMessage{m1(), m2})
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeIncremental, third.Mode)
	assert.Equal(t, 1, third.Eligible)
	assert.Equal(t, 1, third.Analyzed)
	assert.Equal(t, calls+1, env.classifier.Calls(), "M1 is not re-classified")

	rollup := env.userRollup(t, "u1")
	assert.Equal(t, int64(2), rollup.Total)
	assert.Equal(t, int64(1), rollup.Fraud)
	assert.Equal(t, int64(1), rollup.Benign)
}

func TestRunScan_DedupIdempotence(t *testing.T) {
	env := newTestEnv(t, Options{Workers: 8})
	ctx := context.Background()

	batch := make([]RawMessage, 10)
	for i := range batch {
		batch[i] = m1()
	}
	res, err := env.orch.RunScan(ctx, "u1", batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Analyzed)
	assert.Equal(t, 9, res.Duplicates)

	count, _ := env.ledger.CountByUser(ctx, "u1")
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1), env.userRollup(t, "u1").Total)

	global, _ := env.rollups.GetGlobalRollup(ctx, 0)
	assert.Equal(t, int64(1), global.Total)
	_, alertCount, _ := env.alerts.List(ctx, alerts.Filter{}, 10, 0)
	assert.Equal(t, int64(1), alertCount)
}

func TestRunScan_ModeCorrectness(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	empty, err := env.orch.RunScan(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeInitial, empty.Mode)
	state, _ := env.states.Get(ctx, "u1")
	assert.False(t, state.InitialScanCompleted, "an empty initial pass does not complete the initial scan")

	res, err := env.orch.RunScan(ctx, "u1", []RawMessage{{Text: "hello", ObservedAt: t0}})
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeInitial, res.Mode)

	state, _ = env.states.Get(ctx, "u1")
	assert.True(t, state.InitialScanCompleted)
	require.NotNil(t, state.LastScanAt)
	assert.Equal(t, 1, state.TotalScans)

	next, err := env.orch.RunScan(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeIncremental, next.Mode)
	assert.Zero(t, next.Analyzed)
}

func TestRunScan_ClassifierFailureRetriesOnceThenFallsBack(t *testing.T) {
	env := newTestEnv(t, Options{ClassifierRetries: 1})
	env.classifier.fn = func(ctx context.Context, text string) (*classifier.Result, error) {
		return nil, classifier.ErrUnavailable
	}

	res, err := env.orch.RunScan(context.Background(), "u1", []RawMessage{m1()})
	require.NoError(t, err)
	assert.Equal(t, 2, env.classifier.Calls())
	assert.Equal(t, 1, res.Analyzed)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.NewFraudCount)

	msgs, _ := env.ledger.ListByUser(context.Background(), "u1", 10, 0)
	require.Len(t, msgs, 1)
	assert.Equal(t, classifier.LabelBenign, msgs[0].Label)
	assert.Zero(t, msgs[0].Confidence)
	assert.True(t, msgs[0].ClassificationFailed)
	assert.Equal(t, int64(1), env.userRollup(t, "u1").Benign)
}

func TestRunScan_ClassifierRetriesAreCappedAtOne(t *testing.T) {
	env := newTestEnv(t, Options{ClassifierRetries: 5})
	env.classifier.fn = func(ctx context.Context, text string) (*classifier.Result, error) {
		return nil, classifier.ErrUnavailable
	}

	res, err := env.orch.RunScan(context.Background(), "u1", []RawMessage{m1()})
	require.NoError(t, err)
	assert.Equal(t, 2, env.classifier.Calls())
	assert.Equal(t, 1, res.Failed)
}

func TestRunScan_DeadlineYieldsPartialAndKeepsState(t *testing.T) {
	env := newTestEnv(t, Options{Workers: 1, Deadline: 30 * time.Millisecond})
	env.classifier.fn = func(ctx context.Context, text string) (*classifier.Result, error) {
		if strings.HasPrefix(text, "slow") {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}
		return &classifier.Result{Label: classifier.LabelBenign, Confidence: 0.9}, nil
	}

	msgs := []RawMessage{
		{Text: "fast one", ObservedAt: t0},
		{Text: "slow two", ObservedAt: t0.Add(time.Minute)},
		{Text: "fast three", ObservedAt: t0.Add(2 * time.Minute)},
	}
	res, err := env.orch.RunScan(context.Background(), "u1", msgs)
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Equal(t, 1, res.Analyzed)

	state, _ := env.states.Get(context.Background(), "u1")
	assert.False(t, state.InitialScanCompleted)
	assert.Nil(t, state.LastScanAt)

	// The next scan resumes in the same mode and dedup skips what was committed.
	env.classifier.fn = nil
	resumed, err := env.orch.RunScan(context.Background(), "u1", msgs)
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeInitial, resumed.Mode)
	assert.Equal(t, 2, resumed.Analyzed)
	assert.Equal(t, 1, resumed.Duplicates)
	assert.Equal(t, int64(3), env.userRollup(t, "u1").Total)
}

type brokenLedger struct {
	*ledger.MemoryRepository
}

func (brokenLedger) Lookup(ctx context.Context, userID, fingerprint string) (*ledger.ClassifiedMessage, error) {
	return nil, errors.New("connection refused")
}

func TestRunScan_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.orch.ledger = brokenLedger{ledger.NewMemoryRepository()}

	res, err := env.orch.RunScan(context.Background(), "u1", []RawMessage{m1(), {Text: "hi", ObservedAt: t0}})
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, env.classifier.Calls())

	state, _ := env.states.Get(context.Background(), "u1")
	assert.False(t, state.InitialScanCompleted)
}

// flakyLedger fails lookups for the listed fingerprints
type flakyLedger struct {
	*ledger.MemoryRepository
	flaky map[string]bool
}

func (f flakyLedger) Lookup(ctx context.Context, userID, fingerprint string) (*ledger.ClassifiedMessage, error) {
	if f.flaky[fingerprint] {
		return nil, errors.New("i/o timeout")
	}
	return f.MemoryRepository.Lookup(ctx, userID, fingerprint)
}

func TestRunScan_PartialStoreFailureKeepsStateForRetry(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	flaky := RawMessage{Text: "flaky one", ObservedAt: t0.Add(time.Minute)}
	mem := ledger.NewMemoryRepository()
	env.ledger = mem
	env.orch.ledger = flakyLedger{mem, map[string]bool{
		dedup.Fingerprint(flaky.Text, flaky.Sender, flaky.ObservedAt): true,
	}}

	res, err := env.orch.RunScan(ctx, "u1", []RawMessage{m1(), flaky})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Analyzed)
	assert.Equal(t, 1, res.Skipped)

	state, _ := env.states.Get(ctx, "u1")
	assert.False(t, state.InitialScanCompleted)
	assert.Nil(t, state.LastScanAt)

	env.orch.ledger = mem
	retry, err := env.orch.RunScan(ctx, "u1", []RawMessage{m1(), flaky})
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Analyzed)
	assert.Equal(t, 1, retry.Duplicates)

	count, _ := mem.CountByUser(ctx, "u1")
	assert.Equal(t, int64(2), count)
	state, _ = env.states.Get(ctx, "u1")
	assert.True(t, state.InitialScanCompleted)
}

// failOnceRollups fails the first ApplyGlobal call
type failOnceRollups struct {
	*aggregates.MemoryRepository
	failed int32
}

func (f *failOnceRollups) ApplyGlobal(ctx context.Context, d aggregates.Delta) (bool, error) {
	if atomic.CompareAndSwapInt32(&f.failed, 0, 1) {
		return false, errors.New("connection reset by peer")
	}
	return f.MemoryRepository.ApplyGlobal(ctx, d)
}

func TestRunScan_PropagationFailureIsRepairedNextScan(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	rollups := &failOnceRollups{MemoryRepository: env.rollups}
	env.orch.propagator = aggregates.NewPropagator(rollups, env.alerts, nil)

	first, err := env.orch.RunScan(ctx, "u1", []RawMessage{m1()})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Analyzed)
	assert.Equal(t, 1, first.PropagationErrors)

	state, _ := env.states.Get(ctx, "u1")
	assert.False(t, state.InitialScanCompleted)
	assert.Nil(t, state.LastScanAt)

	m2 := RawMessage{Sender: "MTN", Text: "Your bill is ready", ObservedAt: t0.Add(time.Hour)}
	second, err := env.orch.RunScan(ctx, "u1", []RawMessage{m1(), m2})
	require.NoError(t, err)
	assert.Equal(t, ledger.ScanModeInitial, second.Mode)
	assert.Equal(t, 1, second.Analyzed)
	assert.Equal(t, 1, second.Duplicates)
	assert.Zero(t, second.PropagationErrors)

	count, _ := env.ledger.CountByUser(ctx, "u1")
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(2), env.userRollup(t, "u1").Total)
	global, err := env.rollups.GetGlobalRollup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), global.Total)
	assert.Equal(t, int64(1), global.Fraud)

	state, _ = env.states.Get(ctx, "u1")
	assert.True(t, state.InitialScanCompleted)
}

func TestRunScan_AccountRecreationResetsToInitial(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.orch.RunScan(ctx, "u1", []RawMessage{{Text: "hello", ObservedAt: t0}})
	require.NoError(t, err)

	created := time.Now().Add(time.Minute)
	res, err := env.orch.Run(ctx, Request{
		UserID:           "u1",
		Messages:         []RawMessage{{Text: "older history", ObservedAt: t0.Add(-time.Hour)}},
		AccountCreatedAt: &created,
	})
	require.NoError(t, err)
	assert.True(t, res.AccountReset)
	assert.Equal(t, ledger.ScanModeInitial, res.Mode)
	assert.Equal(t, 1, res.Analyzed)
}

func TestRunScan_ConcurrentScansOfSameUserAreRejected(t *testing.T) {
	env := newTestEnv(t, Options{})
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env.classifier.fn = func(ctx context.Context, text string) (*classifier.Result, error) {
		once.Do(func() { close(entered) })
		<-release
		return &classifier.Result{Label: classifier.LabelBenign, Confidence: 0.5}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := env.orch.RunScan(context.Background(), "u1", []RawMessage{m1()})
		done <- err
	}()
	<-entered

	_, err := env.orch.RunScan(context.Background(), "u1", []RawMessage{m1()})
	assert.ErrorIs(t, err, ErrScanInProgress)

	_, err = env.orch.RunScan(context.Background(), "u2", nil)
	assert.NoError(t, err, "other users are not blocked")

	close(release)
	require.NoError(t, <-done)
}

func TestRunScan_InvalidUser(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.orch.RunScan(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestRunScan_RollupConsistencyAcrossUsers(t *testing.T) {
	env := newTestEnv(t, Options{Workers: 4})
	ctx := context.Background()
	users := []string{"u1", "u2", "u3"}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			msgs := []RawMessage{
				m1(),
				{Text: "airtime bought", ObservedAt: t0.Add(time.Minute)},
				{Text: "you won again", ObservedAt: t0.Add(2 * time.Minute)},
				m1(),
			}
			_, err := env.orch.RunScan(ctx, u, msgs)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	var sum int64
	for _, u := range users {
		count, _ := env.ledger.CountByUser(ctx, u)
		r := env.userRollup(t, u)
		assert.Equal(t, count, r.Total, u)
		sum += r.Total
	}
	global, _ := env.rollups.GetGlobalRollup(ctx, 0)
	assert.Equal(t, sum, global.Total)
}
