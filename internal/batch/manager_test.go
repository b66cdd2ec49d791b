package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"Draks/internal/domain/models"
	"Draks/pkg/cache"
	"Draks/pkg/logger"
)

type recordingQueue struct {
	items []WorkItem
	err   error
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	if msgType != MessageTypeDecide {
		return errors.New("unexpected message type " + msgType)
	}
	q.items = append(q.items, payload.(WorkItem))
	return nil
}

type recordingMetrics struct {
	started    int
	finished   int
	items      map[string]int
	errorKinds []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{items: make(map[string]int)}
}

func (m *recordingMetrics) JobStarted()                   { m.started++ }
func (m *recordingMetrics) JobFinished(float64)           { m.finished++ }
func (m *recordingMetrics) RecordBatchItem(status string) { m.items[status]++ }
func (m *recordingMetrics) RecordError(kind string)       { m.errorKinds = append(m.errorKinds, kind) }
func (m *recordingMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv := cache.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	return NewStore(kv, time.Hour)
}

func newTestManager(t *testing.T, maxSymbols int) (*Manager, *Store, *recordingQueue, *recordingMetrics) {
	t.Helper()
	store := newTestStore(t)
	q := &recordingQueue{}
	m := newRecordingMetrics()
	return NewManager(store, q, m, testLogger(t), maxSymbols), store, q, m
}

func submitReq(symbols ...string) *models.BatchSubmitRequest {
	return &models.BatchSubmitRequest{
		Asset:     "crypto",
		Timeframe: "1d",
		Symbols:   symbols,
		Limit:     240,
	}
}

func TestSubmitNormalizesAndDedups(t *testing.T) {
	mgr, _, q, metrics := newTestManager(t, 50)

	res, err := mgr.Submit(context.Background(), "alice", submitReq(
		" btcusdt ", "ETHUSDT", "btcusdt", "bad symbol", "", "ethusdt"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("total = %d, want 2 after dedup and validation", res.Total)
	}
	if !ValidJobID(res.JobID) {
		t.Fatalf("job id %q does not match the issued format", res.JobID)
	}
	if len(q.items) != 2 {
		t.Fatalf("enqueued %d items, want 2", len(q.items))
	}
	if q.items[0].Symbol != "BTCUSDT" || q.items[1].Symbol != "ETHUSDT" {
		t.Fatalf("enqueued symbols = %v, want first-seen order", q.items)
	}
	if q.items[0].JobID != res.JobID || q.items[0].Asset != "crypto" || q.items[0].Limit != 240 {
		t.Fatalf("work item = %+v", q.items[0])
	}
	if metrics.started != 1 {
		t.Fatalf("job started metric = %d, want 1", metrics.started)
	}
}

func TestSubmitTruncatesOversizedList(t *testing.T) {
	mgr, _, q, _ := newTestManager(t, 2)

	res, err := mgr.Submit(context.Background(), "alice", submitReq("AAA", "BBB", "CCC", "DDD"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Total != 2 || len(q.items) != 2 {
		t.Fatalf("total = %d, queued = %d, want truncation to 2", res.Total, len(q.items))
	}
	if q.items[0].Symbol != "AAA" || q.items[1].Symbol != "BBB" {
		t.Fatalf("kept symbols = %v, want the first two", q.items)
	}
}

func TestSubmitRejectsEmptyAndInvalid(t *testing.T) {
	mgr, _, _, _ := newTestManager(t, 50)
	ctx := context.Background()

	if _, err := mgr.Submit(ctx, "alice", submitReq()); !errors.Is(err, ErrNoSymbols) {
		t.Fatalf("empty list err = %v, want ErrNoSymbols", err)
	}
	if _, err := mgr.Submit(ctx, "alice", submitReq("bad symbol", "also bad!")); !errors.Is(err, ErrNoSymbols) {
		t.Fatalf("all-invalid err = %v, want ErrNoSymbols", err)
	}

	req := submitReq("BTCUSDT")
	req.Timeframe = "7m"
	if _, err := mgr.Submit(ctx, "alice", req); !errors.Is(err, ErrBadTimeframe) {
		t.Fatalf("bad timeframe err = %v, want ErrBadTimeframe", err)
	}
}

func TestSubmitEnqueueFailure(t *testing.T) {
	mgr, _, q, metrics := newTestManager(t, 50)
	q.err = errors.New("queue down")

	if _, err := mgr.Submit(context.Background(), "alice", submitReq("BTCUSDT")); err == nil {
		t.Fatal("Submit succeeded despite enqueue failure")
	}
	if len(metrics.errorKinds) != 1 || metrics.errorKinds[0] != KindInternalError {
		t.Fatalf("error kinds = %v, want one internal_error", metrics.errorKinds)
	}
}

func TestStatusOwnershipAndSorting(t *testing.T) {
	mgr, store, _, _ := newTestManager(t, 50)
	ctx := context.Background()

	res, err := mgr.Submit(ctx, "alice", submitReq("CCC", "AAA", "BBB"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := store.Resolve(ctx, res.JobID, models.JobResult{Symbol: "CCC", Status: models.ResultOK}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	st, err := mgr.Status(ctx, res.JobID, "alice", false)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Total != 3 {
		t.Fatalf("total = %d, want 3", st.Total)
	}
	if len(st.Pending) != 2 || st.Pending[0] != "AAA" || st.Pending[1] != "BBB" {
		t.Fatalf("pending = %v, want sorted [AAA BBB]", st.Pending)
	}
	if len(st.Done) != 1 || st.Done[0] != "CCC" {
		t.Fatalf("done = %v, want [CCC]", st.Done)
	}

	if _, err := mgr.Status(ctx, res.JobID, "mallory", false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign user err = %v, want ErrForbidden", err)
	}
	if _, err := mgr.Status(ctx, res.JobID, "ops", true); err != nil {
		t.Fatalf("admin access err = %v, want nil", err)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	mgr, _, _, _ := newTestManager(t, 50)
	ctx := context.Background()

	if _, err := mgr.Status(ctx, "not-a-job-id", "alice", false); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("malformed id err = %v, want ErrJobNotFound", err)
	}
	if _, err := mgr.Status(ctx, "0123456789abcdef0123456789abcdef", "alice", false); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("unknown id err = %v, want ErrJobNotFound", err)
	}
}

func TestResultsFiltering(t *testing.T) {
	mgr, store, _, _ := newTestManager(t, 50)
	ctx := context.Background()

	res, err := mgr.Submit(ctx, "alice", submitReq("AAA", "BBB", "CCC"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	buy := &models.DecisionBlock{Consensus: models.Consensus{Label: models.ActionBuy}}
	hold := &models.DecisionBlock{Consensus: models.Consensus{Label: models.ActionHold}}
	resolve := func(r models.JobResult) {
		t.Helper()
		if _, err := store.Resolve(ctx, res.JobID, r); err != nil {
			t.Fatalf("Resolve %s: %v", r.Symbol, err)
		}
	}
	resolve(models.JobResult{Symbol: "AAA", Status: models.ResultOK, Draks: buy})
	resolve(models.JobResult{Symbol: "BBB", Status: models.ResultOK, Draks: hold})
	resolve(models.JobResult{Symbol: "CCC", Status: models.ResultError, Error: KindFetchFailed})

	all, err := mgr.Results(ctx, res.JobID, "alice", false, ResultsFilter{})
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(all.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(all.Items))
	}
	if all.Items[0].Symbol != "AAA" || all.Items[1].Symbol != "BBB" || all.Items[2].Symbol != "CCC" {
		t.Fatalf("items not sorted by symbol: %+v", all.Items)
	}

	failedOnly, err := mgr.Results(ctx, res.JobID, "alice", false, ResultsFilter{Status: models.ResultError})
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(failedOnly.Items) != 1 || failedOnly.Items[0].Error != KindFetchFailed {
		t.Fatalf("failed filter items = %+v", failedOnly.Items)
	}

	buys, err := mgr.Results(ctx, res.JobID, "alice", false, ResultsFilter{Decision: "buy"})
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(buys.Items) != 1 || buys.Items[0].Symbol != "AAA" {
		t.Fatalf("decision filter items = %+v", buys.Items)
	}

	bySym, err := mgr.Results(ctx, res.JobID, "alice", false, ResultsFilter{Symbol: "bb"})
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(bySym.Items) != 1 || bySym.Items[0].Symbol != "BBB" {
		t.Fatalf("symbol filter items = %+v", bySym.Items)
	}

	capped, err := mgr.Results(ctx, res.JobID, "alice", false, ResultsFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(capped.Items) != 2 || capped.Items[0].Symbol != "AAA" {
		t.Fatalf("capped items = %+v, want first two by symbol", capped.Items)
	}
}

func TestResolveIsExactlyOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta := models.JobMeta{JobID: "0123456789abcdef0123456789abcdef", UserID: "alice", Total: 1, StartedAt: time.Now().UTC()}
	if err := store.CreateJob(ctx, meta, []string{"AAA"}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	moved, err := store.Resolve(ctx, meta.JobID, models.JobResult{Symbol: "AAA", Status: models.ResultOK})
	if err != nil || !moved {
		t.Fatalf("first resolve moved=%v err=%v, want true transition", moved, err)
	}
	moved, err = store.Resolve(ctx, meta.JobID, models.JobResult{Symbol: "AAA", Status: models.ResultError, Error: KindTimeout})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if moved {
		t.Fatal("second resolve reported a transition")
	}

	pending, done, failed, err := store.Counts(ctx, meta.JobID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if pending != 0 || done != 1 || failed != 0 {
		t.Fatalf("counts = %d/%d/%d, want 0/1/0", pending, done, failed)
	}
}

func TestMarkFinalizedOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.MarkFinalized(ctx, "0123456789abcdef0123456789abcdef")
	if err != nil || !first {
		t.Fatalf("first mark = %v, %v", first, err)
	}
	again, err := store.MarkFinalized(ctx, "0123456789abcdef0123456789abcdef")
	if err != nil || again {
		t.Fatalf("second mark = %v, %v, want false", again, err)
	}
}
