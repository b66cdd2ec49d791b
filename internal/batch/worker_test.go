package batch

import (
	"context"
	"testing"
	"time"

	"Draks/internal/domain/models"
	"Draks/internal/ohlcv"
	"Draks/pkg/cache"
)

type stubFetcher struct {
	asset  string
	series models.Series
	err    error
}

func (f *stubFetcher) Fetch(context.Context, string, string, int) (models.Series, error) {
	return f.series, f.err
}

func (f *stubFetcher) Asset() string { return f.asset }

func (m *recordingMetrics) RecordCacheHit()  {}
func (m *recordingMetrics) RecordCacheMiss() {}

type recordingSink struct {
	events []models.ProgressEvent
}

func (s *recordingSink) Publish(_ context.Context, ev models.ProgressEvent) {
	s.events = append(s.events, ev)
}

type recordingArchiver struct {
	meta  *models.JobMeta
	items []models.JobResult
	calls int
}

func (a *recordingArchiver) ArchiveJob(_ context.Context, meta *models.JobMeta, items []models.JobResult) {
	a.calls++
	a.meta = meta
	a.items = items
}

func candleSeries(n int) models.Series {
	s := make(models.Series, 0, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i%5)
		s = append(s, models.Bar{
			Timestamp: int64(i) * 86400000,
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    50,
		})
	}
	return s
}

type workerFixture struct {
	worker   *Worker
	store    *Store
	sink     *recordingSink
	archiver *recordingArchiver
	metrics  *recordingMetrics
}

func newWorkerFixture(t *testing.T, fetcher ohlcv.Fetcher) *workerFixture {
	t.Helper()
	kv := cache.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })

	metrics := newRecordingMetrics()
	log := testLogger(t)
	store := NewStore(kv, time.Hour)
	candles := ohlcv.NewCache(kv, ohlcv.NewRouter(fetcher), metrics, log, time.Minute, 500)
	sink := &recordingSink{}
	archiver := &recordingArchiver{}

	w := NewWorker(store, candles, sink, archiver, metrics, log, models.DefaultOrchestratorConfig(), time.Minute)
	return &workerFixture{worker: w, store: store, sink: sink, archiver: archiver, metrics: metrics}
}

func seedJob(t *testing.T, store *Store, jobID string, symbols ...string) {
	t.Helper()
	meta := models.JobMeta{
		JobID:     jobID,
		UserID:    "alice",
		Asset:     "crypto",
		Timeframe: "1d",
		Limit:     240,
		Total:     len(symbols),
		StartedAt: time.Now().UTC(),
	}
	if err := store.CreateJob(context.Background(), meta, symbols); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
}

func workItem(jobID, symbol string) WorkItem {
	return WorkItem{JobID: jobID, Symbol: symbol, Asset: "crypto", Timeframe: "1d", Limit: 240}
}

const testJobID = "0123456789abcdef0123456789abcdef"

func TestWorkerSuccess(t *testing.T) {
	fx := newWorkerFixture(t, &stubFetcher{asset: "crypto", series: candleSeries(80)})
	seedJob(t, fx.store, testJobID, "BTCUSDT")
	ctx := context.Background()

	if err := fx.worker.Handle(ctx, workItem(testJobID, "BTCUSDT")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	res, ok, err := fx.store.Result(ctx, testJobID, "BTCUSDT")
	if err != nil || !ok {
		t.Fatalf("Result ok=%v err=%v", ok, err)
	}
	if res.Status != models.ResultOK || res.Draks == nil {
		t.Fatalf("result = %+v, want ok with decision block", res)
	}
	if len(res.Draks.Engines) != 4 {
		t.Fatalf("engines = %d, want 4", len(res.Draks.Engines))
	}

	pending, done, failed, err := fx.store.Counts(ctx, testJobID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if pending != 0 || done != 1 || failed != 0 {
		t.Fatalf("counts = %d/%d/%d, want 0/1/0", pending, done, failed)
	}
	if fx.metrics.items["done"] != 1 {
		t.Fatalf("done metric = %d, want 1", fx.metrics.items["done"])
	}
}

func TestWorkerInsufficientData(t *testing.T) {
	fx := newWorkerFixture(t, &stubFetcher{asset: "crypto", series: candleSeries(30)})
	seedJob(t, fx.store, testJobID, "BTCUSDT")
	ctx := context.Background()

	if err := fx.worker.Handle(ctx, workItem(testJobID, "BTCUSDT")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	res, ok, _ := fx.store.Result(ctx, testJobID, "BTCUSDT")
	if !ok || res.Status != models.ResultError || res.Error != KindInsufficientData {
		t.Fatalf("result = %+v, want insufficient_data failure", res)
	}
	_, _, failed, _ := fx.store.Counts(ctx, testJobID)
	if failed != 1 {
		t.Fatalf("failed count = %d, want 1", failed)
	}
	if len(fx.metrics.errorKinds) != 1 || fx.metrics.errorKinds[0] != KindInsufficientData {
		t.Fatalf("error kinds = %v", fx.metrics.errorKinds)
	}
}

func TestWorkerFetchFailure(t *testing.T) {
	fx := newWorkerFixture(t, &stubFetcher{asset: "crypto", err: ohlcv.ErrFetchFailed})
	seedJob(t, fx.store, testJobID, "BTCUSDT")

	if err := fx.worker.Handle(context.Background(), workItem(testJobID, "BTCUSDT")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res, ok, _ := fx.store.Result(context.Background(), testJobID, "BTCUSDT")
	if !ok || res.Error != KindFetchFailed {
		t.Fatalf("result = %+v, want fetch_failed", res)
	}
}

func TestWorkerInvalidInput(t *testing.T) {
	fx := newWorkerFixture(t, &stubFetcher{asset: "crypto", series: candleSeries(80)})
	seedJob(t, fx.store, testJobID, "BTCUSDT")

	item := workItem(testJobID, "BTCUSDT")
	item.Asset = "forex"
	if err := fx.worker.Handle(context.Background(), item); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res, ok, _ := fx.store.Result(context.Background(), testJobID, "BTCUSDT")
	if !ok || res.Error != KindInvalidInput {
		t.Fatalf("result = %+v, want invalid_input", res)
	}
}

func TestWorkerRedeliveryIsIdempotent(t *testing.T) {
	fx := newWorkerFixture(t, &stubFetcher{asset: "crypto", series: candleSeries(80)})
	seedJob(t, fx.store, testJobID, "BTCUSDT")
	ctx := context.Background()

	if err := fx.worker.Handle(ctx, workItem(testJobID, "BTCUSDT")); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	eventsAfterFirst := len(fx.sink.events)
	if err := fx.worker.Handle(ctx, workItem(testJobID, "BTCUSDT")); err != nil {
		t.Fatalf("second Handle: %v", err)
	}

	if fx.metrics.items["done"] != 1 {
		t.Fatalf("done metric = %d, want 1 despite redelivery", fx.metrics.items["done"])
	}
	if len(fx.sink.events) != eventsAfterFirst {
		t.Fatalf("redelivery published %d extra events", len(fx.sink.events)-eventsAfterFirst)
	}
	_, done, failed, _ := fx.store.Counts(ctx, testJobID)
	if done != 1 || failed != 0 {
		t.Fatalf("counts drifted: done=%d failed=%d", done, failed)
	}
}

func TestWorkerProgressAndTerminalEvent(t *testing.T) {
	fx := newWorkerFixture(t, &stubFetcher{asset: "crypto", series: candleSeries(80)})
	seedJob(t, fx.store, testJobID, "AAA", "BBB")
	ctx := context.Background()

	if err := fx.worker.Handle(ctx, workItem(testJobID, "AAA")); err != nil {
		t.Fatalf("Handle AAA: %v", err)
	}
	if len(fx.sink.events) != 1 {
		t.Fatalf("events = %d after first symbol, want 1", len(fx.sink.events))
	}
	first := fx.sink.events[0]
	if first.Finished || first.Done != 1 || first.Total != 2 {
		t.Fatalf("first event = %+v, want in-flight done=1 total=2", first)
	}

	if err := fx.worker.Handle(ctx, workItem(testJobID, "BBB")); err != nil {
		t.Fatalf("Handle BBB: %v", err)
	}
	last := fx.sink.events[len(fx.sink.events)-1]
	if !last.Finished || last.Done != 2 || last.Total != 2 {
		t.Fatalf("terminal event = %+v, want finished done=2 total=2", last)
	}
	if fx.metrics.finished != 1 {
		t.Fatalf("job finished metric = %d, want 1", fx.metrics.finished)
	}

	if fx.archiver.calls != 1 || len(fx.archiver.items) != 2 {
		t.Fatalf("archiver calls=%d items=%d, want one hand-off with both symbols", fx.archiver.calls, len(fx.archiver.items))
	}
	if fx.archiver.meta.JobID != testJobID {
		t.Fatalf("archived meta = %+v", fx.archiver.meta)
	}
}

// deadlineStore refuses every operation once the context deadline has
// passed, the way a real Redis client does.
type deadlineStore struct {
	cache.Service
}

func (s deadlineStore) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Service.Set(ctx, key, v, ttl)
}

func (s deadlineStore) Get(ctx context.Context, key string, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Service.Get(ctx, key, dest)
}

func (s deadlineStore) Exists(ctx context.Context, keys ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Service.Exists(ctx, keys...)
}

func (s deadlineStore) SMove(ctx context.Context, src, dst, member string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Service.SMove(ctx, src, dst, member)
}

func (s deadlineStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Service.SMembers(ctx, key)
}

func (s deadlineStore) SCard(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.Service.SCard(ctx, key)
}

// hangingFetcher blocks until the request context expires.
type hangingFetcher struct{}

func (hangingFetcher) Fetch(ctx context.Context, _, _ string, _ int) (models.Series, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hangingFetcher) Asset() string { return "crypto" }

func TestWorkerSymbolTimeoutResolvesFailure(t *testing.T) {
	mem := cache.NewMemoryStore()
	t.Cleanup(func() { mem.Close() })
	kv := deadlineStore{mem}

	metrics := newRecordingMetrics()
	log := testLogger(t)
	store := NewStore(kv, time.Hour)
	candles := ohlcv.NewCache(kv, ohlcv.NewRouter(hangingFetcher{}), metrics, log, time.Minute, 500)
	sink := &recordingSink{}
	w := NewWorker(store, candles, sink, nil, metrics, log, models.DefaultOrchestratorConfig(), 20*time.Millisecond)

	seedJob(t, store, testJobID, "BTCUSDT")
	if err := w.Handle(context.Background(), workItem(testJobID, "BTCUSDT")); err != nil {
		t.Fatalf("Handle after symbol timeout: %v", err)
	}

	ctx := context.Background()
	res, ok, err := store.Result(ctx, testJobID, "BTCUSDT")
	if err != nil || !ok {
		t.Fatalf("Result: ok=%v err=%v, want stored record", ok, err)
	}
	if res.Status != models.ResultError || res.Error != KindTimeout {
		t.Fatalf("result = %+v, want failed with kind %q", res, KindTimeout)
	}

	pending, done, failedCount, err := store.Counts(ctx, testJobID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if pending != 0 || done != 0 || failedCount != 1 {
		t.Fatalf("counts = %d/%d/%d, want 0 pending, 0 done, 1 failed", pending, done, failedCount)
	}

	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want terminal event", len(sink.events))
	}
	ev := sink.events[0]
	if !ev.Finished || ev.Failed != 1 || ev.Total != 1 {
		t.Fatalf("terminal event = %+v, want finished failed=1 total=1", ev)
	}

	if metrics.items["failed"] != 1 {
		t.Fatalf("failed items metric = %d, want 1", metrics.items["failed"])
	}
	if len(metrics.errorKinds) != 1 || metrics.errorKinds[0] != KindTimeout {
		t.Fatalf("error kinds = %v, want [%s]", metrics.errorKinds, KindTimeout)
	}
}
