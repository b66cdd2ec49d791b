package batch

import (
	"context"
	"errors"
	"time"

	"Draks/internal/domain/models"
	"Draks/internal/engine"
	"Draks/internal/ohlcv"
	"Draks/internal/orchestrator"
	"Draks/internal/progress"
	"Draks/pkg/logger"
	"Draks/pkg/queue"
)

type workerMetrics interface {
	RecordBatchItem(status string)
	RecordError(kind string)
	JobFinished(seconds float64)
	RecordLatency(op string, seconds float64)
}

// Archiver receives finished jobs for long-term storage. Archiving is
// best-effort and must not affect job state.
type Archiver interface {
	ArchiveJob(ctx context.Context, meta *models.JobMeta, items []models.JobResult)
}

// resolveTimeout bounds the store writes and progress publishing that
// follow a symbol's computation. It is independent of the per-symbol
// deadline.
const resolveTimeout = 10 * time.Second

// Worker consumes batch work items from the queue: one symbol per
// message. Every outcome, success or failure, resolves the symbol and
// publishes a progress event; the queue never retries a resolved symbol.
type Worker struct {
	store     *Store
	candles   *ohlcv.Cache
	sink      progress.Sink
	archiver  Archiver
	metrics   workerMetrics
	log       *logger.Logger
	orchCfg   models.OrchestratorConfig
	symbolTTL time.Duration
}

// NewWorker creates a batch worker. archiver may be nil.
func NewWorker(
	store *Store,
	candles *ohlcv.Cache,
	sink progress.Sink,
	archiver Archiver,
	metrics workerMetrics,
	log *logger.Logger,
	orchCfg models.OrchestratorConfig,
	symbolTimeout time.Duration,
) *Worker {
	return &Worker{
		store:     store,
		candles:   candles,
		sink:      sink,
		archiver:  archiver,
		metrics:   metrics,
		log:       log,
		orchCfg:   orchCfg,
		symbolTTL: symbolTimeout,
	}
}

func (w *Worker) Name() string { return "batch-decision-worker" }
func (w *Worker) Type() string { return MessageTypeDecide }

// Handle processes one symbol. It returns an error only when the
// outcome could not be persisted, which is the one case worth a retry.
func (w *Worker) Handle(ctx context.Context, payload interface{}) error {
	item, err := queue.ParsePayload[WorkItem](payload)
	if err != nil {
		w.log.Error("batch payload unreadable", logger.Error(err))
		return err
	}

	symCtx, cancelSym := context.WithTimeout(ctx, w.symbolTTL)
	start := time.Now()
	res := w.process(symCtx, item)
	cancelSym()
	w.metrics.RecordLatency("batch_symbol", time.Since(start).Seconds())

	// The outcome must be persisted even when the symbol deadline has
	// already fired; a timed-out symbol that never leaves pending would
	// strand the whole job.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
	defer cancel()

	moved, err := w.store.Resolve(ctx, item.JobID, res)
	if err != nil {
		return err
	}
	if !moved {
		// Redelivery of an already-resolved symbol.
		w.log.Debug("symbol already resolved",
			logger.String("job_id", item.JobID),
			logger.String("symbol", item.Symbol))
		return nil
	}

	if res.Status == models.ResultOK {
		w.metrics.RecordBatchItem("done")
	} else {
		w.metrics.RecordBatchItem("failed")
		w.metrics.RecordError(res.Error)
	}

	w.publishProgress(ctx, item.JobID)
	return nil
}

// process computes the decision for one symbol; it never returns an
// error, every failure mode becomes a failed JobResult with a kind.
func (w *Worker) process(ctx context.Context, item *WorkItem) models.JobResult {
	series, err := w.candles.Get(ctx, item.Asset, item.Symbol, item.Timeframe, item.Limit)
	if err != nil {
		return failed(item.Symbol, classify(err))
	}
	if len(series) < models.MinDecisionBars {
		return failed(item.Symbol, KindInsufficientData)
	}

	req := &models.DecisionRequest{
		Symbol:    item.Symbol,
		Timeframe: item.Timeframe,
		OHLCV:     series,
	}
	results := engine.RunAll(req)

	consensus, err := orchestrator.BuildConsensus(item.Symbol, item.Timeframe, series, results, w.orchCfg, 0)
	if err != nil {
		return failed(item.Symbol, classify(err))
	}

	return models.JobResult{
		Symbol: item.Symbol,
		Status: models.ResultOK,
		Draks: &models.DecisionBlock{
			Consensus: *consensus,
			Engines:   results,
			AsOf:      time.Now().UTC(),
		},
	}
}

// publishProgress emits the current counts and, when the pending set
// just drained, the terminal event plus archive hand-off.
func (w *Worker) publishProgress(ctx context.Context, jobID string) {
	pending, done, failedCount, err := w.store.Counts(ctx, jobID)
	if err != nil {
		w.log.Warn("progress counts unavailable",
			logger.String("job_id", jobID), logger.Error(err))
		return
	}

	ev := models.ProgressEvent{
		JobID:  jobID,
		Done:   done,
		Failed: failedCount,
		Total:  done + failedCount + pending,
	}
	if pending > 0 {
		w.sink.Publish(ctx, ev)
		return
	}

	first, err := w.store.MarkFinalized(ctx, jobID)
	if err != nil {
		w.log.Warn("finalize mark failed", logger.String("job_id", jobID), logger.Error(err))
	}
	if !first && err == nil {
		return
	}

	meta, err := w.store.Meta(ctx, jobID)
	if err != nil {
		w.log.Warn("finalize meta unavailable",
			logger.String("job_id", jobID), logger.Error(err))
		w.sink.Publish(ctx, ev)
		return
	}

	ev.Total = meta.Total
	ev.Finished = true
	ev.DurationMS = time.Since(meta.StartedAt).Milliseconds()
	w.sink.Publish(ctx, ev)
	w.metrics.JobFinished(time.Since(meta.StartedAt).Seconds())

	w.log.Info("batch job complete",
		logger.String("job_id", jobID),
		logger.Int("done", done),
		logger.Int("failed", failedCount),
		logger.Int64("duration_ms", ev.DurationMS))

	if w.archiver != nil {
		w.archive(ctx, meta)
	}
}

func (w *Worker) archive(ctx context.Context, meta *models.JobMeta) {
	_, done, failedSet, err := w.store.Sets(ctx, meta.JobID)
	if err != nil {
		w.log.Warn("archive skipped", logger.String("job_id", meta.JobID), logger.Error(err))
		return
	}
	items := make([]models.JobResult, 0, len(done)+len(failedSet))
	for _, sym := range append(done, failedSet...) {
		res, ok, err := w.store.Result(ctx, meta.JobID, sym)
		if err != nil || !ok {
			continue
		}
		items = append(items, *res)
	}
	w.archiver.ArchiveJob(ctx, meta, items)
}

func failed(symbol, kind string) models.JobResult {
	return models.JobResult{Symbol: symbol, Status: models.ResultError, Error: kind}
}

// classify maps an error to its stable kind string.
func classify(err error) string {
	var unknown *engine.ErrUnknownEngine
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ohlcv.ErrInvalidRequest):
		return KindInvalidInput
	case errors.Is(err, ohlcv.ErrFetchFailed):
		return KindFetchFailed
	case errors.Is(err, orchestrator.ErrInsufficientData):
		return KindInsufficientData
	case errors.As(err, &unknown):
		return KindUnknownEngine
	default:
		return KindInternalError
	}
}
