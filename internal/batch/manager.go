package batch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"Draks/internal/domain/models"
	"Draks/pkg/logger"
	"Draks/pkg/queue"
	"Draks/pkg/util"
)

var (
	symbolPattern = regexp.MustCompile(`^[A-Z0-9./:-]{1,20}$`)
	jobIDPattern  = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// MessageTypeDecide is the queue message type consumed by batch workers.
const MessageTypeDecide = "batch.decide"

// WorkItem is the payload of one queued batch unit: a single symbol.
type WorkItem struct {
	JobID     string `json:"job_id"`
	Symbol    string `json:"symbol"`
	Asset     string `json:"asset"`
	Timeframe string `json:"timeframe"`
	Limit     int    `json:"limit"`
}

// ValidJobID reports whether s looks like an issued job id.
func ValidJobID(s string) bool { return jobIDPattern.MatchString(s) }

type managerMetrics interface {
	JobStarted()
	RecordError(kind string)
}

// Manager owns job submission and queries. Per-symbol processing lives
// in Worker.
type Manager struct {
	store      *Store
	queue      queue.Service
	metrics    managerMetrics
	log        *logger.Logger
	maxSymbols int
}

// NewManager creates a batch manager.
func NewManager(store *Store, q queue.Service, metrics managerMetrics, log *logger.Logger, maxSymbols int) *Manager {
	return &Manager{
		store:      store,
		queue:      q,
		metrics:    metrics,
		log:        log,
		maxSymbols: maxSymbols,
	}
}

// Submit validates a batch request, persists the job, and enqueues one
// work item per symbol. Symbol lists beyond the configured maximum are
// truncated, not rejected. Returns the issued job id and accepted total.
func (m *Manager) Submit(ctx context.Context, userID string, req *models.BatchSubmitRequest) (*models.BatchSubmitResponse, error) {
	if !util.ValidTimeframe(req.Timeframe) {
		return nil, fmt.Errorf("%w: %q", ErrBadTimeframe, req.Timeframe)
	}

	symbols := normalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if len(symbols) > m.maxSymbols {
		m.log.Warn("batch symbol list truncated",
			logger.Int("requested", len(symbols)),
			logger.Int("max", m.maxSymbols))
		symbols = symbols[:m.maxSymbols]
	}

	jobID, err := newJobID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	meta := models.JobMeta{
		JobID:     jobID,
		UserID:    userID,
		Asset:     req.Asset,
		Timeframe: req.Timeframe,
		Limit:     req.Limit,
		Total:     len(symbols),
		StartedAt: time.Now().UTC(),
	}
	if err := m.store.CreateJob(ctx, meta, symbols); err != nil {
		return nil, err
	}
	m.metrics.JobStarted()

	for _, sym := range symbols {
		item := WorkItem{
			JobID:     jobID,
			Symbol:    sym,
			Asset:     req.Asset,
			Timeframe: req.Timeframe,
			Limit:     req.Limit,
		}
		if err := m.queue.PublishMessage(ctx, MessageTypeDecide, item); err != nil {
			// The job record exists and some symbols may already be
			// queued; surface the error so the caller can retry whole.
			m.metrics.RecordError(KindInternalError)
			return nil, fmt.Errorf("enqueue %s: %w", sym, err)
		}
	}

	m.log.Info("batch job submitted",
		logger.String("job_id", jobID),
		logger.String("user_id", userID),
		logger.Int("total", len(symbols)))

	return &models.BatchSubmitResponse{JobID: jobID, Total: len(symbols)}, nil
}

// Status returns the job snapshot. Only the submitting user or an admin
// may read it.
func (m *Manager) Status(ctx context.Context, jobID, userID string, admin bool) (*models.JobStatus, error) {
	meta, err := m.authorize(ctx, jobID, userID, admin)
	if err != nil {
		return nil, err
	}

	pending, done, failed, err := m.store.Sets(ctx, jobID)
	if err != nil {
		return nil, err
	}
	sort.Strings(pending)
	sort.Strings(done)
	sort.Strings(failed)

	return &models.JobStatus{
		JobID:     meta.JobID,
		UserID:    meta.UserID,
		Total:     meta.Total,
		Pending:   pending,
		Done:      done,
		Failed:    failed,
		StartedAt: meta.StartedAt,
	}, nil
}

// ResultsFilter narrows a results query. Zero values match everything.
type ResultsFilter struct {
	Status   string // "ok" or "error"
	Decision string // consensus label: buy, sell, hold
	Symbol   string // case-insensitive substring
	Limit    int    // cap on returned items, 0 = all
}

// Results returns resolved per-symbol results matching the filter,
// sorted by symbol. Pending symbols are not included.
func (m *Manager) Results(ctx context.Context, jobID, userID string, admin bool, filter ResultsFilter) (*models.BatchResultsResponse, error) {
	if _, err := m.authorize(ctx, jobID, userID, admin); err != nil {
		return nil, err
	}

	_, done, failed, err := m.store.Sets(ctx, jobID)
	if err != nil {
		return nil, err
	}

	symbols := append(done, failed...)
	sort.Strings(symbols)

	items := make([]models.JobResult, 0, len(symbols))
	for _, sym := range symbols {
		res, ok, err := m.store.Result(ctx, jobID, sym)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Result expired ahead of the set entry.
			continue
		}
		if matchesFilter(res, filter) {
			items = append(items, *res)
			if filter.Limit > 0 && len(items) == filter.Limit {
				break
			}
		}
	}

	return &models.BatchResultsResponse{JobID: jobID, Items: items}, nil
}

// Authorize verifies the job exists and the caller may read it.
func (m *Manager) Authorize(ctx context.Context, jobID, userID string, admin bool) error {
	_, err := m.authorize(ctx, jobID, userID, admin)
	return err
}

func (m *Manager) authorize(ctx context.Context, jobID, userID string, admin bool) (*models.JobMeta, error) {
	if !ValidJobID(jobID) {
		return nil, ErrJobNotFound
	}
	meta, err := m.store.Meta(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !admin && meta.UserID != userID {
		return nil, ErrForbidden
	}
	return meta, nil
}

func matchesFilter(res *models.JobResult, f ResultsFilter) bool {
	if f.Status != "" && res.Status != f.Status {
		return false
	}
	if f.Decision != "" {
		if res.Draks == nil || string(res.Draks.Consensus.Label) != f.Decision {
			return false
		}
	}
	if f.Symbol != "" && !strings.Contains(strings.ToLower(res.Symbol), strings.ToLower(f.Symbol)) {
		return false
	}
	return true
}

// normalizeSymbols trims, uppercases, validates, and dedups while
// preserving first-seen order.
func normalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if !symbolPattern.MatchString(sym) {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

func newJobID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
