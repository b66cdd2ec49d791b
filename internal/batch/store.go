package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Draks/internal/domain/models"
	"Draks/pkg/cache"
)

// Store persists job bookkeeping in the KV store. Layout per job:
//
//	job:{id}:meta          JSON JobMeta
//	job:{id}:pending       set of unresolved symbols
//	job:{id}:done          set of succeeded symbols
//	job:{id}:failed        set of failed symbols
//	job:{id}:result:{sym}  JSON JobResult
//
// Symbols move between the sets with SMOVE, so a symbol is observably
// in exactly one set at any time. Every key carries the retention TTL.
type Store struct {
	kv        cache.Service
	retention time.Duration
}

// NewStore creates a job store with the given retention.
func NewStore(kv cache.Service, retention time.Duration) *Store {
	return &Store{kv: kv, retention: retention}
}

func metaKey(jobID string) string    { return fmt.Sprintf("job:%s:meta", jobID) }
func pendingKey(jobID string) string { return fmt.Sprintf("job:%s:pending", jobID) }
func doneKey(jobID string) string    { return fmt.Sprintf("job:%s:done", jobID) }
func failedKey(jobID string) string  { return fmt.Sprintf("job:%s:failed", jobID) }
func resultKey(jobID, symbol string) string {
	return fmt.Sprintf("job:%s:result:%s", jobID, symbol)
}

// CreateJob writes the meta record and seeds the pending set.
func (s *Store) CreateJob(ctx context.Context, meta models.JobMeta, symbols []string) error {
	if err := s.kv.Set(ctx, metaKey(meta.JobID), meta, s.retention); err != nil {
		return fmt.Errorf("store job meta: %w", err)
	}
	if err := s.kv.SAdd(ctx, pendingKey(meta.JobID), symbols...); err != nil {
		return fmt.Errorf("seed pending set: %w", err)
	}
	if _, err := s.kv.Expire(ctx, pendingKey(meta.JobID), s.retention); err != nil {
		return fmt.Errorf("expire pending set: %w", err)
	}
	return nil
}

// Meta loads the job record. Returns ErrJobNotFound for unknown ids.
func (s *Store) Meta(ctx context.Context, jobID string) (*models.JobMeta, error) {
	var meta models.JobMeta
	if err := s.kv.Get(ctx, metaKey(jobID), &meta); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load job meta: %w", err)
	}
	return &meta, nil
}

// Resolve stores the per-symbol result and moves the symbol from the
// pending set to done or failed. The move reports whether this call won
// the transition; a false return means the symbol was already resolved
// (or never pending) and the caller must not double-count it.
func (s *Store) Resolve(ctx context.Context, jobID string, res models.JobResult) (bool, error) {
	if err := s.kv.Set(ctx, resultKey(jobID, res.Symbol), res, s.retention); err != nil {
		return false, fmt.Errorf("store result: %w", err)
	}

	dst := doneKey(jobID)
	if res.Status == models.ResultError {
		dst = failedKey(jobID)
	}
	moved, err := s.kv.SMove(ctx, pendingKey(jobID), dst, res.Symbol)
	if err != nil {
		return false, fmt.Errorf("move symbol: %w", err)
	}
	if moved {
		if _, err := s.kv.Expire(ctx, dst, s.retention); err != nil {
			return true, fmt.Errorf("expire %s: %w", dst, err)
		}
	}
	return moved, nil
}

// Counts returns the sizes of the three symbol sets.
func (s *Store) Counts(ctx context.Context, jobID string) (pending, done, failed int, err error) {
	p, err := s.kv.SCard(ctx, pendingKey(jobID))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("pending count: %w", err)
	}
	d, err := s.kv.SCard(ctx, doneKey(jobID))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("done count: %w", err)
	}
	f, err := s.kv.SCard(ctx, failedKey(jobID))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed count: %w", err)
	}
	return int(p), int(d), int(f), nil
}

// Sets returns the members of the three symbol sets.
func (s *Store) Sets(ctx context.Context, jobID string) (pending, done, failed []string, err error) {
	if pending, err = s.kv.SMembers(ctx, pendingKey(jobID)); err != nil {
		return nil, nil, nil, fmt.Errorf("pending members: %w", err)
	}
	if done, err = s.kv.SMembers(ctx, doneKey(jobID)); err != nil {
		return nil, nil, nil, fmt.Errorf("done members: %w", err)
	}
	if failed, err = s.kv.SMembers(ctx, failedKey(jobID)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed members: %w", err)
	}
	return pending, done, failed, nil
}

// Result loads a single per-symbol result; ok reports presence.
func (s *Store) Result(ctx context.Context, jobID, symbol string) (*models.JobResult, bool, error) {
	var res models.JobResult
	if err := s.kv.Get(ctx, resultKey(jobID, symbol), &res); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load result: %w", err)
	}
	return &res, true, nil
}

// MarkFinalized records that the terminal progress event for a job has
// been published. It reports whether this call was the first to do so.
// The check-then-set is not atomic across workers; a duplicate terminal
// event under that race is harmless, subscribers key off finished=true.
func (s *Store) MarkFinalized(ctx context.Context, jobID string) (bool, error) {
	key := fmt.Sprintf("job:%s:finalized", jobID)
	exists, err := s.kv.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check finalized: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := s.kv.Set(ctx, key, time.Now().UnixMilli(), s.retention); err != nil {
		return false, fmt.Errorf("mark finalized: %w", err)
	}
	return true, nil
}
