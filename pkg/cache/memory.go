package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

func (m *memoryItem) expired() bool {
	return !m.expireAt.IsZero() && time.Now().After(m.expireAt)
}

// MemoryStore implements Service in process memory. Values are kept as
// JSON bytes so Get/Set round-trips match the Redis implementation
// byte for byte. Sets live in a separate map and do not count against
// the LRU bound.
type MemoryStore struct {
	mu            sync.RWMutex
	data          map[string]*memoryItem
	access        map[string]time.Time
	sets          map[string]map[string]struct{}
	setExpire     map[string]time.Time
	maxSize       int
	cleanupTicker *time.Ticker
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryStore{
		data:          make(map[string]*memoryItem),
		access:        make(map[string]time.Time),
		sets:          make(map[string]map[string]struct{}),
		setExpire:     make(map[string]time.Time),
		maxSize:       cfg.MaxSize,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryStore) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return err
		}
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}

	var expireAt time.Time
	if expiration > 0 {
		expireAt = time.Now().Add(expiration)
	}
	mc.data[key] = &memoryItem{data: data, expireAt: expireAt}
	mc.access[key] = time.Now()
	return nil
}

func (mc *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, exists := mc.data[key]
	if !exists || item.expired() {
		if exists {
			delete(mc.data, key)
			delete(mc.access, key)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.access[key] = time.Now()
	data := item.data
	mc.mu.Unlock()

	switch d := dest.(type) {
	case *[]byte:
		*d = data
		return nil
	case *string:
		*d = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (mc *MemoryStore) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
		delete(mc.sets, key)
		delete(mc.setExpire, key)
	}
	return nil
}

func (mc *MemoryStore) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.expired() {
			return true, nil
		}
		if _, ok := mc.sets[key]; ok && !mc.setExpired(key) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryStore) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if item, ok := mc.data[key]; ok {
		item.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	if _, ok := mc.sets[key]; ok {
		mc.setExpire[key] = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := mc.set(key)
	for _, m := range members {
		s[m] = struct{}{}
	}
	return nil
}

func (mc *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := mc.set(key)
	for _, m := range members {
		delete(s, m)
	}
	return nil
}

func (mc *MemoryStore) SMove(_ context.Context, src, dst, member string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := mc.set(src)
	if _, ok := s[member]; !ok {
		return false, nil
	}
	delete(s, member)
	mc.set(dst)[member] = struct{}{}
	return true, nil
}

func (mc *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if mc.setExpired(key) {
		return nil, nil
	}
	s := mc.sets[key]
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	return out, nil
}

func (mc *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if mc.setExpired(key) {
		return 0, nil
	}
	return int64(len(mc.sets[key])), nil
}

// set returns the live member map for key, creating it when absent.
// Callers hold mc.mu.
func (mc *MemoryStore) set(key string) map[string]struct{} {
	if mc.setExpired(key) {
		delete(mc.sets, key)
		delete(mc.setExpire, key)
	}
	s, ok := mc.sets[key]
	if !ok {
		s = make(map[string]struct{})
		mc.sets[key] = s
	}
	return s
}

func (mc *MemoryStore) setExpired(key string) bool {
	exp, ok := mc.setExpire[key]
	return ok && time.Now().After(exp)
}

func (mc *MemoryStore) evictLRU() {
	var oldestKey string
	oldestTime := time.Now()

	for key, accessTime := range mc.access {
		if accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

func (mc *MemoryStore) cleanupExpired() {
	for range mc.cleanupTicker.C {
		mc.mu.Lock()
		for key, item := range mc.data {
			if item.expired() {
				delete(mc.data, key)
				delete(mc.access, key)
			}
		}
		for key := range mc.sets {
			if mc.setExpired(key) {
				delete(mc.sets, key)
				delete(mc.setExpire, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the cleanup ticker.
func (mc *MemoryStore) Close() error {
	if mc.cleanupTicker != nil {
		mc.cleanupTicker.Stop()
	}
	return nil
}
