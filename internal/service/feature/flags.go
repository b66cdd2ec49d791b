// Package feature provides a small runtime feature-flag service with a
// KV-store override layer, so flags can be flipped without a restart.
package feature

import (
	"context"
	"sync"

	"Draks/pkg/cache"
)

// Known flags.
const (
	FlagBatch = "draks_batch"
)

// Flags answers feature predicates. Static defaults come from config;
// per-flag overrides live in the KV store under flag:{name}.
type Flags struct {
	kv cache.Service

	mu       sync.RWMutex
	defaults map[string]bool
}

// New creates a flag service. kv may be nil for static-only flags.
func New(kv cache.Service, defaults map[string]bool) *Flags {
	if defaults == nil {
		defaults = map[string]bool{}
	}
	return &Flags{kv: kv, defaults: defaults}
}

// Enabled reports whether a flag is on. Unknown flags default to true
// so that shipping a new endpoint never requires a flag rollout.
func (f *Flags) Enabled(ctx context.Context, name string) bool {
	if f.kv != nil {
		var v bool
		// Miss or a degraded store both fall back to the static default.
		if err := f.kv.Get(ctx, "flag:"+name, &v); err == nil {
			return v
		}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if v, ok := f.defaults[name]; ok {
		return v
	}
	return true
}

// SetDefault changes the static default for a flag.
func (f *Flags) SetDefault(name string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults[name] = enabled
}
