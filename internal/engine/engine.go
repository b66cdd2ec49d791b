// Package engine hosts the strategy engines behind the decision
// pipeline. Engines are synchronous, CPU-bound and never perform I/O.
package engine

import (
	"fmt"
	"sync"

	"Draks/internal/domain/models"
)

// Engine produces one DecisionResult from OHLCV history. Run never
// fails: on insufficient history it returns hold with zero confidence.
type Engine interface {
	ID() string
	Run(req *models.DecisionRequest) *models.DecisionResult
}

// ErrUnknownEngine reports a lookup for an unregistered engine id.
type ErrUnknownEngine struct{ ID string }

func (e *ErrUnknownEngine) Error() string { return fmt.Sprintf("unknown engine: %s", e.ID) }

var (
	regMu    sync.RWMutex
	registry = map[string]func() Engine{}
	order    []string
)

// Register installs an engine constructor under its id. Called from
// init funcs; duplicate registration panics.
func Register(id string, ctor func() Engine) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[id]; dup {
		panic("engine: duplicate registration of " + id)
	}
	registry[id] = ctor
	order = append(order, id)
}

// New constructs the engine registered under id.
func New(id string) (Engine, error) {
	regMu.RLock()
	ctor, ok := registry[id]
	regMu.RUnlock()
	if !ok {
		return nil, &ErrUnknownEngine{ID: id}
	}
	return ctor(), nil
}

// IDs returns all registered engine ids in registration order.
func IDs() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// RunAll runs every registered engine against the request and returns
// the results keyed by engine id. Iteration follows registration order.
func RunAll(req *models.DecisionRequest) map[string]*models.DecisionResult {
	results := make(map[string]*models.DecisionResult, len(order))
	for _, id := range IDs() {
		e, err := New(id)
		if err != nil {
			continue
		}
		r := *req
		r.EngineID = id
		results[id] = e.Run(&r)
	}
	return results
}
