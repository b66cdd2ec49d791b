package engine

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var paramValidate = validator.New()

// Engine parameter structs carry their tuning defaults in struct tags.
// Overrides come from the request's params map; an override set that
// fails validation is discarded wholesale so an engine can always run.

func validOrDefault[T any](p *T) {
	if err := paramValidate.Struct(p); err != nil {
		var fresh T
		_ = defaults.Set(&fresh)
		*p = fresh
	}
}

func intParam(m map[string]float64, key string, dst *int) {
	if v, ok := m[key]; ok && v == float64(int(v)) {
		*dst = int(v)
	}
}

func floatParam(m map[string]float64, key string, dst *float64) {
	if v, ok := m[key]; ok {
		*dst = v
	}
}
