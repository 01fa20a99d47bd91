// Package registry maps engine names to evaluator factories.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/ratlab/pkg/evaluator/calc"
	"github.com/aretw0/ratlab/pkg/evaluator/js"
	"github.com/aretw0/ratlab/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// ErrUnknownEngine is returned by Build for names nobody registered.
var ErrUnknownEngine = errors.New("unknown engine")

// Builder creates an evaluator factory from engine settings.
// Settings are free-form; each engine decodes the keys it knows.
type Builder func(settings map[string]any) (ports.EvaluatorFactory, error)

// Registry manages the available engines.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Default returns a registry with the built-in engines.
func Default() *Registry {
	r := NewRegistry()
	r.Register(calc.Name, func(map[string]any) (ports.EvaluatorFactory, error) {
		return calc.Factory(), nil
	})
	r.Register(js.Name, buildJS)
	return r
}

// Register adds an engine to the registry.
// If an engine with the same name exists, it is overwritten.
func (r *Registry) Register(name string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = b
}

// Build looks up an engine by name and builds its factory.
func (r *Registry) Build(name string, settings map[string]any) (ports.EvaluatorFactory, error) {
	r.mu.RLock()
	b, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEngine, name)
	}
	return b(settings)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered engine names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func buildJS(settings map[string]any) (ports.EvaluatorFactory, error) {
	cfg := js.DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(settings); err != nil {
		return nil, fmt.Errorf("invalid js settings: %w", err)
	}
	return js.Factory(cfg), nil
}
