// Package plugin implements a typed observer registry in place of a
// process-global "row added" hook: a named Factory produces a Listener bound to the
// running engine, and the engine calls every registered Listener
// synchronously after each successful admission.
package plugin

import (
	"fmt"

	"github.com/relsubset/subsetter/internal/model"
)

// RowAddedEvent is dispatched synchronously after a row is buffered (or
// inserted, if buffering is disabled) into a target table's pending/done
// state.
type RowAddedEvent struct {
	Schema      string
	Table       string
	Row         *model.Row
	Prioritized bool
}

// Listener receives engine notifications. Implementations must not mutate
// engine state; the call happens on the scheduler's own goroutine and
// blocks the loop until it returns.
type Listener interface {
	OnRowAdded(event RowAddedEvent)
}

// Host is the subset of engine state a Factory needs to construct a
// Listener, currently just enough to name the run for logging. Kept
// narrow on purpose: plugins observe, they don't steer.
type Host interface {
	RunLabel() string
}

// Factory builds a Listener for a named plugin, given the running engine.
type Factory func(Host) (Listener, error)

// Registry maps plugin names (as passed to --import) to their Factory.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named factory. Re-registering a name overwrites it.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build resolves and constructs every named plugin against host, in order.
// An unknown name is a fatal configuration error.
func (r *Registry) Build(host Host, names []string) ([]Listener, error) {
	listeners := make([]Listener, 0, len(names))
	for _, name := range names {
		factory, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("plugin: unknown module %q", name)
		}
		l, err := factory(host)
		if err != nil {
			return nil, fmt.Errorf("plugin: build %q: %w", name, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}
