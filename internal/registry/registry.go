// Package registry implements the Agent-Loop Registry & Dispatch (§4.5): an
// ordered list of (pattern, priority, strategy_factory) entries, matched by
// a linear scan against a model id. There is no teacher analog for this —
// the original runtime's model routing lived in a provider-keyed map, not a
// pattern registry — so this package is designed fresh from the spec's own
// Design Notes guidance, in the idiom the rest of the module uses for
// similarly-shaped lookup tables (plain structs, explicit Register calls,
// no reflection).
package registry

import (
	"fmt"
	"regexp"
	"sort"
)

// Factory builds a loop strategy instance for a resolved model id. The
// concrete return type is `any`, so this package does not import
// internal/loop; callers type-assert to loop.Strategy.
type Factory func(model string) (any, error)

// entry is one registered (pattern, priority, factory) triple, plus
// registration order to break priority ties deterministically.
type entry struct {
	pattern  *regexp.Regexp
	priority int
	factory  Factory
	order    int
	name     string
}

// Registry holds the ordered dispatch table. Registry is not safe for
// concurrent Register calls; construct it fully before first Resolve.
type Registry struct {
	entries []entry
	next    int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register adds a dispatch rule: model ids matching pattern (a Go regexp,
// matched with the unanchored MatchString — so callers wanting a full-string match should
// write ^...$) are built by factory when no higher-priority, and no
// earlier-registered equal-priority, rule also matches. Higher priority
// numbers win; ties fall back to registration order (first registered
// wins), matching a stable-sort linear scan rather than arbitrary map
// iteration order.
func (r *Registry) Register(name, pattern string, priority int, factory Factory) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("registry: compile pattern %q for %s: %w", pattern, name, err)
	}
	r.entries = append(r.entries, entry{pattern: re, priority: priority, factory: factory, order: r.next, name: name})
	r.next++
	return nil
}

// Resolve returns the highest-priority factory whose pattern matches model,
// preferring the earliest-registered entry among priority ties. It performs
// a full linear scan every call by design (§4.5: "dispatch is a linear
// scan") rather than precomputing a sorted index, since registries are
// small and rebuilt rarely relative to resolve calls.
func (r *Registry) Resolve(model string) (Factory, string, error) {
	var candidates []entry
	for _, e := range r.entries {
		if e.pattern.MatchString(model) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, "", fmt.Errorf("registry: no loop strategy registered for model %q", model)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority > candidates[j].priority
		}
		return candidates[i].order < candidates[j].order
	})

	winner := candidates[0]
	return winner.factory, winner.name, nil
}

// MustRegister panics on a compile error, for use in package-level var
// initializers building the default registry.
func (r *Registry) MustRegister(name, pattern string, priority int, factory Factory) {
	if err := r.Register(name, pattern, priority, factory); err != nil {
		panic(err)
	}
}
