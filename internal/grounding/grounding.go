// Package grounding implements the Grounding Subsystem (§3.5, §4.6.C/D):
// predict_click backends that resolve a natural-language element
// description to screen pixel coordinates, and the per-run grounding cache
// that lets the composed planner+grounder strategy show the planner model
// element-level semantics instead of raw pixels it never produced.
package grounding

import (
	"context"
	"fmt"
	"sync"
)

// Point is a resolved screen coordinate.
type Point struct {
	X, Y float64
}

// Backend is a predict_click implementation (§3.5): given a screenshot and
// a natural-language instruction, it returns the pixel location of the
// described element, or ok=false if it could not locate one.
type Backend interface {
	PredictClick(ctx context.Context, imageB64, instruction string) (p Point, ok bool, err error)
}

// Cache is the per-run `element_description → (x,y)` mapping (§3.5). It is
// mutated only inside the composed strategy's grounding pass, which the
// single-threaded run orchestrator guarantees is never called concurrently
// with itself — the mutex exists only to make that invariant load-bearing
// rather than implicit, and to let diagnostics tools read it from another
// goroutine safely.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Point
}

// NewCache returns an empty grounding cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Point)}
}

// Get returns the cached coordinates for description, if any.
func (c *Cache) Get(description string) (Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[description]
	return p, ok
}

// Set records the resolved coordinates for description.
func (c *Cache) Set(description string, p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[description] = p
}

// ReverseLookup returns the element_description whose cached coordinates
// exactly match (x,y), used to rewrite historical computer_call actions
// back into element-level semantics (§4.6.D step 2) before a planner
// re-reads its own history.
func (c *Cache) ReverseLookup(x, y float64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for desc, p := range c.entries {
		if p.X == x && p.Y == y {
			return desc, true
		}
	}
	return "", false
}

// ErrGroundingFailed is returned when a backend exhausts its retries
// without locating description (§7 GroundingFailure).
type ErrGroundingFailed struct {
	Description string
}

func (e *ErrGroundingFailed) Error() string {
	return fmt.Sprintf("grounding: could not locate element %q", e.Description)
}

// Resolve calls backend up to maxRetries+1 times for description against
// imageB64, caching and returning the first successful hit. It returns
// ErrGroundingFailed after exhausting retries, matching §7's
// GroundingFailure semantics (the caller converts that into a failed
// computer_call + synthetic function_call_output; Resolve itself never
// mutates conversation items).
func Resolve(ctx context.Context, backend Backend, cache *Cache, imageB64, description string, maxRetries int) (Point, error) {
	if p, ok := cache.Get(description); ok {
		return p, nil
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Point{}, err
		}
		p, ok, err := backend.PredictClick(ctx, imageB64, description)
		if err != nil {
			lastErr = err
			continue
		}
		if !ok {
			lastErr = &ErrGroundingFailed{Description: description}
			continue
		}
		cache.Set(description, p)
		return p, nil
	}
	if lastErr == nil {
		lastErr = &ErrGroundingFailed{Description: description}
	}
	return Point{}, lastErr
}
