package grounding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	calls   int
	failN   int
	result  Point
	succeed bool
}

func (f *fakeBackend) PredictClick(ctx context.Context, imageB64, instruction string) (Point, bool, error) {
	f.calls++
	if f.calls <= f.failN {
		return Point{}, false, nil
	}
	return f.result, f.succeed, nil
}

func TestResolve_CachesOnSuccess(t *testing.T) {
	cache := NewCache()
	backend := &fakeBackend{result: Point{X: 10, Y: 20}, succeed: true}

	p, err := Resolve(context.Background(), backend, cache, "img", "Save button", 3)
	require.NoError(t, err)
	require.Equal(t, Point{X: 10, Y: 20}, p)
	require.Equal(t, 1, backend.calls)

	p2, err := Resolve(context.Background(), backend, cache, "img", "Save button", 3)
	require.NoError(t, err)
	require.Equal(t, p, p2)
	require.Equal(t, 1, backend.calls, "second resolve should hit cache, not call backend again")
}

func TestResolve_RetriesThenFails(t *testing.T) {
	cache := NewCache()
	backend := &fakeBackend{failN: 10}

	_, err := Resolve(context.Background(), backend, cache, "img", "missing widget", 2)
	require.Error(t, err)
	require.Equal(t, 3, backend.calls) // initial + 2 retries
}

func TestReverseLookup(t *testing.T) {
	cache := NewCache()
	cache.Set("Save button", Point{X: 412, Y: 77})
	desc, ok := cache.ReverseLookup(412, 77)
	require.True(t, ok)
	require.Equal(t, "Save button", desc)

	_, ok = cache.ReverseLookup(1, 1)
	require.False(t, ok)
}

func TestExtractLastBBoxCenter(t *testing.T) {
	x, y, ok := extractLastBBoxCenter("noise [[100,100,200,200]] more [[300,300,500,500]]")
	require.True(t, ok)
	require.Equal(t, 400.0, x)
	require.Equal(t, 400.0, y)
}

func TestExtractFirstPoint(t *testing.T) {
	x, y, ok := extractFirstPoint("click at [[42, 84]]")
	require.True(t, ok)
	require.Equal(t, 42.0, x)
	require.Equal(t, 84.0, y)
}
