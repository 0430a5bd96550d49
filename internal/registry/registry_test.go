package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_HighestPriorityWins(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("generic", `.*`, 0, func(string) (any, error) { return "generic", nil }))
	require.NoError(t, r.Register("claude", `^claude-`, 10, func(string) (any, error) { return "claude", nil }))

	f, name, err := r.Resolve("claude-opus-4")
	require.NoError(t, err)
	require.Equal(t, "claude", name)
	v, err := f("claude-opus-4")
	require.NoError(t, err)
	require.Equal(t, "claude", v)
}

func TestResolve_TiesBrokenByRegistrationOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("first", `^gpt-`, 5, func(string) (any, error) { return "first", nil }))
	require.NoError(t, r.Register("second", `^gpt-`, 5, func(string) (any, error) { return "second", nil }))

	_, name, err := r.Resolve("gpt-5")
	require.NoError(t, err)
	require.Equal(t, "first", name)
}

func TestResolve_NoMatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("claude", `^claude-`, 0, func(string) (any, error) { return nil, nil }))
	_, _, err := r.Resolve("gemini-2.5")
	require.Error(t, err)
}
