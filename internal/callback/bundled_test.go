package callback

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/responses"
)

func TestPromptInstructions_PrependsOnce(t *testing.T) {
	p := NewPromptInstructions("Always confirm before deleting files.")
	history := responses.Items{responses.NewUserText("delete the file")}

	out, err := p.OnLLMStart(context.Background(), history)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "Always confirm before deleting files.", out[0].Content[0].Text)

	out2, err := p.OnLLMStart(context.Background(), out)
	require.NoError(t, err)
	require.Equal(t, out, out2)
}

func TestTelemetry_RespectsDisableEnvVar(t *testing.T) {
	t.Setenv("CUA_TELEMETRY", "off")
	var events []string
	tel := NewTelemetry(func(event string, _ map[string]any) { events = append(events, event) })

	require.NoError(t, tel.OnRunStart(context.Background(), "run1"))
	require.NoError(t, tel.OnRunEnd(context.Background(), "run1"))
	require.Empty(t, events)
}

func TestTelemetry_EnabledByDefault(t *testing.T) {
	os.Unsetenv("CUA_TELEMETRY")
	os.Unsetenv("CUA_TELEMETRY_ENABLED")
	var events []string
	tel := NewTelemetry(func(event string, _ map[string]any) { events = append(events, event) })

	require.NoError(t, tel.OnRunStart(context.Background(), "run1"))
	require.NoError(t, tel.OnRunEnd(context.Background(), "run1"))
	require.Equal(t, []string{"run_start", "run_end"}, events)
}

func TestLogging_HooksDoNotError(t *testing.T) {
	l := NewLogging(nil)
	ctx := context.Background()
	require.NoError(t, l.OnRunStart(ctx, "run1"))
	require.NoError(t, l.OnAPIStart(ctx, "openai", "gpt-test"))
	require.NoError(t, l.OnUsage(ctx, responses.Usage{PromptTokens: 1}))
	require.NoError(t, l.OnComputerCallStart(ctx, "call_1", responses.Action{Type: responses.ActionClick}))
	require.NoError(t, l.OnAPIEnd(ctx, "openai", "gpt-test"))
	require.NoError(t, l.OnRunEnd(ctx, "run1"))
}
