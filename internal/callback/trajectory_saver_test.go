package callback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/obs"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/trajectory"
)

func TestTrajectorySaver_PersistsTurnAndUsage(t *testing.T) {
	dir := t.TempDir()
	w, err := trajectory.New(trajectory.Config{Dir: dir}, "run1", "test-model")
	require.NoError(t, err)

	saver := NewTrajectorySaver(w)
	ctx := context.WithValue(context.Background(), obs.TurnKey, 0)

	input := responses.Items{responses.NewUserText("click it")}
	_, err = saver.OnLLMStart(ctx, input)
	require.NoError(t, err)

	require.NoError(t, saver.OnAPIStart(ctx, "openai", "test-model"))
	require.NoError(t, saver.OnUsage(ctx, responses.Usage{PromptTokens: 1, ResponseCost: 0.5}))

	output := responses.Items{responses.NewAssistantText("done")}
	require.NoError(t, saver.OnResponses(ctx, output))
	require.NoError(t, saver.OnRunEnd(ctx, "run1"))

	meta, err := trajectory.Load(w.RunDir())
	require.NoError(t, err)
	require.Equal(t, 1, meta.Turns)
	require.InDelta(t, 0.5, meta.TotalUsage.ResponseCost, 1e-9)

	gotIn, gotOut, err := trajectory.LoadTurn(w.RunDir(), 0)
	require.NoError(t, err)
	require.Equal(t, input, gotIn)
	require.Equal(t, output, gotOut)
}
