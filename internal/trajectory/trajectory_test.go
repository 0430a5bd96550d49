package trajectory

import (
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/responses"
)

func TestWriter_WriteTurnAndFinalize(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir}, "abc123", "gpt-test")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "run-abc123"), w.RunDir())

	input := responses.Items{responses.NewUserText("click submit")}
	output := responses.Items{responses.NewComputerCall("call_1", responses.Action{
		Type: responses.ActionClick, Button: responses.ButtonLeft, X: 10, Y: 20,
	})}
	require.NoError(t, w.WriteTurn(0, input, output))

	png := base64.StdEncoding.EncodeToString([]byte("not a real png"))
	require.NoError(t, w.WriteScreenshot(0, png))

	w.RecordUsage("openai", "gpt-test", responses.Usage{PromptTokens: 5, CompletionTokens: 7, ResponseCost: 0.01})
	w.RecordUsage("openai", "gpt-test", responses.Usage{PromptTokens: 3, CompletionTokens: 2, ResponseCost: 0.002})

	require.NoError(t, w.Finalize(nil))

	meta, err := Load(w.RunDir())
	require.NoError(t, err)
	require.Equal(t, "abc123", meta.RunID)
	require.Equal(t, 1, meta.Turns)
	require.InDelta(t, 0.012, meta.TotalUsage.ResponseCost, 1e-9)
	entry, ok := meta.CostByModel["openai/gpt-test"]
	require.True(t, ok)
	require.Equal(t, int64(2), entry.Calls)
	require.InDelta(t, 0.012, entry.CostUSD, 1e-9)

	gotIn, gotOut, err := LoadTurn(w.RunDir(), 0)
	require.NoError(t, err)
	require.Equal(t, input, gotIn)
	require.Equal(t, output, gotOut)
}

func TestNew_ResetOnRunClearsExisting(t *testing.T) {
	dir := t.TempDir()
	first, err := New(Config{Dir: dir}, "first", "m")
	require.NoError(t, err)
	require.NoError(t, first.Finalize(nil))

	second, err := New(Config{Dir: dir, ResetOnRun: true}, "second", "m")
	require.NoError(t, err)
	require.NoError(t, second.Finalize(nil))

	_, err = Load(first.RunDir())
	require.Error(t, err)
}

func TestWriter_FinalizeRecordsRunError(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Dir: dir}, "errrun", "m")
	require.NoError(t, err)
	require.NoError(t, w.Finalize(errFake{}))

	meta, err := Load(w.RunDir())
	require.NoError(t, err)
	require.Equal(t, "boom", meta.Error)
}

type errFake struct{}

func (errFake) Error() string { return "boom" }
