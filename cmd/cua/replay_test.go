package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/trajectory"
)

func TestReplayCmd_RoundTripsSavedTurns(t *testing.T) {
	dir := t.TempDir()
	w, err := trajectory.New(trajectory.Config{Dir: dir}, "replay-run", "gpt-test")
	require.NoError(t, err)

	input := responses.Items{responses.NewUserText("click submit")}
	output := responses.Items{responses.NewAssistantText("clicked")}
	require.NoError(t, w.WriteTurn(0, input, output))
	w.RecordUsage("openai", "gpt-test", responses.Usage{PromptTokens: 1, CompletionTokens: 1})
	require.NoError(t, w.Finalize(nil))

	cmd := buildReplayCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{w.RunDir()})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "ok")
}

func TestReplayCmd_MissingDirErrors(t *testing.T) {
	cmd := buildReplayCmd()
	cmd.SetArgs([]string{"/nonexistent/run-dir"})
	cmd.SilenceErrors = true
	require.Error(t, cmd.Execute())
}
