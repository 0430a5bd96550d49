package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	cua "github.com/haasonsaas/cua"
	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/loop"
	"github.com/haasonsaas/cua/internal/responses"
)

type scriptedStrategy struct{ calls int }

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) PredictStep(context.Context, loop.StepInput) (loop.StepOutput, error) {
	s.calls++
	return loop.StepOutput{
		Items: responses.Items{responses.NewAssistantText("done")},
		Usage: responses.Usage{TotalTokens: 5},
	}, nil
}

func (s *scriptedStrategy) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, loop.ErrGroundingNotSupported
}

func testFactory(model string, _ *AgentKwargs, _ string) (*cua.Agent, error) {
	return cua.New(model, cua.Options{CustomLoop: &scriptedStrategy{}})
}

func TestServer_HandleResponses(t *testing.T) {
	srv := New(testFactory, "")
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	body, err := json.Marshal(ResponsesRequest{Model: "test-model", Input: json.RawMessage(`"hello"`)})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/responses", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ResponsesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Output, 1)
	require.Equal(t, int64(5), out.Usage.TotalTokens)
}

func TestServer_HandleResponses_RequiresAPIKey(t *testing.T) {
	srv := New(testFactory, "secret")
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	body, _ := json.Marshal(ResponsesRequest{Model: "test-model", Input: json.RawMessage(`"hi"`)})
	resp, err := http.Post(ts.URL+"/responses", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_HandleResponses_RejectsMissingModel(t *testing.T) {
	srv := New(testFactory, "")
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	body, _ := json.Marshal(ResponsesRequest{Input: json.RawMessage(`"hi"`)})
	resp, err := http.Post(ts.URL+"/responses", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_HandleHealth(t *testing.T) {
	srv := New(testFactory, "")
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDecodeInput_StringAndItems(t *testing.T) {
	v, err := decodeInput(json.RawMessage(`"hi"`))
	require.NoError(t, err)
	require.Equal(t, "hi", v)

	v, err = decodeInput(json.RawMessage(`[{"type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}]`))
	require.NoError(t, err)
	items, ok := v.(responses.Items)
	require.True(t, ok)
	require.Len(t, items, 1)
}
