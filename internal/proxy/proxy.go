// Package proxy implements the Integrations Surface (§6.4): a thin HTTP
// front end over the root cua package's Agent, grounded on the teacher's
// internal/gateway/http_server.go (stdlib http.ServeMux, one handler per
// route, a Server struct owning the mux) and ws_control_plane.go (the
// gorilla/websocket upgrade idiom reused here for the streaming
// supplement).
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	cua "github.com/haasonsaas/cua"
	"github.com/haasonsaas/cua/internal/obs"
	"github.com/haasonsaas/cua/internal/responses"
)

// AgentKwargs carries the subset of Options (§6.1) a /responses caller may
// override per request, beyond the required model.
type AgentKwargs struct {
	Instructions          string `json:"instructions,omitempty"`
	MaxRetries            int    `json:"max_retries,omitempty"`
	OnlyNMostRecentImages int    `json:"only_n_most_recent_images,omitempty"`
	UsePromptCaching      bool   `json:"use_prompt_caching,omitempty"`
	Verbosity             int    `json:"verbosity,omitempty"`
}

// AgentFactory builds (or looks up) a *cua.Agent for model, applying
// kwargs and env (the computer handler's environment hint, §2) on top of
// whatever base cua.Options the caller's closure already captured. This
// package imports the root cua package directly rather than declaring its
// own Agent/Turn interfaces — internal packages may import the module's
// root package freely (Go's internal-import restriction runs the other
// direction), and re-declaring the public API shape here would just be a
// second copy to keep in sync.
type AgentFactory func(model string, kwargs *AgentKwargs, env string) (*cua.Agent, error)

// ResponsesRequest is the body of POST /responses and the first frame of
// GET /responses/stream.
type ResponsesRequest struct {
	Model       string          `json:"model"`
	Input       json.RawMessage `json:"input"`
	AgentKwargs *AgentKwargs    `json:"agent_kwargs,omitempty"`
	Env         string          `json:"env,omitempty"`
}

// ResponsesResponse is the body of a successful POST /responses: every
// item produced across the run's turns, concatenated in order, plus the
// final cumulative usage (§6.2).
type ResponsesResponse struct {
	Output responses.Items `json:"output"`
	Usage  responses.Usage `json:"usage"`
}

// Server is the HTTP front end. Construct with New, mount with Mux.
type Server struct {
	Factory AgentFactory
	APIKey  string
	Logger  *obs.Logger

	upgrader websocket.Upgrader
}

// New returns a Server. apiKey is optional; when set, every request must
// carry a matching X-API-Key header (§6.4).
func New(factory AgentFactory, apiKey string) *Server {
	return &Server{
		Factory: factory,
		APIKey:  apiKey,
		Logger:  obs.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Mux builds the route table: POST /responses, GET /responses/stream
// (websocket, supplemented per SPEC_FULL.md), GET /health.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/responses", s.auth(http.HandlerFunc(s.handleResponses)))
	mux.Handle("/responses/stream", s.auth(http.HandlerFunc(s.handleResponsesStream)))
	return mux
}

func (s *Server) auth(next http.Handler) http.Handler {
	if s.APIKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != s.APIKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing X-API-Key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req ResponsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	if req.Model == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}

	input, err := decodeInput(req.Input)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	agent, err := s.Factory(req.Model, req.AgentKwargs, req.Env)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	turns, err := agent.RunCollect(r.Context(), input)
	if err != nil {
		s.Logger.Error(r.Context(), "run failed", "model", req.Model, "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := ResponsesResponse{}
	for _, t := range turns {
		resp.Output = append(resp.Output, t.Output...)
		resp.Usage = t.Usage
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResponsesStream is the supplemented streaming surface
// (SPEC_FULL.md supplement #1): the first client message is a
// ResponsesRequest; each subsequent server frame is one Turn, in order,
// as the orchestrator yields it.
func (s *Server) handleResponsesStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req ResponsesRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(map[string]string{"error": fmt.Sprintf("decode request: %v", err)})
		return
	}
	if req.Model == "" {
		_ = conn.WriteJSON(map[string]string{"error": "model is required"})
		return
	}

	input, err := decodeInput(req.Input)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	agent, err := s.Factory(req.Model, req.AgentKwargs, req.Env)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	turns, err := agent.Run(ctx, input)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	for t := range turns {
		if err := conn.WriteJSON(ResponsesResponse{Output: t.Output, Usage: t.Usage}); err != nil {
			s.Logger.Warn(r.Context(), "websocket write failed", "error", err)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// decodeInput accepts either a bare user-text string or a full prior
// responses.Items array (§6.2 resumption input).
func decodeInput(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var items responses.Items
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	return nil, errors.New("proxy: input must be a string or an items array")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
