// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stargazer-ai/stargazer/pkg/agent"
	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

const (
	maxRequestBytes = 1 << 20

	msgEmptyQuery     = "query must not be empty"
	msgNotInitialized = "agent not initialized"
	msgTimeout        = "The request timed out before an answer was produced."
)

// ChatRequest is the body of /chat and /chat/stream.
type ChatRequest struct {
	Query      string `json:"query" validate:"required"`
	IncludeRAG *bool  `json:"include_rag,omitempty"`
	SessionID  string `json:"session_id,omitempty" validate:"omitempty,max=256"`
	UserID     string `json:"user_id,omitempty" validate:"omitempty,max=256"`
}

func (r *ChatRequest) input() agent.Input {
	includeRAG := true
	if r.IncludeRAG != nil {
		includeRAG = *r.IncludeRAG
	}
	if r.SessionID == "" {
		r.SessionID = "session_" + uuid.NewString()
	}
	return agent.Input{Query: r.Query, IncludeRAG: includeRAG, SessionID: r.SessionID}
}

// ChatResponse is the body of a successful /chat.
type ChatResponse struct {
	Response   string            `json:"response"`
	RagContext []rag.ContextItem `json:"rag_context"`
	ToolsUsed  []string          `json:"tools_used"`
	Success    bool              `json:"success"`
	Timestamp  string            `json:"timestamp"`
	SessionID  string            `json:"session_id"`
}

type chatFailure struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

type agentStatus struct {
	Status    string `json:"status"`
	AgentInfo any    `json:"agent_info"`
	Timestamp string `json:"timestamp"`
}

type toolList struct {
	Tools []tool.Descriptor `json:"tools"`
	Count int               `json:"count"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, Timestamp: timestamp()})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": timestamp(),
		"version":   s.version,
	})
}

func (s *HTTPServer) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		writeJSON(w, http.StatusOK, agentStatus{
			Status: "not_initialized",
			AgentInfo: map[string]any{
				"agent_initialized": false,
				"error":             msgNotInitialized,
			},
			Timestamp: timestamp(),
		})
		return
	}

	writeJSON(w, http.StatusOK, agentStatus{
		Status:    "ready",
		AgentInfo: s.agent.Info(),
		Timestamp: timestamp(),
	})
}

func (s *HTTPServer) handleTools(w http.ResponseWriter, r *http.Request) {
	tools := []tool.Descriptor{}
	if s.tools != nil {
		tools = s.tools.Descriptors()
	}
	writeJSON(w, http.StatusOK, toolList{Tools: tools, Count: len(tools)})
}

// decodeChat reads and validates a chat request. On failure the response
// is already written.
func (s *HTTPServer) decodeChat(w http.ResponseWriter, r *http.Request) (*ChatRequest, bool) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if err := s.validate.Struct(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		msg := msgEmptyQuery
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() != "Query" {
			msg = "invalid field " + verrs[0].Field()
		}
		writeError(w, http.StatusBadRequest, msg)
		return nil, false
	}

	if s.agent == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotInitialized)
		return nil, false
	}
	return &req, true
}

// events runs the agent for one request. Events stop being delivered when
// ctx is canceled. When the configured request timeout expires before the
// agent finished, an error event is appended.
func (s *HTTPServer) events(ctx context.Context, in agent.Input) <-chan agent.Event {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.RequestTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}

	out := make(chan agent.Event)
	go func() {
		defer close(out)
		defer cancel()

		deliver, failed := true, false
		for ev := range s.agent.Stream(runCtx, in) {
			if ev.Kind == agent.EventError {
				failed = true
			}
			if !deliver {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				deliver = false
			}
		}

		if deliver && !failed && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			slog.Warn("Chat request timed out", "session_id", in.SessionID, "timeout", s.cfg.RequestTimeout)
			select {
			case out <- agent.Error(msgTimeout):
			case <-ctx.Done():
			}
		}
	}()
	return out
}

func (s *HTTPServer) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	enc, err := NewEncoder(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	in := req.input()
	w.WriteHeader(http.StatusOK)
	enc.flusher.Flush()

	start := time.Now()
	stats, err := Pump(ctx, enc, s.events(ctx, in), s.cfg.HeartbeatInterval, in.SessionID)

	outcome := "completed"
	switch {
	case err != nil:
		outcome = "disconnected"
	case stats.Errored:
		outcome = "failed"
	}

	metrics := s.obs.Metrics()
	metrics.RecordStream(ctx, outcome, time.Since(start))
	for range stats.Heartbeats {
		metrics.RecordHeartbeat(ctx)
	}

	slog.Info("Chat stream finished",
		"session_id", in.SessionID,
		"request_id", chimw.GetReqID(r.Context()),
		"outcome", outcome,
		"frames", stats.Frames,
		"heartbeats", stats.Heartbeats,
		"duration", time.Since(start),
	)
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	in := req.input()
	sum := agent.Collect(s.events(ctx, in))
	if sum.Failed() {
		writeJSON(w, http.StatusInternalServerError, chatFailure{
			Success:   false,
			Error:     sum.Err,
			Timestamp: timestamp(),
			SessionID: in.SessionID,
		})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:   sum.Response,
		RagContext: sum.RagContext,
		ToolsUsed:  sum.ToolsUsed,
		Success:    true,
		Timestamp:  timestamp(),
		SessionID:  in.SessionID,
	})
}
