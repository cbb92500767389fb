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
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/agent"
	"github.com/stargazer-ai/stargazer/pkg/rag"
)

// frames splits an event-stream body into frames without separators.
func frames(body string) []string {
	body = strings.TrimSuffix(body, "\n\n")
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n\n")
}

func TestEncoder_WireShapes(t *testing.T) {
	tests := []struct {
		name string
		ev   agent.Event
		want string
	}{
		{
			name: "chunk",
			ev:   agent.TokenChunk("Sun in \"Leo\" <b>\n"),
			want: `data: {"chunk":"Sun in \"Leo\" <b>\n"}`,
		},
		{
			name: "start_response",
			ev:   agent.ModelStart(),
			want: `data: {"type":"start_response","content":""}`,
		},
		{
			name: "tool_use",
			ev:   agent.ToolCallStart("call_1", "natal_figure", map[string]any{"lat": 1.5}),
			want: `data: {"role":"ai","type":"tool_use","tool_id":"call_1","tool_name":"natal_figure","tool_args":{"lat":1.5},"content":"Using tool natal_figure..."}`,
		},
		{
			name: "tool_use without args",
			ev:   agent.Event{Kind: agent.EventToolCallStart, ToolID: "x", ToolName: "t"},
			want: `data: {"role":"ai","type":"tool_use","tool_id":"x","tool_name":"t","tool_args":{},"content":"Using tool t..."}`,
		},
		{
			name: "tool_result",
			ev:   agent.ToolCallEnd("call_1", "natal_figure", "charts/a.svg"),
			want: `data: {"role":"ai","type":"tool_result","tool_name":"natal_figure","tool_id":"call_1","tool_result":"charts/a.svg"}`,
		},
		{
			name: "rag_context",
			ev:   agent.RagContext([]rag.ContextItem{{Score: 0.9, Question: "q", Answer: "a"}}),
			want: `data: {"type":"rag_context","context":[{"score":0.9,"question":"q","answer":"a","metadata":null}]}`,
		},
		{
			name: "error",
			ev:   agent.Error("boom"),
			want: `data: {"type":"error","message":"boom"}`,
		},
		{
			name: "stream_end",
			ev:   agent.StreamEnd("s1", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
			want: `data: {"type":"stream_end","session_id":"s1","timestamp":"2025-01-02T03:04:05Z"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			enc, err := NewEncoder(rec)
			require.NoError(t, err)

			require.NoError(t, enc.WriteEvent(tt.ev))
			assert.Equal(t, tt.want+"\n\n", rec.Body.String())
			assert.True(t, rec.Flushed)
		})
	}
}

func TestEncoder_Heartbeat(t *testing.T) {
	rec := httptest.NewRecorder()
	enc, err := NewEncoder(rec)
	require.NoError(t, err)

	require.NoError(t, enc.WriteHeartbeat())
	assert.Equal(t, ": heartbeat\n\n", rec.Body.String())
}

func TestEncoder_Headers(t *testing.T) {
	rec := httptest.NewRecorder()
	_, err := NewEncoder(rec)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
}

type plainWriter struct {
	http.ResponseWriter
}

func TestEncoder_RequiresFlusher(t *testing.T) {
	_, err := NewEncoder(plainWriter{httptest.NewRecorder()})
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

func TestEncoder_UnknownKind(t *testing.T) {
	rec := httptest.NewRecorder()
	enc, err := NewEncoder(rec)
	require.NoError(t, err)

	assert.Error(t, enc.WriteEvent(agent.Event{Kind: "bogus"}))
	assert.Empty(t, rec.Body.String())
}

func TestEncoder_Deterministic(t *testing.T) {
	ev := agent.RagContext([]rag.ContextItem{
		{Score: 0.91, Question: "What is a trine?", Answer: "120 degrees", Metadata: map[string]any{"b": 2, "a": 1}},
	})

	var out []string
	for range 2 {
		rec := httptest.NewRecorder()
		enc, err := NewEncoder(rec)
		require.NoError(t, err)
		require.NoError(t, enc.WriteEvent(ev))
		out = append(out, rec.Body.String())
	}
	assert.Equal(t, out[0], out[1])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestEncoder_WriteError(t *testing.T) {
	enc := newEncoder(failingWriter{}, nil)
	assert.Error(t, enc.WriteEvent(agent.TokenChunk("x")))
	assert.Error(t, enc.WriteHeartbeat())
}
