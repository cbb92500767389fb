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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stargazer-ai/stargazer/pkg/agent"
	"github.com/stargazer-ai/stargazer/pkg/rag"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

var (
	dataPrefix     = []byte("data: ")
	frameEnd       = []byte("\n")
	heartbeatFrame = []byte(": heartbeat\n\n")
)

type ragContextFrame struct {
	Type    string            `json:"type"`
	Context []rag.ContextItem `json:"context"`
}

type chunkFrame struct {
	Chunk string `json:"chunk"`
}

type startResponseFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type toolUseFrame struct {
	Role     string         `json:"role"`
	Type     string         `json:"type"`
	ToolID   string         `json:"tool_id"`
	ToolName string         `json:"tool_name"`
	ToolArgs map[string]any `json:"tool_args"`
	Content  string         `json:"content"`
}

type toolResultFrame struct {
	Role       string `json:"role"`
	Type       string `json:"type"`
	ToolName   string `json:"tool_name"`
	ToolID     string `json:"tool_id"`
	ToolResult string `json:"tool_result"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type streamEndFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

// payload maps an event to its wire shape.
func payload(ev agent.Event) (any, error) {
	switch ev.Kind {
	case agent.EventRagContext:
		items := ev.Items
		if items == nil {
			items = []rag.ContextItem{}
		}
		return ragContextFrame{Type: "rag_context", Context: items}, nil
	case agent.EventTokenChunk:
		return chunkFrame{Chunk: ev.Text}, nil
	case agent.EventModelStart:
		return startResponseFrame{Type: "start_response"}, nil
	case agent.EventToolCallStart:
		args := ev.Arguments
		if args == nil {
			args = map[string]any{}
		}
		return toolUseFrame{
			Role:     "ai",
			Type:     "tool_use",
			ToolID:   ev.ToolID,
			ToolName: ev.ToolName,
			ToolArgs: args,
			Content:  fmt.Sprintf("Using tool %s...", ev.ToolName),
		}, nil
	case agent.EventToolCallEnd:
		return toolResultFrame{
			Role:       "ai",
			Type:       "tool_result",
			ToolName:   ev.ToolName,
			ToolID:     ev.ToolID,
			ToolResult: ev.Result,
		}, nil
	case agent.EventError:
		return errorFrame{Type: "error", Message: ev.Message}, nil
	case agent.EventStreamEnd:
		return streamEndFrame{
			Type:      "stream_end",
			SessionID: ev.SessionID,
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// Encoder writes server-sent event frames and flushes each one.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
	buf     bytes.Buffer
	json    *json.Encoder
}

// NewEncoder sets the event-stream headers on w and returns an encoder
// for it. w must implement http.Flusher.
func NewEncoder(w http.ResponseWriter) (*Encoder, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return newEncoder(w, flusher), nil
}

func newEncoder(w io.Writer, flusher http.Flusher) *Encoder {
	e := &Encoder{w: w, flusher: flusher}
	e.json = json.NewEncoder(&e.buf)
	e.json.SetEscapeHTML(false)
	return e
}

// WriteEvent writes ev as one data frame.
func (e *Encoder) WriteEvent(ev agent.Event) error {
	p, err := payload(ev)
	if err != nil {
		return err
	}

	e.buf.Reset()
	e.buf.Write(dataPrefix)
	// Encode terminates the value with a newline.
	if err := e.json.Encode(p); err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", ev.Kind, err)
	}
	e.buf.Write(frameEnd)
	return e.flush(e.buf.Bytes())
}

// WriteHeartbeat writes a comment frame carrying no data.
func (e *Encoder) WriteHeartbeat() error {
	return e.flush(heartbeatFrame)
}

// WriteEnd writes the terminal stream_end frame.
func (e *Encoder) WriteEnd(sessionID string, at time.Time) error {
	return e.WriteEvent(agent.StreamEnd(sessionID, at))
}

func (e *Encoder) flush(frame []byte) error {
	if _, err := e.w.Write(frame); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
