// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"time"

	"github.com/stargazer-ai/stargazer/pkg/rag"
)

// EventKind discriminates Event.
type EventKind string

const (
	// EventModelStart marks a reasoning turn that follows tool results.
	EventModelStart    EventKind = "model_start"
	EventTokenChunk    EventKind = "token_chunk"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventRagContext    EventKind = "rag_context"
	EventError         EventKind = "error"
	// EventStreamEnd is appended by the transport, never by Run.
	EventStreamEnd EventKind = "stream_end"
)

// Event is one item of a request's ordered event sequence. Only the fields
// belonging to Kind are set.
type Event struct {
	Kind EventKind

	// Text is the TokenChunk increment.
	Text string

	// ToolID correlates a ToolCallStart with its ToolCallEnd.
	ToolID    string
	ToolName  string
	Arguments map[string]any
	// Result is the client-facing rendering of the tool result.
	Result string

	// Items is the RagContext payload.
	Items []rag.ContextItem

	// Message is the Error payload, safe to show to clients.
	Message string

	SessionID string
	Timestamp time.Time
}

func ModelStart() Event {
	return Event{Kind: EventModelStart}
}

func TokenChunk(text string) Event {
	return Event{Kind: EventTokenChunk, Text: text}
}

func ToolCallStart(id, name string, args map[string]any) Event {
	if args == nil {
		args = map[string]any{}
	}
	return Event{Kind: EventToolCallStart, ToolID: id, ToolName: name, Arguments: args}
}

func ToolCallEnd(id, name, result string) Event {
	return Event{Kind: EventToolCallEnd, ToolID: id, ToolName: name, Result: result}
}

func RagContext(items []rag.ContextItem) Event {
	return Event{Kind: EventRagContext, Items: items}
}

func Error(message string) Event {
	return Event{Kind: EventError, Message: message}
}

func StreamEnd(sessionID string, at time.Time) Event {
	return Event{Kind: EventStreamEnd, SessionID: sessionID, Timestamp: at}
}
