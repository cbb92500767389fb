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

package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/stargazer-ai/stargazer/pkg/tool"
)

// StreamingAggregator accumulates streaming deltas into the aggregated
// response yielded at the end of a streamed turn.
//
// Usage:
//
//	agg := NewStreamingAggregator()
//	for chunk := range chunks {
//	    if resp := agg.ProcessTextDelta(chunk.Text); resp != nil {
//	        yield(resp, nil)
//	    }
//	    agg.ProcessToolCallDelta(chunk.Index, chunk.ID, chunk.Name, chunk.Args)
//	}
//	final, err := agg.Close()
type StreamingAggregator struct {
	text         strings.Builder
	calls        map[int]*pendingCall
	usage        *Usage
	finishReason FinishReason
}

// pendingCall is a tool call whose arguments are still arriving.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// NewStreamingAggregator creates a new streaming aggregator.
func NewStreamingAggregator() *StreamingAggregator {
	return &StreamingAggregator{calls: make(map[int]*pendingCall)}
}

// ProcessTextDelta accumulates text and returns the partial response for
// it, or nil for an empty delta.
func (s *StreamingAggregator) ProcessTextDelta(text string) *Response {
	if text == "" {
		return nil
	}
	s.text.WriteString(text)
	return &Response{Text: text, Partial: true}
}

// ProcessToolCallDelta accumulates one fragment of the tool call at index.
// The id and name arrive on the first fragment; arguments are split across
// fragments.
func (s *StreamingAggregator) ProcessToolCallDelta(index int, id, name, args string) {
	call, ok := s.calls[index]
	if !ok {
		call = &pendingCall{}
		s.calls[index] = call
	}
	if id != "" {
		call.id = id
	}
	if name != "" {
		call.name += name
	}
	call.args.WriteString(args)
}

// SetUsage sets the usage statistics (typically from the last chunk).
func (s *StreamingAggregator) SetUsage(usage *Usage) {
	s.usage = usage
}

// SetFinishReason sets the finish reason.
func (s *StreamingAggregator) SetFinishReason(reason FinishReason) {
	if reason != "" {
		s.finishReason = reason
	}
}

// Close returns the aggregated response. Tool calls are ordered by their
// stream index and their arguments decoded; malformed arguments are an
// error.
func (s *StreamingAggregator) Close() (*Response, error) {
	indexes := make([]int, 0, len(s.calls))
	for i := range s.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	calls := make([]tool.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		c := s.calls[i]
		args, err := DecodeArguments(c.args.String())
		if err != nil {
			return nil, fmt.Errorf("tool call %q: %w", c.name, err)
		}
		calls = append(calls, tool.ToolCall{ID: c.id, Name: c.name, Args: args})
	}

	reason := s.finishReason
	if reason == "" {
		reason = FinishReasonStop
		if len(calls) > 0 {
			reason = FinishReasonToolCalls
		}
	}

	return &Response{
		Text:         s.text.String(),
		ToolCalls:    calls,
		Usage:        s.usage,
		FinishReason: reason,
	}, nil
}

// DecodeArguments parses a tool call's JSON arguments. Empty input decodes
// to an empty object.
func DecodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
