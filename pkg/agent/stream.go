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

package agent

import (
	"context"
	"strings"

	"github.com/stargazer-ai/stargazer/pkg/rag"
)

// Stream runs the agent in its own goroutine and returns its events. The
// channel is unbuffered, so the run advances only as fast as the consumer
// reads, and it is closed when the run ends. Canceling ctx stops the run;
// a consumer that stops reading must cancel ctx.
func (a *Agent) Stream(ctx context.Context, in Input) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		_, _ = a.Run(ctx, in, func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return events
}

// Summary is the non-streaming reduction of an event sequence.
type Summary struct {
	// Response is every token chunk concatenated and trimmed.
	Response string
	// RagContext holds the retrieved items.
	RagContext []rag.ContextItem
	// ToolsUsed lists distinct tool names in first-use order.
	ToolsUsed []string
	// Err is the Error event message, if any.
	Err string
}

// Failed reports whether the sequence carried an Error event.
func (s Summary) Failed() bool {
	return s.Err != ""
}

// Collect drains events into a Summary.
func Collect(events <-chan Event) Summary {
	var (
		b    strings.Builder
		seen = make(map[string]bool)
		sum  = Summary{RagContext: []rag.ContextItem{}, ToolsUsed: []string{}}
	)
	for ev := range events {
		switch ev.Kind {
		case EventTokenChunk:
			b.WriteString(ev.Text)
		case EventRagContext:
			sum.RagContext = append(sum.RagContext, ev.Items...)
		case EventToolCallStart:
			if ev.ToolName != "" && !seen[ev.ToolName] {
				seen[ev.ToolName] = true
				sum.ToolsUsed = append(sum.ToolsUsed, ev.ToolName)
			}
		case EventError:
			if sum.Err == "" {
				sum.Err = ev.Message
			}
		}
	}
	sum.Response = strings.TrimSpace(b.String())
	return sum
}
