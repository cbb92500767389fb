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
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// toolCallIDPrefix marks tool call ids generated here rather than by the model.
const toolCallIDPrefix = "call_"

// Session is the state of one request. It is created by Run and discarded
// when Run returns; nothing is shared between requests.
type Session struct {
	ID string

	// pending maps started tool ids to their tool names until the call ends.
	pending map[string]string
	// used holds every tool id handed out, so ids stay unique per request.
	used map[string]bool

	turn strings.Builder
	// lastActivity is unix nanoseconds and never decreases.
	lastActivity atomic.Int64
}

func newSession(id string) *Session {
	s := &Session{
		ID:      id,
		pending: make(map[string]string),
		used:    make(map[string]bool),
	}
	s.Touch()
	return s
}

// Touch records activity now.
func (s *Session) Touch() {
	now := time.Now().UnixNano()
	for {
		last := s.lastActivity.Load()
		if now <= last || s.lastActivity.CompareAndSwap(last, now) {
			return
		}
	}
}

// LastActivity returns the time of the most recent event.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Pending returns the number of started tool calls that have not ended.
func (s *Session) Pending() int {
	return len(s.pending)
}

// assignToolID returns the model's id when it is set and unused, otherwise
// a fresh generated one.
func (s *Session) assignToolID(modelID string) string {
	id := modelID
	for id == "" || s.used[id] {
		id = toolCallIDPrefix + uuid.NewString()
	}
	s.used[id] = true
	return id
}

func (s *Session) startTool(id, name string) {
	s.pending[id] = name
}

// endTool reports whether id was pending.
func (s *Session) endTool(id string) bool {
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

func (s *Session) resetTurn() {
	s.turn.Reset()
}

func (s *Session) appendTurn(text string) {
	s.turn.WriteString(text)
}

func (s *Session) turnText() string {
	return s.turn.String()
}
