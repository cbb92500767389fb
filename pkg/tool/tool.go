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

// Package tool defines the tools the agent can invoke and the registry
// holding them.
//
// Tools come from two transports:
//
//	in-process        - Go functions (functiontool, knowledgetool, charttool)
//	subprocess-stdio  - MCP servers spawned once at startup (mcptoolset)
//
// The registry is built once at startup and never changes afterwards, so it
// can be shared by concurrent requests without locking.
//
// # Creating Tools
//
//	chart, err := functiontool.New(
//	    functiontool.Config{Name: "natal_figure", Description: "Draw a natal chart"},
//	    func(ctx context.Context, args ChartArgs) (Chart, error) { ... },
//	)
//
//	registry, err := tool.NewRegistry(chart, knowledge...)
package tool

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a tool name is not registered.
var ErrNotFound = errors.New("tool not found")

// Transport identifies how a tool is executed.
type Transport string

const (
	TransportInProcess Transport = "in-process"
	TransportStdio     Transport = "subprocess-stdio"
)

// Tool is a callable capability exposed to the model.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema returns the JSON schema for the tool's arguments.
	Schema() map[string]any

	Transport() Transport

	// Call executes the tool. Arguments are the decoded JSON object the
	// model produced.
	Call(ctx context.Context, args map[string]any) (Result, error)
}

// Result is the output of one tool call.
type Result struct {
	// Value is returned to the model. Non-string values are sent as JSON.
	Value any

	// Display is shown to the client.
	Display string
}

// Text returns a Result whose model and client views are the same string.
func Text(s string) Result {
	return Result{Value: s, Display: s}
}

// ModelContent renders Value for the model conversation.
func (r Result) ModelContent() string {
	switch v := r.Value.(type) {
	case nil:
		return r.Display
	case string:
		return v
	case json.RawMessage:
		return string(v)
	}
	data, err := json.Marshal(r.Value)
	if err != nil {
		return r.Display
	}
	return string(data)
}

// Definition represents a tool definition for LLM function calling.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition converts a tool to a Definition.
func ToDefinition(t Tool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}

// ToolCall represents an LLM's request to invoke a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Predicate determines whether a tool should be registered.
type Predicate func(t Tool) bool

// StringPredicate creates a Predicate that allows only named tools.
// An empty list allows every tool.
func StringPredicate(allowedTools []string) Predicate {
	if len(allowedTools) == 0 {
		return AllowAll()
	}
	allowed := make(map[string]bool, len(allowedTools))
	for _, name := range allowedTools {
		allowed[name] = true
	}
	return func(t Tool) bool {
		return allowed[t.Name()]
	}
}

// AllowAll returns a Predicate that allows all tools.
func AllowAll() Predicate {
	return func(Tool) bool { return true }
}
