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

package functiontool_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stargazer-ai/stargazer/pkg/tool"
	"github.com/stargazer-ai/stargazer/pkg/tool/functiontool"
)

type searchArgs struct {
	Query string `json:"query" jsonschema:"required,description=Search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"description=Number of results,default=5,minimum=1,maximum=20"`
}

func newSearchTool(t *testing.T, calls *int) tool.Tool {
	t.Helper()
	st, err := functiontool.New(
		functiontool.Config{Name: "search", Description: "Search the knowledge base"},
		func(ctx context.Context, args searchArgs) (string, error) {
			*calls++
			return fmt.Sprintf("%s/%d", args.Query, args.TopK), nil
		},
	)
	if err != nil {
		t.Fatalf("Failed to create tool: %v", err)
	}
	return st
}

func TestNew_Schema(t *testing.T) {
	var calls int
	st := newSearchTool(t, &calls)

	if st.Name() != "search" {
		t.Errorf("Expected name 'search', got %q", st.Name())
	}
	if st.Transport() != tool.TransportInProcess {
		t.Errorf("Expected in-process transport, got %q", st.Transport())
	}

	schema := st.Schema()
	if schema["type"] != "object" {
		t.Errorf("Expected type 'object', got %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("Properties not found or wrong type")
	}
	if _, ok := props["query"]; !ok {
		t.Error("Property 'query' not found in schema")
	}
	topK, ok := props["top_k"].(map[string]any)
	if !ok {
		t.Fatal("Property 'top_k' not found in schema")
	}
	if topK["type"] != "integer" {
		t.Errorf("Expected top_k type 'integer', got %v", topK["type"])
	}

	required, ok := schema["required"].([]any)
	if !ok || len(required) != 1 || required[0] != "query" {
		t.Errorf("Expected required [query], got %v", schema["required"])
	}
}

func TestCall_JSONNumbers(t *testing.T) {
	var calls int
	st := newSearchTool(t, &calls)

	// Arguments decoded from JSON carry float64 numbers.
	res, err := st.Call(context.Background(), map[string]any{"query": "venus", "top_k": float64(3)})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Display != "venus/3" {
		t.Errorf("Expected 'venus/3', got %q", res.Display)
	}
	if res.Value != "venus/3" {
		t.Errorf("Expected value 'venus/3', got %v", res.Value)
	}
}

func TestCall_StringCoercion(t *testing.T) {
	var calls int
	st := newSearchTool(t, &calls)

	res, err := st.Call(context.Background(), map[string]any{"query": "mars", "top_k": "7"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Display != "mars/7" {
		t.Errorf("Expected 'mars/7', got %q", res.Display)
	}
}

func TestCall_DefaultApplied(t *testing.T) {
	var calls int
	st := newSearchTool(t, &calls)

	res, err := st.Call(context.Background(), map[string]any{"query": "saturn"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Display != "saturn/5" {
		t.Errorf("Expected default top_k 5, got %q", res.Display)
	}
}

func TestCall_UndeclaredArgsDropped(t *testing.T) {
	var calls int
	st := newSearchTool(t, &calls)

	if _, err := st.Call(context.Background(), map[string]any{"query": "moon", "language": "en"}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestCall_ValidationRejectsBeforeRunning(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing required", map[string]any{"top_k": 3}},
		{"wrong type", map[string]any{"query": "sun", "top_k": "many"}},
		{"below minimum", map[string]any{"query": "sun", "top_k": 0}},
		{"above maximum", map[string]any{"query": "sun", "top_k": 50}},
		{"nil args", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			st := newSearchTool(t, &calls)

			_, err := st.Call(context.Background(), tt.args)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), "invalid arguments for search") {
				t.Errorf("Unexpected error: %v", err)
			}
			if calls != 0 {
				t.Errorf("Function must not run on invalid arguments, ran %d times", calls)
			}
		})
	}
}

type chart struct {
	Path string  `json:"path"`
	Sun  float64 `json:"sun"`
}

func (c chart) Display() string { return c.Path }

func TestCall_StructuredResult(t *testing.T) {
	type args struct {
		Name string `json:"name" jsonschema:"required"`
	}

	ct, err := functiontool.New(
		functiontool.Config{Name: "draw", Description: "Draw a chart"},
		func(ctx context.Context, a args) (chart, error) {
			return chart{Path: "charts/" + a.Name + ".svg", Sun: 123.5}, nil
		},
	)
	if err != nil {
		t.Fatalf("Failed to create tool: %v", err)
	}

	res, err := ct.Call(context.Background(), map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Display != "charts/ada.svg" {
		t.Errorf("Expected display path, got %q", res.Display)
	}
	if got := res.ModelContent(); got != `{"path":"charts/ada.svg","sun":123.5}` {
		t.Errorf("Unexpected model content %s", got)
	}
}

func TestCall_MapResultDisplaysJSON(t *testing.T) {
	type noArgs struct{}

	mt, err := functiontool.New(
		functiontool.Config{Name: "status", Description: "Status"},
		func(ctx context.Context, _ noArgs) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	)
	if err != nil {
		t.Fatalf("Failed to create tool: %v", err)
	}

	res, err := mt.Call(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Display != `{"ok":true}` {
		t.Errorf("Unexpected display %q", res.Display)
	}
}

func TestCall_FunctionError(t *testing.T) {
	boom := errors.New("ephemeris unavailable")
	et, err := functiontool.New(
		functiontool.Config{Name: "fail", Description: "Always fails"},
		func(ctx context.Context, a searchArgs) (string, error) {
			return "", boom
		},
	)
	if err != nil {
		t.Fatalf("Failed to create tool: %v", err)
	}

	_, err = et.Call(context.Background(), map[string]any{"query": "x"})
	if !errors.Is(err, boom) {
		t.Errorf("Expected function error, got %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	fn := func(ctx context.Context, a searchArgs) (string, error) { return "", nil }

	if _, err := functiontool.New(functiontool.Config{Description: "d"}, fn); err == nil {
		t.Error("Expected error for missing name")
	}
	if _, err := functiontool.New(functiontool.Config{Name: "n"}, fn); err == nil {
		t.Error("Expected error for missing description")
	}
}
