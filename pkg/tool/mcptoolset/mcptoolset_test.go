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

package mcptoolset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

type fakeCaller struct {
	result *mcp.CallToolResult
	err    error
	got    mcp.CallToolRequest
}

func (f *fakeCaller) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.got = req
	return f.result, f.err
}

func searchTool() mcp.Tool {
	return mcp.NewTool("web_search",
		mcp.WithDescription("Search the web"),
		mcp.WithString("query", mcp.Required()),
	)
}

func TestCheckPreconditions(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(present, []byte("//"), 0o644))

	t.Setenv("STARGAZER_TEST_PRESENT", "1")

	tests := []struct {
		name    string
		src     config.MCPSourceConfig
		wantErr string
	}{
		{
			name: "all satisfied",
			src: config.MCPSourceConfig{
				Name:          "ok",
				RequiresFiles: []string{present},
				RequiresEnv:   []string{"STARGAZER_TEST_PRESENT"},
			},
		},
		{
			name:    "missing file",
			src:     config.MCPSourceConfig{Name: "f", RequiresFiles: []string{filepath.Join(dir, "nope.js")}},
			wantErr: "not found",
		},
		{
			name:    "missing env",
			src:     config.MCPSourceConfig{Name: "e", RequiresEnv: []string{"STARGAZER_TEST_ABSENT_VAR"}},
			wantErr: "STARGAZER_TEST_ABSENT_VAR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPreconditions(tt.src)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnect_SkipsUnavailableSources(t *testing.T) {
	ts := Connect(context.Background(), []config.MCPSourceConfig{
		{
			Name:          "web_search",
			Command:       "node",
			RequiresFiles: []string{filepath.Join(t.TempDir(), "missing.js")},
		},
		{
			Name:        "astro_mcp",
			Command:     "node",
			RequiresEnv: []string{"STARGAZER_TEST_ABSENT_VAR"},
		},
	}, "stargazer", "test")
	defer ts.Close()

	assert.Empty(t, ts.Tools())
	assert.Empty(t, ts.Sources())
	skipped := ts.Skipped()
	assert.Len(t, skipped, 2)
	assert.Contains(t, skipped, "web_search")
	assert.Contains(t, skipped, "astro_mcp")
}

func TestSourceEnv_PassesRequiredVariables(t *testing.T) {
	t.Setenv("SEARCH_API_KEY", "secret")
	env := sourceEnv(config.MCPSourceConfig{
		Env:         map[string]string{"MODE": "fast"},
		RequiresEnv: []string{"SEARCH_API_KEY"},
	})
	assert.ElementsMatch(t, []string{"MODE=fast", "SEARCH_API_KEY=secret"}, env)
}

func TestTool_CallText(t *testing.T) {
	caller := &fakeCaller{result: &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent("first result"),
			mcp.NewTextContent("second result"),
		},
	}}
	w := NewTool(caller, "web_search", searchTool())

	assert.Equal(t, "web_search", w.Name())
	assert.Equal(t, "Search the web", w.Description())
	assert.Equal(t, tool.TransportStdio, w.Transport())
	assert.Equal(t, "object", w.Schema()["type"])

	res, err := w.Call(context.Background(), map[string]any{"query": "saturn return"})
	require.NoError(t, err)
	assert.Equal(t, "first result\nsecond result", res.Display)
	assert.Equal(t, "first result\nsecond result", res.ModelContent())
	assert.Equal(t, "web_search", caller.got.Params.Name)
	assert.Equal(t, map[string]any{"query": "saturn return"}, caller.got.Params.Arguments)
}

func TestTool_CallStructured(t *testing.T) {
	caller := &fakeCaller{result: &mcp.CallToolResult{
		StructuredContent: map[string]any{"sun": "Capricorn"},
	}}
	w := NewTool(caller, "astro_mcp", mcp.NewTool("planets"))

	res, err := w.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sun":"Capricorn"}`, res.ModelContent())
	assert.JSONEq(t, `{"sun":"Capricorn"}`, res.Display)
}

func TestTool_CallErrors(t *testing.T) {
	w := NewTool(&fakeCaller{result: &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.NewTextContent("quota exceeded")},
	}}, "web_search", searchTool())
	_, err := w.Call(context.Background(), map[string]any{"query": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	w = NewTool(&fakeCaller{err: errors.New("broken pipe")}, "web_search", searchTool())
	_, err = w.Call(context.Background(), map[string]any{"query": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}
