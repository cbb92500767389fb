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

// Package mcptoolset exposes tools served by MCP (Model Context Protocol)
// servers running as stdio subprocesses.
//
// Each source is checked before it is started: required files must exist
// and required environment variables must be set. A source failing its
// preconditions, or failing to start, is logged and skipped so the rest of
// the agent still initializes. Started subprocesses live until Close and
// are never restarted.
package mcptoolset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

const protocolVersion = "2024-11-05"

// Caller is the part of an MCP client used by the wrapped tools.
type Caller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Toolset holds the connected MCP servers and their tools.
type Toolset struct {
	mu      sync.Mutex
	clients map[string]*client.Client
	tools   []tool.Tool
	skipped map[string]string
}

// Connect starts every source whose preconditions hold and lists its tools.
// It never fails because of a single source; the reasons for skipped
// sources are available from Skipped.
func Connect(ctx context.Context, sources []config.MCPSourceConfig, clientName, clientVersion string) *Toolset {
	ts := &Toolset{
		clients: make(map[string]*client.Client),
		skipped: make(map[string]string),
	}

	for _, src := range sources {
		if err := CheckPreconditions(src); err != nil {
			slog.Warn("MCP tool source unavailable, skipping", "source", src.Name, "reason", err)
			ts.skipped[src.Name] = err.Error()
			continue
		}

		c, tools, err := connectStdio(ctx, src, clientName, clientVersion)
		if err != nil {
			slog.Warn("MCP tool source failed to start, skipping", "source", src.Name, "error", err)
			ts.skipped[src.Name] = err.Error()
			continue
		}

		ts.clients[src.Name] = c
		ts.tools = append(ts.tools, tools...)
		slog.Info("Connected to MCP server (stdio)",
			"source", src.Name,
			"command", src.Command,
			"tools", len(tools))
	}
	return ts
}

// CheckPreconditions reports why src cannot be started, or nil.
func CheckPreconditions(src config.MCPSourceConfig) error {
	for _, f := range src.RequiresFiles {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("required file %s not found", f)
		}
	}
	for _, name := range src.RequiresEnv {
		if os.Getenv(name) == "" {
			return fmt.Errorf("environment variable %s is not set", name)
		}
	}
	return nil
}

// Tools returns the tools of every connected source.
func (ts *Toolset) Tools() []tool.Tool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]tool.Tool, len(ts.tools))
	copy(out, ts.tools)
	return out
}

// Sources returns the names of connected sources.
func (ts *Toolset) Sources() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	names := make([]string, 0, len(ts.clients))
	for name := range ts.clients {
		names = append(names, name)
	}
	return names
}

// Skipped maps each skipped source to the reason.
func (ts *Toolset) Skipped() map[string]string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make(map[string]string, len(ts.skipped))
	for k, v := range ts.skipped {
		out[k] = v
	}
	return out
}

// Close terminates every subprocess.
func (ts *Toolset) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var errs []error
	for name, c := range ts.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	ts.clients = map[string]*client.Client{}
	ts.tools = nil
	return errors.Join(errs...)
}

func connectStdio(ctx context.Context, src config.MCPSourceConfig, clientName, clientVersion string) (*client.Client, []tool.Tool, error) {
	mcpClient, err := client.NewStdioMCPClient(src.Command, sourceEnv(src), src.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}
	initReq.Params.ProtocolVersion = protocolVersion
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		_ = mcpClient.Close()
		return nil, nil, fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = mcpClient.Close()
		return nil, nil, fmt.Errorf("failed to list tools: %w", err)
	}

	allowed := tool.StringPredicate(src.Filter)
	tools := make([]tool.Tool, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		w := NewTool(mcpClient, src.Name, t)
		if allowed(w) {
			tools = append(tools, w)
		}
	}
	return mcpClient, tools, nil
}

// sourceEnv builds the subprocess environment: the explicit env plus the
// values of every required variable.
func sourceEnv(src config.MCPSourceConfig) []string {
	env := make([]string, 0, len(src.Env)+len(src.RequiresEnv))
	for k, v := range src.Env {
		env = append(env, k+"="+v)
	}
	for _, name := range src.RequiresEnv {
		if _, ok := src.Env[name]; !ok {
			env = append(env, name+"="+os.Getenv(name))
		}
	}
	return env
}

// mcpTool wraps one remote MCP tool as a tool.Tool.
type mcpTool struct {
	caller Caller
	source string
	name   string
	desc   string
	schema map[string]any
}

// NewTool wraps a listed MCP tool.
func NewTool(caller Caller, source string, t mcp.Tool) tool.Tool {
	return &mcpTool{
		caller: caller,
		source: source,
		name:   t.Name,
		desc:   t.Description,
		schema: convertSchema(t.InputSchema),
	}
}

func (w *mcpTool) Name() string { return w.name }

func (w *mcpTool) Description() string { return w.desc }

func (w *mcpTool) Schema() map[string]any { return w.schema }

func (w *mcpTool) Transport() tool.Transport { return tool.TransportStdio }

// Call invokes the remote tool. Text content blocks are joined for the
// client; structured content, when the server sends it, goes to the model.
func (w *mcpTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = w.name
	req.Params.Arguments = args

	resp, err := w.caller.CallTool(ctx, req)
	if err != nil {
		return tool.Result{}, fmt.Errorf("MCP call to %s/%s failed: %w", w.source, w.name, err)
	}

	text := joinText(resp.Content)
	if resp.IsError {
		if text == "" {
			text = "unknown error"
		}
		return tool.Result{}, fmt.Errorf("MCP tool %s/%s returned an error: %s", w.source, w.name, text)
	}

	if resp.StructuredContent != nil {
		display := text
		if display == "" {
			if data, err := json.Marshal(resp.StructuredContent); err == nil {
				display = string(data)
			}
		}
		return tool.Result{Value: resp.StructuredContent, Display: display}, nil
	}
	return tool.Text(text), nil
}

func joinText(content []mcp.Content) string {
	var texts []string
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// convertSchema converts an MCP input schema to a plain map.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

var _ tool.Tool = (*mcpTool)(nil)
