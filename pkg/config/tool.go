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

package config

import "fmt"

// ToolsConfig configures in-process tools and external tool servers.
//
// Example:
//
//	tools:
//	  charts_dir: ./charts
//	  mcp:
//	    - name: web_search
//	      command: node
//	      args: [MCP/web-search/build/index.js]
//	      requires_files: [MCP/web-search/build/index.js]
//	      requires_env: [SEARCH_API_KEY]
type ToolsConfig struct {
	// ChartsDir receives rendered natal charts. Default: ./charts
	ChartsDir string `koanf:"charts_dir" yaml:"charts_dir" env:"CHART_IMAGE_PATH"`

	// MCP lists stdio tool servers. Defaults to web_search and astro_mcp.
	MCP []MCPSourceConfig `koanf:"mcp" yaml:"mcp"`
}

// MCPSourceConfig declares one stdio MCP server and its preconditions.
type MCPSourceConfig struct {
	Name    string            `koanf:"name" yaml:"name"`
	Command string            `koanf:"command" yaml:"command"`
	Args    []string          `koanf:"args" yaml:"args"`
	Env     map[string]string `koanf:"env" yaml:"env"`

	// RequiresFiles must all exist for the source to be started.
	RequiresFiles []string `koanf:"requires_files" yaml:"requires_files"`

	// RequiresEnv must all be set; their values are passed to the subprocess.
	RequiresEnv []string `koanf:"requires_env" yaml:"requires_env"`

	// Filter restricts the exposed tools to these names when non-empty.
	Filter []string `koanf:"filter" yaml:"filter"`
}

// DefaultMCPSources returns the stock tool servers.
func DefaultMCPSources() []MCPSourceConfig {
	return []MCPSourceConfig{
		{
			Name:          "web_search",
			Command:       "node",
			Args:          []string{"MCP/web-search/build/index.js"},
			RequiresFiles: []string{"MCP/web-search/build/index.js"},
			RequiresEnv:   []string{"SEARCH_API_KEY"},
		},
		{
			Name:          "astro_mcp",
			Command:       "node",
			Args:          []string{"MCP/AstroMCP/dist/main.js"},
			RequiresFiles: []string{"MCP/AstroMCP/dist/main.js"},
		},
	}
}

func (c *ToolsConfig) SetDefaults() {
	if c.ChartsDir == "" {
		c.ChartsDir = "./charts"
	}
	if c.MCP == nil {
		c.MCP = DefaultMCPSources()
	}
}

func (c *ToolsConfig) Validate() error {
	seen := make(map[string]bool, len(c.MCP))
	for i, src := range c.MCP {
		if src.Name == "" {
			return fmt.Errorf("mcp[%d]: name is required", i)
		}
		if src.Command == "" {
			return fmt.Errorf("mcp %q: command is required", src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("mcp %q: duplicate name", src.Name)
		}
		seen[src.Name] = true
	}
	return nil
}
