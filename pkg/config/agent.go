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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSystemPrompt is used when no prompt is configured or the prompt
// file cannot be read.
const DefaultSystemPrompt = "You are a professional astrologer assistant."

// AgentConfig configures the agent loop.
type AgentConfig struct {
	// MaxIterations caps reasoning turns per request. Default: 5
	MaxIterations int `koanf:"max_iterations" yaml:"max_iterations" env:"AGENT_MAX_ITERATIONS" validate:"min=0"`

	// SystemPrompt is used verbatim when set.
	SystemPrompt string `koanf:"system_prompt" yaml:"system_prompt"`

	// SystemPromptFile is read when SystemPrompt is empty. JSON files are
	// re-indented; anything else is used as text.
	SystemPromptFile string `koanf:"system_prompt_file" yaml:"system_prompt_file" env:"ASTROLOGER_CONFIG_PATH"`

	// ContinueOnToolError turns a failed tool call into a failure notice for
	// the model instead of ending the request.
	ContinueOnToolError bool `koanf:"continue_on_tool_error" yaml:"continue_on_tool_error" env:"AGENT_CONTINUE_ON_TOOL_ERROR"`
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 5
	}
}

func (c *AgentConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	return nil
}

// LoadSystemPrompt resolves the system prompt. The second return value
// reports whether a configured prompt was found.
func (c *AgentConfig) LoadSystemPrompt() (string, bool, error) {
	if strings.TrimSpace(c.SystemPrompt) != "" {
		return c.SystemPrompt, true, nil
	}
	if c.SystemPromptFile == "" {
		return DefaultSystemPrompt, false, nil
	}

	data, err := os.ReadFile(c.SystemPromptFile)
	if err != nil {
		return DefaultSystemPrompt, false, fmt.Errorf("failed to read system prompt %s: %w", c.SystemPromptFile, err)
	}

	if strings.EqualFold(filepath.Ext(c.SystemPromptFile), ".json") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return DefaultSystemPrompt, false, fmt.Errorf("invalid JSON system prompt %s: %w", c.SystemPromptFile, err)
		}
		return buf.String(), true, nil
	}
	return strings.TrimSpace(string(data)), true, nil
}
