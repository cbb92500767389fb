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
	"fmt"
	"os"
)

// LLMProvider identifies the chat model provider.
type LLMProvider string

const (
	LLMProviderAzure  LLMProvider = "azure"
	LLMProviderOpenAI LLMProvider = "openai"
)

const (
	DefaultAzureAPIVersion = "2025-01-01-preview"
	DefaultChatModel       = "gpt-4.1"
	DefaultEmbeddingModel  = "text-embedding-3-small"
	DefaultEmbeddingDim    = 512
)

// LLMConfig configures the chat model.
//
// Example:
//
//	llm:
//	  provider: azure
//	  endpoint: https://my-resource.openai.azure.com/
//	  api_key: ${AZURE_OPENAI_API_KEY}
//	  model: gpt-4.1
type LLMConfig struct {
	// Provider is azure or openai. Default: azure when an endpoint is
	// configured, otherwise openai.
	Provider LLMProvider `koanf:"provider" yaml:"provider" env:"LLM_PROVIDER"`

	// Model is the model name, or the deployment name for Azure.
	Model string `koanf:"model" yaml:"model" env:"AZURE_OPENAI_DEPLOYMENT_NAME"`

	APIKey string `koanf:"api_key" yaml:"api_key" env:"AZURE_OPENAI_API_KEY"`

	// Endpoint is the Azure resource endpoint or an OpenAI-compatible base URL.
	Endpoint string `koanf:"endpoint" yaml:"endpoint" env:"AZURE_OPENAI_ENDPOINT"`

	APIVersion string `koanf:"api_version" yaml:"api_version" env:"AZURE_OPENAI_API_VERSION"`

	Temperature float64 `koanf:"temperature" yaml:"temperature" env:"AGENT_TEMPERATURE" validate:"min=0,max=2"`

	MaxTokens int `koanf:"max_tokens" yaml:"max_tokens" env:"AGENT_MAX_TOKENS" validate:"min=0"`

	// MaxRetries is the HTTP retry count for rate limits and 5xx responses.
	MaxRetries int `koanf:"max_retries" yaml:"max_retries" validate:"min=0"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = DefaultChatModel
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Resolve fills settings derived from the endpoint and the environment.
func (c *LLMConfig) Resolve() {
	if c.Provider == "" {
		if c.Endpoint != "" {
			c.Provider = LLMProviderAzure
		} else {
			c.Provider = LLMProviderOpenAI
		}
	}
	if c.APIKey == "" && c.Provider == LLMProviderOpenAI {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.APIVersion == "" && c.Provider == LLMProviderAzure {
		c.APIVersion = DefaultAzureAPIVersion
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case LLMProviderAzure:
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint is required for provider %q", c.Provider)
		}
	case LLMProviderOpenAI:
	default:
		return fmt.Errorf("invalid provider %q (valid: azure, openai)", c.Provider)
	}
	return nil
}

// HasCredentials reports whether a model client can be constructed.
func (c *LLMConfig) HasCredentials() bool {
	return c.APIKey != ""
}

// EmbedderConfig configures the embedding provider. Unset connection fields
// are inherited from the LLM section.
type EmbedderConfig struct {
	Provider   LLMProvider `koanf:"provider" yaml:"provider" env:"EMBED_PROVIDER"`
	Model      string      `koanf:"model" yaml:"model" env:"AZURE_OPENAI_EMBEDDING_DEPLOYMENT"`
	APIKey     string      `koanf:"api_key" yaml:"api_key" env:"EMBED_KEY"`
	Endpoint   string      `koanf:"endpoint" yaml:"endpoint" env:"EMBED_END"`
	APIVersion string      `koanf:"api_version" yaml:"api_version"`

	// Dimension of every produced vector. Default: 512
	Dimension int `koanf:"dimension" yaml:"dimension" env:"EMBED_DIMENSION" validate:"min=0"`

	// BatchSize bounds texts per embedding request. Default: 64
	BatchSize int `koanf:"batch_size" yaml:"batch_size" validate:"min=0"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = DefaultEmbeddingModel
	}
	if c.Dimension == 0 {
		c.Dimension = DefaultEmbeddingDim
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
}

// Resolve inherits unset connection settings from the LLM section.
func (c *EmbedderConfig) Resolve(llm *LLMConfig) {
	if c.Endpoint == "" {
		c.Endpoint = llm.Endpoint
	}
	if c.Provider == "" {
		switch {
		case c.Endpoint == llm.Endpoint:
			c.Provider = llm.Provider
		case c.Endpoint != "":
			c.Provider = LLMProviderAzure
		default:
			c.Provider = LLMProviderOpenAI
		}
	}
	if c.APIKey == "" {
		c.APIKey = llm.APIKey
	}
	if c.APIVersion == "" && c.Provider == LLMProviderAzure {
		c.APIVersion = llm.APIVersion
		if c.APIVersion == "" {
			c.APIVersion = DefaultAzureAPIVersion
		}
	}
}

func (c *EmbedderConfig) Validate() error {
	switch c.Provider {
	case LLMProviderAzure, LLMProviderOpenAI:
	default:
		return fmt.Errorf("invalid provider %q (valid: azure, openai)", c.Provider)
	}
	if c.Provider == LLMProviderAzure && c.Endpoint == "" {
		return fmt.Errorf("endpoint is required for provider %q", c.Provider)
	}
	return nil
}
