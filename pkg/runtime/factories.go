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


package runtime

import (
	"fmt"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/embedder"
	"github.com/stargazer-ai/stargazer/pkg/model"
	"github.com/stargazer-ai/stargazer/pkg/model/openai"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

// LLMFactory creates the chat model.
type LLMFactory func(cfg *config.LLMConfig) (model.LLM, error)

// EmbedderFactory creates the embedding provider.
type EmbedderFactory func(cfg *config.EmbedderConfig) (embedder.Embedder, error)

// GatewayFactory creates the vector index gateway.
type GatewayFactory func(cfg *config.VectorConfig) (vector.Gateway, error)

// DefaultLLMFactory creates an Azure OpenAI or OpenAI chat client.
func DefaultLLMFactory(cfg *config.LLMConfig) (model.LLM, error) {
	switch cfg.Provider {
	case config.LLMProviderAzure, config.LLMProviderOpenAI:
		return openai.New(*cfg, nil)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// DefaultEmbedderFactory creates an Azure OpenAI or OpenAI embedder.
func DefaultEmbedderFactory(cfg *config.EmbedderConfig) (embedder.Embedder, error) {
	switch cfg.Provider {
	case config.LLMProviderAzure, config.LLMProviderOpenAI:
		return embedder.NewOpenAIEmbedder(*cfg, nil)
	default:
		return nil, fmt.Errorf("unknown embedder provider: %s", cfg.Provider)
	}
}

// DefaultGatewayFactory creates the configured vector backend.
func DefaultGatewayFactory(cfg *config.VectorConfig) (vector.Gateway, error) {
	return vector.New(*cfg)
}
