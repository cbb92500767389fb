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

// RAGConfig configures knowledge retrieval.
type RAGConfig struct {
	// Namespace searched by default. Default: hierarchy_chunking_strategy
	Namespace string `koanf:"namespace" yaml:"namespace" env:"PINECONE_NAMESPACE"`

	// TopK nearest neighbours requested. Default: 5
	TopK int `koanf:"top_k" yaml:"top_k" env:"RAG_TOP_K" validate:"min=0,max=100"`

	// SimilarityThreshold drops matches scoring below it. Default: 0.7
	SimilarityThreshold float64 `koanf:"similarity_threshold" yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`

	// ZeroVectorFallback searches with a zero vector when the query is
	// empty. When false an empty query retrieves nothing. Default: true
	ZeroVectorFallback *bool `koanf:"zero_vector_fallback" yaml:"zero_vector_fallback" env:"RAG_ZERO_VECTOR_FALLBACK"`
}

func (c *RAGConfig) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "hierarchy_chunking_strategy"
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.7
	}
	if c.ZeroVectorFallback == nil {
		c.ZeroVectorFallback = BoolPtr(true)
	}
}

func (c *RAGConfig) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be between 0 and 1, got %v", c.SimilarityThreshold)
	}
	return nil
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
