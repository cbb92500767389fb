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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.HeartbeatInterval)
	assert.Zero(t, cfg.Server.RequestTimeout)
	assert.Equal(t, "pinecone", cfg.Vector.Type)
	assert.Equal(t, 50, cfg.Vector.PoolSize)
	assert.Equal(t, "astrology-text", cfg.Vector.Pinecone.IndexName)
	assert.Equal(t, "hierarchy_chunking_strategy", cfg.RAG.Namespace)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.InDelta(t, 0.7, cfg.RAG.SimilarityThreshold, 1e-9)
	assert.True(t, *cfg.RAG.ZeroVectorFallback)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, DefaultEmbeddingModel, cfg.Embedder.Model)
	assert.Equal(t, 512, cfg.Embedder.Dimension)
	assert.Len(t, cfg.Tools.MCP, 2)
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_PINECONE_KEY", "pc-secret")

	path := writeFile(t, "stargazer.yaml", `
server:
  port: 9100
  heartbeat_interval: 5s
vector:
  pinecone:
    api_key: ${TEST_PINECONE_KEY}
    index_name: ${TEST_INDEX_NAME:-custom-index}
rag:
  top_k: 3
  zero_vector_fallback: false
tools:
  mcp: []
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.HeartbeatInterval)
	assert.Equal(t, "pc-secret", cfg.Vector.Pinecone.APIKey)
	assert.Equal(t, "custom-index", cfg.Vector.Pinecone.IndexName)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.False(t, *cfg.RAG.ZeroVectorFallback)
	assert.Empty(t, cfg.Tools.MCP)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "stargazer.yaml", "server:\n  port: 9100\n")

	t.Setenv("API_PORT", "9200")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RAG_TOP_K", "7")
	t.Setenv("SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("AGENT_MAX_ITERATIONS", "3")
	t.Setenv("PINECONE_NAMESPACE", "flat")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 7, cfg.RAG.TopK)
	assert.InDelta(t, 0.8, cfg.RAG.SimilarityThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, "flat", cfg.RAG.Namespace)
}

func TestLoad_AzureEndpointSelectsProvider(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_API_KEY", "az-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, LLMProviderAzure, cfg.LLM.Provider)
	assert.Equal(t, DefaultAzureAPIVersion, cfg.LLM.APIVersion)
	assert.True(t, cfg.LLM.HasCredentials())
	assert.Equal(t, "az-key", cfg.Embedder.APIKey)
	assert.Equal(t, LLMProviderAzure, cfg.Embedder.Provider)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"threshold above one", "rag:\n  similarity_threshold: 1.5\n"},
		{"unknown vector backend", "vector:\n  type: faiss\n"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"bad log level", "logger:\n  level: loud\n"},
		{"mcp without command", "tools:\n  mcp:\n    - name: broken\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGenerateEnvMappings(t *testing.T) {
	got := make(map[string]string)
	for _, m := range GenerateEnvMappings() {
		got[m.EnvVar] = m.ConfigPath
	}

	assert.Equal(t, "vector.pinecone.api_key", got["PINECONE_API_KEY"])
	assert.Equal(t, "rag.similarity_threshold", got["SIMILARITY_THRESHOLD"])
	assert.Equal(t, "server.port", got["API_PORT"])
	assert.Equal(t, "logger.level", got["LOG_LEVEL"])
}

func TestLoadSystemPrompt(t *testing.T) {
	t.Run("json file is re-indented", func(t *testing.T) {
		cfg := AgentConfig{SystemPromptFile: writeFile(t, "prompt.json", `{"role":"astrologer"}`)}
		prompt, found, err := cfg.LoadSystemPrompt()
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "{\n  \"role\": \"astrologer\"\n}", prompt)
	})

	t.Run("inline prompt wins", func(t *testing.T) {
		cfg := AgentConfig{SystemPrompt: "be brief", SystemPromptFile: "/does/not/exist"}
		prompt, found, err := cfg.LoadSystemPrompt()
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "be brief", prompt)
	})

	t.Run("missing file falls back", func(t *testing.T) {
		cfg := AgentConfig{SystemPromptFile: filepath.Join(t.TempDir(), "nope.txt")}
		prompt, found, err := cfg.LoadSystemPrompt()
		assert.Error(t, err)
		assert.False(t, found)
		assert.Equal(t, DefaultSystemPrompt, prompt)
	})
}

func TestExpandEnvVarsInData(t *testing.T) {
	t.Setenv("TEST_EXPAND_PORT", "8123")

	got := ExpandEnvVarsInData(map[string]any{
		"port":  "${TEST_EXPAND_PORT}",
		"name":  "plain",
		"items": []any{"$TEST_EXPAND_PORT"},
	})

	assert.Equal(t, map[string]any{
		"port":  8123,
		"name":  "plain",
		"items": []any{8123},
	}, got)
}
