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

package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/config"
)

// embeddingServer answers every request with one vector per input whose
// first element is the input's position in the request. Items are returned in
// reverse order to check that results are reassembled by index.
func embeddingServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	return embeddingServerReturning(t, dim, dim, calls)
}

// embeddingServerReturning expects requests for the dimension requested and
// answers with vectors of length returned.
func embeddingServerReturning(t *testing.T, requested, returned int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		assert.Equal(t, requested, req.Dimensions)

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, returned)
			vec[0] = float32(i)
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
}

func testConfig(endpoint string, dim int) config.EmbedderConfig {
	return config.EmbedderConfig{
		Provider:  config.LLMProviderOpenAI,
		Model:     "text-embedding-3-small",
		APIKey:    "test-key",
		Endpoint:  endpoint,
		Dimension: dim,
		BatchSize: 2,
	}
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, 4, &calls)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(testConfig(srv.URL, 4), srv.Client())
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "what does a Scorpio moon mean?")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 4, e.Dimension())
	assert.Equal(t, "text-embedding-3-small", e.Model())
}

func TestOpenAIEmbedder_EmbedBatchKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, 3, &calls)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(testConfig(srv.URL, 3), srv.Client())
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)

	// Batches of 2: positions restart in each request.
	want := []float32{0, 1, 0, 1, 0}
	for i, v := range vecs {
		assert.Equal(t, want[i], v[0], "vector %d", i)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIEmbedder_EmptyInputNotSent(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, 3, &calls)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(testConfig(srv.URL, 3), srv.Client())
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = e.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Equal(t, int32(0), calls.Load())
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServerReturning(t, 8, 3, &calls)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(testConfig(srv.URL, 8), srv.Client())
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorContains(t, err, "expected dimension 8, got 3")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(testConfig(srv.URL, 3), srv.Client())
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	_, err := NewOpenAIEmbedder(config.EmbedderConfig{Dimension: 3}, nil)
	assert.Error(t, err)

	_, err = NewOpenAIEmbedder(config.EmbedderConfig{APIKey: "k"}, nil)
	assert.Error(t, err)
}
