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

package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/testutils"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

func qa(id string, score float32) vector.Match {
	return vector.Match{
		ID:    id,
		Score: score,
		Metadata: map[string]any{
			"question": "question " + id,
			"answer":   "answer " + id,
			"source":   "handbook",
		},
	}
}

func newRetriever(t *testing.T, emb *testutils.FakeEmbedder, gw vector.Gateway, cfg config.RAGConfig) *Retriever {
	t.Helper()
	r, err := NewRetriever(emb, gw, cfg)
	require.NoError(t, err)
	return r
}

func TestSearch_ThresholdKeepsBackendOrder(t *testing.T) {
	gw := &testutils.FakeGateway{Matches: []vector.Match{qa("a", 0.9), qa("b", 0.6), qa("c", 0.75)}}
	r := newRetriever(t, &testutils.FakeEmbedder{}, gw, config.RAGConfig{})

	items, err := r.Search(context.Background(), "what does my rising sign mean", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0.9, items[0].Score)
	assert.Equal(t, "question a", items[0].Question)
	assert.Equal(t, "answer a", items[0].Answer)
	assert.Equal(t, "handbook", items[0].Metadata["source"])
	assert.Equal(t, 0.75, items[1].Score)

	q := gw.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, "hierarchy_chunking_strategy", q[0].Namespace)
	assert.Equal(t, 5, q[0].TopK)
}

func TestSearch_ThresholdBoundaryIsInclusive(t *testing.T) {
	gw := &testutils.FakeGateway{Matches: []vector.Match{qa("a", 0.7), qa("b", 0.69)}}
	r := newRetriever(t, &testutils.FakeEmbedder{}, gw, config.RAGConfig{})

	items, err := r.Search(context.Background(), "moon", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.7, items[0].Score)
}

func TestSearch_Overrides(t *testing.T) {
	gw := &testutils.FakeGateway{Matches: []vector.Match{qa("a", 0.2), qa("b", 0.1)}}
	r := newRetriever(t, &testutils.FakeEmbedder{}, gw, config.RAGConfig{})

	items, err := r.Search(context.Background(), "venus", SearchOptions{
		Namespace: "other",
		TopK:      1,
		Threshold: Threshold(0),
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "other", gw.Queries()[0].Namespace)
}

func TestSearch_UnavailableBackendDegrades(t *testing.T) {
	r := newRetriever(t, nil, vector.Unavailable{Reason: "PINECONE_API_KEY not set"}, config.RAGConfig{})
	assert.False(t, r.Available())

	items, err := r.Search(context.Background(), "saturn", SearchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSearch_BackendErrorDegrades(t *testing.T) {
	gw := &testutils.FakeGateway{QueryErr: fmt.Errorf("%w: connection refused", vector.ErrUnavailable)}
	r := newRetriever(t, &testutils.FakeEmbedder{}, gw, config.RAGConfig{})

	items, err := r.Search(context.Background(), "saturn", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)

	gw.QueryErr = errors.New("internal server error")
	items, err = r.Search(context.Background(), "saturn", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearch_EmbeddingErrorIsReturned(t *testing.T) {
	gw := &testutils.FakeGateway{Matches: []vector.Match{qa("a", 0.9)}}
	r := newRetriever(t, &testutils.FakeEmbedder{Err: errors.New("401 unauthorized")}, gw, config.RAGConfig{})

	_, err := r.Search(context.Background(), "mars", SearchOptions{})
	require.Error(t, err)
	var searchErr *SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "embedder", searchErr.Component)
	assert.Empty(t, gw.Queries())

	assert.Empty(t, r.SearchContext(context.Background(), "mars"))
}

func TestSearch_EmptyQueryUsesZeroVector(t *testing.T) {
	emb := &testutils.FakeEmbedder{Dim: 4}
	gw := &testutils.FakeGateway{Matches: []vector.Match{qa("a", 0.8)}}
	r := newRetriever(t, emb, gw, config.RAGConfig{})

	items, err := r.Search(context.Background(), "   ", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, emb.Texts())

	q := gw.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, []float32{0, 0, 0, 0}, q[0].Vector)
}

func TestSearch_EmptyQueryWithoutFallback(t *testing.T) {
	gw := &testutils.FakeGateway{Matches: []vector.Match{qa("a", 0.8)}}
	r := newRetriever(t, &testutils.FakeEmbedder{}, gw, config.RAGConfig{ZeroVectorFallback: config.BoolPtr(false)})

	items, err := r.Search(context.Background(), "", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, gw.Queries())
}

func TestNewRetriever_RequiresEmbedderForBackend(t *testing.T) {
	_, err := NewRetriever(nil, &testutils.FakeGateway{}, config.RAGConfig{})
	assert.Error(t, err)
}

func TestWiden(t *testing.T) {
	assert.Equal(t, 0.7, widen(float32(0.7)))
	assert.Equal(t, 0.123, widen(float32(0.123)))
}
