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


package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/embedder"
	"github.com/stargazer-ai/stargazer/pkg/model"
	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/testutils"
	"github.com/stargazer-ai/stargazer/pkg/tool/charttool"
	"github.com/stargazer-ai/stargazer/pkg/tool/knowledgetool"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testutils.TestConfig()
	cfg.Tools.ChartsDir = t.TempDir()
	return cfg
}

func fakeOptions(llm model.LLM, gw vector.Gateway) Options {
	return Options{
		LLMFactory: func(*config.LLMConfig) (model.LLM, error) { return llm, nil },
		EmbedderFactory: func(*config.EmbedderConfig) (embedder.Embedder, error) {
			return &testutils.FakeEmbedder{}, nil
		},
		GatewayFactory: func(*config.VectorConfig) (vector.Gateway, error) { return gw, nil },
	}
}

func TestNew_FullStack(t *testing.T) {
	cfg := testConfig(t)
	gw := &testutils.FakeGateway{}

	rt, err := New(context.Background(), cfg, fakeOptions(testutils.NewScriptedLLM(), gw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.NotNil(t, rt.Agent())
	assert.NoError(t, rt.InitError())
	assert.Same(t, cfg, rt.Config())

	assert.Equal(t, []string{knowledgetool.SearchName, knowledgetool.AdvancedSearchName, charttool.Name}, rt.Tools().Names())

	info := rt.Agent().Info()
	assert.Equal(t, "scripted", info.Model)
	assert.True(t, info.RAGEnabled)
	assert.Equal(t, 3, info.InProcessTools)
	assert.Zero(t, info.SubprocessTools)
	assert.Equal(t, cfg.Agent.MaxIterations, info.MaxIterations)
	assert.True(t, rt.Retriever().Available())
}

func TestNew_NoModelCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = ""

	called := false
	opts := fakeOptions(nil, &testutils.FakeGateway{})
	opts.LLMFactory = func(*config.LLMConfig) (model.LLM, error) {
		called = true
		return nil, errors.New("unexpected")
	}

	rt, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Nil(t, rt.Agent())
	assert.ErrorIs(t, rt.InitError(), ErrNoCredentials)
	assert.False(t, called)
	assert.Equal(t, 3, rt.Tools().Len(), "in-process tools are registered without a model")
}

func TestNew_ModelFactoryError(t *testing.T) {
	cfg := testConfig(t)
	opts := fakeOptions(nil, &testutils.FakeGateway{})
	opts.LLMFactory = func(*config.LLMConfig) (model.LLM, error) {
		return nil, errors.New("bad endpoint")
	}

	rt, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	assert.Nil(t, rt.Agent())
	assert.ErrorContains(t, rt.InitError(), "bad endpoint")
}

func TestNew_RetrievalDegrades(t *testing.T) {
	t.Run("no embedder credentials", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedder.APIKey = ""

		rt, err := New(context.Background(), cfg, fakeOptions(testutils.NewScriptedLLM(), &testutils.FakeGateway{}))
		require.NoError(t, err)

		assert.Nil(t, rt.Embedder())
		assert.False(t, vector.Available(rt.Gateway()))
		assert.False(t, rt.Agent().Info().RAGEnabled)
		assert.Empty(t, rt.Retriever().SearchContext(context.Background(), "anything"))
	})

	t.Run("backend error", func(t *testing.T) {
		cfg := testConfig(t)
		opts := fakeOptions(testutils.NewScriptedLLM(), nil)
		opts.GatewayFactory = func(*config.VectorConfig) (vector.Gateway, error) {
			return nil, errors.New("connection refused")
		}

		rt, err := New(context.Background(), cfg, opts)
		require.NoError(t, err)
		assert.NotNil(t, rt.Embedder())
		assert.False(t, vector.Available(rt.Gateway()))
		require.NotNil(t, rt.Agent())
		assert.False(t, rt.Agent().Info().RAGEnabled)
	})
}

func TestNew_SkipsMissingToolSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.MCP = []config.MCPSourceConfig{{
		Name:          "web_search",
		Command:       "node",
		Args:          []string{"missing/index.js"},
		RequiresFiles: []string{"missing/index.js"},
	}}

	rt, err := New(context.Background(), cfg, fakeOptions(testutils.NewScriptedLLM(), &testutils.FakeGateway{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Contains(t, rt.SkippedToolSources(), "web_search")
	assert.Equal(t, 3, rt.Tools().Len())
	assert.NotNil(t, rt.Agent())
}

func TestNew_RetrievalOnly(t *testing.T) {
	cfg := testConfig(t)
	gw := &testutils.FakeGateway{}

	rt, err := New(context.Background(), cfg, Options{
		EmbedderFactory: func(*config.EmbedderConfig) (embedder.Embedder, error) {
			return &testutils.FakeEmbedder{}, nil
		},
		GatewayFactory: func(*config.VectorConfig) (vector.Gateway, error) { return gw, nil },
		RetrievalOnly:  true,
	})
	require.NoError(t, err)

	assert.Nil(t, rt.Agent())
	assert.Nil(t, rt.Tools())
	assert.Empty(t, rt.SkippedToolSources())

	ix, err := rt.Indexer()
	require.NoError(t, err)
	stats, err := ix.Index(context.Background(), "ns", []rag.Document{{ID: "1", Question: "q", Answer: "a"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Len(t, gw.Upserted("ns"), 1)
}

func TestIndexer_Unavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedder.APIKey = ""

	rt, err := New(context.Background(), cfg, Options{RetrievalOnly: true})
	require.NoError(t, err)

	_, err = rt.Indexer()
	assert.ErrorIs(t, err, vector.ErrUnavailable)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, Options{})
	assert.Error(t, err)
}
