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

package knowledgetool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

type fakeSearcher struct {
	items []rag.ContextItem
	err   error
	opts  rag.SearchOptions
	query string
}

func (f *fakeSearcher) Search(_ context.Context, query string, opts rag.SearchOptions) ([]rag.ContextItem, error) {
	f.query = query
	f.opts = opts
	return f.items, f.err
}

func tools(t *testing.T, s Searcher) (tool.Tool, tool.Tool) {
	t.Helper()
	ts, err := New(s)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, SearchName, ts[0].Name())
	assert.Equal(t, AdvancedSearchName, ts[1].Name())
	return ts[0], ts[1]
}

func TestSearch_FormatsAboveThreshold(t *testing.T) {
	s := &fakeSearcher{items: []rag.ContextItem{
		{Score: 0.9, Question: "What is a rising sign?", Answer: "The sign on the eastern horizon."},
		{Score: 0.6, Question: "low", Answer: "low"},
		{Score: 0.75, Question: "What is the seventh house?", Answer: "Partnerships."},
	}}
	basic, _ := tools(t, s)

	res, err := basic.Call(context.Background(), map[string]any{"query": "rising sign"})
	require.NoError(t, err)

	out := res.Display
	assert.Contains(t, out, "[Knowledge point 1] (similarity: 0.900)")
	assert.Contains(t, out, "[Knowledge point 2] (similarity: 0.750)")
	assert.NotContains(t, out, "low")
	assert.Equal(t, "rising sign", s.query)
	assert.Equal(t, 5, s.opts.TopK)
	require.NotNil(t, s.opts.Threshold)
	assert.Equal(t, 0.0, *s.opts.Threshold)
}

func TestSearch_Messages(t *testing.T) {
	basic, _ := tools(t, &fakeSearcher{items: []rag.ContextItem{}})
	res, err := basic.Call(context.Background(), map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, "No relevant astrology knowledge found.", res.Display)

	basic, _ = tools(t, &fakeSearcher{items: []rag.ContextItem{{Score: 0.3}}})
	res, err = basic.Call(context.Background(), map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, "No knowledge found with similarity above 0.7.", res.Display)
}

func TestSearch_ErrorIsAMessage(t *testing.T) {
	basic, advanced := tools(t, &fakeSearcher{err: errors.New("embedding endpoint down")})

	res, err := basic.Call(context.Background(), map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Knowledge search failed.", res.Display)
	assert.NotContains(t, res.Display, "embedding endpoint down")
	assert.Contains(t, res.ModelContent(), "Knowledge search failed")
	assert.Contains(t, res.ModelContent(), "embedding endpoint down")

	res, err = advanced.Call(context.Background(), map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Advanced knowledge search failed.", res.Display)
	assert.Contains(t, res.ModelContent(), "embedding endpoint down")
}

func TestAdvancedSearch_CustomThresholdAndTopK(t *testing.T) {
	s := &fakeSearcher{items: []rag.ContextItem{
		{Score: 0.5, Question: "q1", Answer: "a1"},
		{Score: 0.4, Question: "q2", Answer: "a2"},
	}}
	_, advanced := tools(t, s)

	res, err := advanced.Call(context.Background(), map[string]any{
		"query":                "moon",
		"top_k":                "3",
		"similarity_threshold": 0.45,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.opts.TopK)
	assert.Contains(t, res.Display, "q1")
	assert.NotContains(t, res.Display, "q2")
}

func TestSearch_RequiresQuery(t *testing.T) {
	basic, _ := tools(t, &fakeSearcher{})
	_, err := basic.Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestNew_RequiresSearcher(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
