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

// Package knowledgetool lets the model search the astrology knowledge base
// on its own, in addition to the context retrieved before the first turn.
//
// Retrieval failures are reported to the model as a message rather than a
// tool error, so a broken embedder never ends the conversation. Only the
// model sees the failure detail; the client gets a generic notice.
package knowledgetool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/tool"
	"github.com/stargazer-ai/stargazer/pkg/tool/functiontool"
)

const (
	SearchName         = "search_astrology_knowledge"
	AdvancedSearchName = "search_astrology_knowledge_advanced"

	defaultTopK      = 5
	defaultThreshold = 0.7
)

// Searcher is the retrieval capability the tools need.
type Searcher interface {
	Search(ctx context.Context, query string, opts rag.SearchOptions) ([]rag.ContextItem, error)
}

// SearchArgs are the arguments of search_astrology_knowledge.
type SearchArgs struct {
	Query string `json:"query" jsonschema:"required,description=Search query such as 'meaning of the rising sign' or 'Venus in the seventh house'"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"description=Number of results to return,default=5,minimum=1,maximum=20"`
}

// AdvancedSearchArgs are the arguments of search_astrology_knowledge_advanced.
type AdvancedSearchArgs struct {
	Query               string  `json:"query" jsonschema:"required,description=Search query"`
	TopK                int     `json:"top_k,omitempty" jsonschema:"description=Number of results to return,default=5,minimum=1,maximum=20"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" jsonschema:"description=Minimum similarity score of listed results,default=0.7,minimum=0,maximum=1"`
}

// New returns both knowledge tools.
func New(searcher Searcher) ([]tool.Tool, error) {
	if searcher == nil {
		return nil, fmt.Errorf("knowledge tools require a searcher")
	}

	basic, err := functiontool.New(functiontool.Config{
		Name: SearchName,
		Description: "Search the astrology knowledge base covering signs, planets, houses and aspects. " +
			"Use it for theory questions, concept explanations and basic lookups.",
	}, func(ctx context.Context, args SearchArgs) (tool.Result, error) {
		return search(ctx, searcher, args.Query, args.TopK, defaultThreshold, "Knowledge search failed"), nil
	})
	if err != nil {
		return nil, err
	}

	advanced, err := functiontool.New(functiontool.Config{
		Name:        AdvancedSearchName,
		Description: "Search the astrology knowledge base with control over the number of results and the similarity threshold.",
	}, func(ctx context.Context, args AdvancedSearchArgs) (tool.Result, error) {
		threshold := args.SimilarityThreshold
		if threshold <= 0 {
			threshold = defaultThreshold
		}
		return search(ctx, searcher, args.Query, args.TopK, threshold, "Advanced knowledge search failed"), nil
	})
	if err != nil {
		return nil, err
	}

	return []tool.Tool{basic, advanced}, nil
}

// search fetches unfiltered matches and applies the threshold while
// formatting, so "nothing found" and "nothing above threshold" stay distinct.
func search(ctx context.Context, searcher Searcher, query string, topK int, threshold float64, failure string) tool.Result {
	if topK <= 0 {
		topK = defaultTopK
	}
	items, err := searcher.Search(ctx, query, rag.SearchOptions{
		TopK:      topK,
		Threshold: rag.Threshold(0),
	})
	if err != nil {
		slog.Warn(failure, "query", query, "error", err)
		return tool.Result{
			Value:   fmt.Sprintf("%s: %v", failure, err),
			Display: failure + ".",
		}
	}
	return tool.Text(rag.FormatForTool(items, threshold, rag.DefaultToolLimit))
}
