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

// Package rag turns a user query into a short list of relevant
// question/answer pairs from the astrology knowledge base.
//
// Retrieval degrades instead of failing: an unreachable vector backend
// yields an empty context and the conversation goes on without it. Only a
// failure to embed the query is reported to Search callers.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/embedder"
	"github.com/stargazer-ai/stargazer/pkg/observability"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

// ContextItem is one retrieved reference passed to the model and the client.
type ContextItem struct {
	Score    float64        `json:"score"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Metadata map[string]any `json:"metadata"`
}

// SearchOptions overrides the retriever defaults for one search. Zero
// values keep the default.
type SearchOptions struct {
	Namespace string
	TopK      int
	// Threshold drops matches scoring below it. nil keeps the default;
	// a pointer to 0 keeps every match.
	Threshold *float64
}

// Threshold returns a SearchOptions threshold pointer.
func Threshold(v float64) *float64 {
	return &v
}

// Retriever searches the knowledge base.
type Retriever struct {
	embedder embedder.Embedder
	gateway  vector.Gateway

	namespace  string
	topK       int
	threshold  float64
	zeroVector bool

	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithMetrics records every search.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Retriever) { r.metrics = m }
}

// NewRetriever builds a retriever with the defaults from cfg. emb may be nil
// only when gw is unavailable.
func NewRetriever(emb embedder.Embedder, gw vector.Gateway, cfg config.RAGConfig, opts ...Option) (*Retriever, error) {
	if gw == nil {
		gw = vector.Unavailable{}
	}
	if emb == nil && vector.Available(gw) {
		return nil, errors.New("embedder is required when a vector backend is configured")
	}

	cfg.SetDefaults()
	r := &Retriever{
		embedder:   emb,
		gateway:    gw,
		namespace:  cfg.Namespace,
		topK:       cfg.TopK,
		threshold:  cfg.SimilarityThreshold,
		zeroVector: *cfg.ZeroVectorFallback,
		tracer:     observability.Tracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Available reports whether a vector backend is configured.
func (r *Retriever) Available() bool {
	return vector.Available(r.gateway)
}

// Namespace returns the default namespace.
func (r *Retriever) Namespace() string { return r.namespace }

// DefaultThreshold returns the default similarity threshold.
func (r *Retriever) DefaultThreshold() float64 { return r.threshold }

// Search returns the matches for query that score at least the threshold,
// in backend order. Backend failures yield an empty result and a nil error;
// embedding failures are returned.
func (r *Retriever) Search(ctx context.Context, query string, opts SearchOptions) ([]ContextItem, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = r.namespace
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}
	threshold := r.threshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	if !r.Available() {
		slog.Warn("Vector index unavailable, returning empty knowledge context")
		return []ContextItem{}, nil
	}

	start := time.Now()
	ctx, span := r.tracer.Start(ctx, observability.SpanRAGSearch, trace.WithAttributes(
		attribute.String(observability.AttrRAGNamespace, namespace),
		attribute.Int(observability.AttrRAGTopK, topK),
	))

	vec, err := r.queryVector(ctx, query)
	if err != nil {
		r.metrics.RecordRetrieval(ctx, namespace, 0, time.Since(start), err)
		observability.EndSpan(span, err)
		return nil, err
	}
	if vec == nil {
		observability.EndSpan(span, nil)
		return []ContextItem{}, nil
	}

	matches, err := r.gateway.Query(ctx, vector.QueryRequest{
		Namespace: namespace,
		Vector:    vec,
		TopK:      topK,
	})
	if err != nil {
		if errors.Is(err, vector.ErrUnavailable) {
			slog.Warn("Vector index unavailable, returning empty knowledge context", "error", err)
		} else {
			slog.Error("Knowledge search failed, returning empty context", "namespace", namespace, "error", err)
		}
		r.metrics.RecordRetrieval(ctx, namespace, 0, time.Since(start), err)
		observability.EndSpan(span, err)
		return []ContextItem{}, nil
	}

	items := make([]ContextItem, 0, len(matches))
	for _, m := range matches {
		item := toContextItem(m)
		if item.Score >= threshold {
			items = append(items, item)
		}
	}

	span.SetAttributes(attribute.Int(observability.AttrRAGItems, len(items)))
	observability.EndSpan(span, nil)
	r.metrics.RecordRetrieval(ctx, namespace, len(items), time.Since(start), nil)
	slog.Debug("Knowledge search finished",
		"namespace", namespace,
		"matches", len(matches),
		"items", len(items),
		"threshold", threshold)
	return items, nil
}

// SearchContext runs Search with the configured defaults and never fails:
// every error degrades to an empty context.
func (r *Retriever) SearchContext(ctx context.Context, query string) []ContextItem {
	items, err := r.Search(ctx, query, SearchOptions{})
	if err != nil {
		slog.Error("Knowledge retrieval failed, continuing without context", "error", err)
		return []ContextItem{}
	}
	return items
}

// queryVector embeds query. An empty query maps to a zero vector when the
// fallback is enabled, or to nil (no search) when it is not.
func (r *Retriever) queryVector(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		if !r.zeroVector {
			return nil, nil
		}
		slog.Warn("Empty query, searching with a zero vector", "dimension", r.embedder.Dimension())
		return make([]float32, r.embedder.Dimension()), nil
	}

	_, span := r.tracer.Start(ctx, observability.SpanEmbed)
	vec, err := r.embedder.Embed(ctx, query)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, NewSearchError("embedder", "embed", "failed to embed query", query, err)
	}
	if len(vec) != r.embedder.Dimension() {
		return nil, NewSearchError("embedder", "embed",
			fmt.Sprintf("expected dimension %d, got %d", r.embedder.Dimension(), len(vec)),
			query, embedder.ErrEmbedding)
	}
	return vec, nil
}

func toContextItem(m vector.Match) ContextItem {
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	question, _ := metadata["question"].(string)
	answer, _ := metadata["answer"].(string)
	return ContextItem{
		Score:    widen(m.Score),
		Question: question,
		Answer:   answer,
		Metadata: metadata,
	}
}

// widen converts a backend score to float64 without picking up binary noise,
// so 0.7 stays 0.7 on the wire and against the threshold.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}
