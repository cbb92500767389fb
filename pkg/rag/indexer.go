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
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stargazer-ai/stargazer/pkg/embedder"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

// IndexStats summarizes one Index run.
type IndexStats struct {
	Total   int
	Skipped int
	Indexed int
}

// Indexer embeds documents and stores them in the vector index, skipping
// ids already present.
type Indexer struct {
	embedder    embedder.Embedder
	gateway     vector.Gateway
	batchSize   int
	concurrency int
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithBatchSize sets the number of documents embedded and upserted together.
func WithBatchSize(n int) IndexerOption {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of batches processed in parallel.
func WithConcurrency(n int) IndexerOption {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

func NewIndexer(emb embedder.Embedder, gw vector.Gateway, opts ...IndexerOption) (*Indexer, error) {
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	if !vector.Available(gw) {
		return nil, vector.ErrUnavailable
	}

	ix := &Indexer{
		embedder:    emb,
		gateway:     gw,
		batchSize:   64,
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Index stores docs in namespace. Documents whose id already exists are
// skipped. The first failing batch cancels the remaining ones.
func (ix *Indexer) Index(ctx context.Context, namespace string, docs []Document) (IndexStats, error) {
	stats := IndexStats{Total: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}

	ids := make([]string, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return stats, fmt.Errorf("document %d has no id", i+1)
		}
		if seen[d.ID] {
			return stats, fmt.Errorf("duplicate document id %q", d.ID)
		}
		seen[d.ID] = true
		ids = append(ids, d.ID)
	}

	existing, err := ix.gateway.FetchExisting(ctx, namespace, ids)
	if err != nil {
		return stats, &IndexError{Namespace: namespace, Operation: "fetch", Err: err}
	}

	pending := make([]Document, 0, len(docs))
	for _, d := range docs {
		if existing[d.ID] {
			stats.Skipped++
			continue
		}
		pending = append(pending, d)
	}
	if len(pending) == 0 {
		slog.Info("All documents already indexed", "namespace", namespace, "total", stats.Total)
		return stats, nil
	}

	start := time.Now()
	var indexed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i := 0; i < len(pending); i += ix.batchSize {
		batch := pending[i:min(i+ix.batchSize, len(pending))]
		g.Go(func() error {
			if err := ix.indexBatch(gctx, namespace, batch); err != nil {
				return err
			}
			indexed.Add(int64(len(batch)))
			return nil
		})
	}
	err = g.Wait()
	stats.Indexed = int(indexed.Load())

	slog.Info("Indexing finished",
		"namespace", namespace,
		"total", stats.Total,
		"skipped", stats.Skipped,
		"indexed", stats.Indexed,
		"duration", time.Since(start))
	return stats, err
}

func (ix *Indexer) indexBatch(ctx context.Context, namespace string, batch []Document) error {
	texts := make([]string, len(batch))
	for i, d := range batch {
		texts[i] = d.Text()
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return &IndexError{Namespace: namespace, DocumentID: batch[0].ID, Operation: "embed", Err: err}
	}
	if len(vectors) != len(batch) {
		return &IndexError{
			Namespace:  namespace,
			DocumentID: batch[0].ID,
			Operation:  "embed",
			Err:        fmt.Errorf("%w: got %d vectors for %d documents", embedder.ErrEmbedding, len(vectors), len(batch)),
		}
	}

	records := make([]vector.Record, len(batch))
	for i, d := range batch {
		metadata := make(map[string]any, len(d.Metadata)+3)
		for k, v := range d.Metadata {
			metadata[k] = v
		}
		metadata["question"] = d.Question
		metadata["answer"] = d.Answer
		metadata["text"] = texts[i]
		records[i] = vector.Record{ID: d.ID, Values: vectors[i], Metadata: metadata}
	}

	if err := ix.gateway.Upsert(ctx, namespace, records); err != nil {
		return &IndexError{Namespace: namespace, DocumentID: batch[0].ID, Operation: "upsert", Err: err}
	}
	slog.Debug("Indexed batch", "namespace", namespace, "documents", len(batch))
	return nil
}
