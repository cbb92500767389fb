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

package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/stargazer-ai/stargazer/pkg/config"
)

// chromemMetadataKey holds the JSON encoding of the original metadata.
// chromem only stores string metadata; the flattened copies next to it
// keep where-filters working.
const chromemMetadataKey = "_json"

const chromemDefaultCollection = "default"

// Chromem is an embedded vector store with one collection per namespace.
// Vectors are held in memory and written to PersistPath when configured.
type Chromem struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

func NewChromem(cfg config.ChromemConfig) (*Chromem, error) {
	var db *chromem.DB
	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database at %s: %w", cfg.PersistPath, err)
		}
		slog.Info("Opened persistent vector database", "path", cfg.PersistPath)
	} else {
		db = chromem.NewDB()
		slog.Debug("Created in-memory vector database")
	}

	return &Chromem{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// precomputed is installed as the collection embedding function. Vectors are
// always supplied by the caller, so it is never expected to run.
func precomputed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding function called but vectors should be pre-computed")
}

func (c *Chromem) collection(namespace string) (*chromem.Collection, error) {
	if namespace == "" {
		namespace = chromemDefaultCollection
	}

	c.mu.RLock()
	col, ok := c.collections[namespace]
	c.mu.RUnlock()
	if ok {
		return col, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if col, ok := c.collections[namespace]; ok {
		return col, nil
	}

	col, err := c.db.GetOrCreateCollection(namespace, nil, precomputed)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", namespace, err)
	}
	c.collections[namespace] = col
	return col, nil
}

func (c *Chromem) Name() string { return "chromem" }

func (c *Chromem) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	col, err := c.collection(req.Namespace)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size.
	n := min(req.TopK, col.Count())
	if n <= 0 {
		return []Match{}, nil
	}

	var where map[string]string
	if len(req.Filter) > 0 {
		where = make(map[string]string, len(req.Filter))
		for k, v := range req.Filter {
			where[k] = fmt.Sprint(v)
		}
	}

	results, err := col.QueryEmbedding(ctx, req.Vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    r.Similarity,
			Metadata: decodeChromemMetadata(r.Metadata),
		})
	}
	return matches, nil
}

func (c *Chromem) FetchExisting(ctx context.Context, namespace string, ids []string) (map[string]bool, error) {
	col, err := c.collection(namespace)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := col.GetByID(ctx, id); err == nil {
			existing[id] = true
		}
	}
	return existing, nil
}

func (c *Chromem) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	col, err := c.collection(namespace)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		metadata, err := encodeChromemMetadata(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", r.ID, err)
		}
		content, _ := r.Metadata["text"].(string)
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   content,
			Metadata:  metadata,
			Embedding: r.Values,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert documents: %w", err)
	}
	return nil
}

func (c *Chromem) Close() error { return nil }

func encodeChromemMetadata(metadata map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		out[k] = fmt.Sprint(v)
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	out[chromemMetadataKey] = string(raw)
	return out, nil
}

func decodeChromemMetadata(stored map[string]string) map[string]any {
	if raw, ok := stored[chromemMetadataKey]; ok {
		var metadata map[string]any
		if err := json.Unmarshal([]byte(raw), &metadata); err == nil && metadata != nil {
			return metadata
		}
	}
	out := make(map[string]any, len(stored))
	for k, v := range stored {
		if k != chromemMetadataKey {
			out[k] = v
		}
	}
	return out
}

var _ Gateway = (*Chromem)(nil)
