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

// Package vector provides similarity search over a namespaced vector index.
//
// Three backends are available:
//   - pinecone: managed index, the production default
//   - qdrant: self-hosted, namespaces stored as a payload field
//   - chromem: embedded in-process store for development and tests
//
// Every backend is reached through the Gateway interface. The factory
// wraps the selected backend in Bounded so concurrent requests share a
// fixed number of in-flight backend calls.
package vector

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no vector backend is configured.
var ErrUnavailable = errors.New("vector index unavailable")

// Match is one similarity hit.
type Match struct {
	ID    string
	Score float32
	// Metadata holds decoded JSON scalars, lists and objects.
	Metadata map[string]any
}

// Record is one vector to store.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// QueryRequest describes one nearest-neighbour search.
type QueryRequest struct {
	Namespace string
	Vector    []float32
	TopK      int
	// Filter restricts matches to metadata fields equal to the given values.
	Filter map[string]any
}

// Gateway is a vector index backend.
type Gateway interface {
	// Query returns up to TopK matches in descending score order as
	// returned by the backend. Stored vector values are never requested.
	Query(ctx context.Context, req QueryRequest) ([]Match, error)

	// FetchExisting reports which of ids are already stored in namespace.
	FetchExisting(ctx context.Context, namespace string, ids []string) (map[string]bool, error)

	// Upsert stores records in namespace, replacing existing ids.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Name returns the backend name.
	Name() string

	Close() error
}

// batches splits n items into consecutive [start, end) ranges of at most size.
func batches(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for i := 0; i < n; i += size {
		out = append(out, [2]int{i, min(i+size, n)})
	}
	return out
}

// Available reports whether g can serve requests. It is false only for the
// Unavailable placeholder.
func Available(g Gateway) bool {
	switch g.(type) {
	case nil, Unavailable, *Unavailable:
		return false
	}
	return true
}
