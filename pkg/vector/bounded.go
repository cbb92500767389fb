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

package vector

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/stargazer-ai/stargazer/pkg/observability"
)

// DefaultPoolSize bounds in-flight backend calls when no size is given.
const DefaultPoolSize = 50

// Bounded limits the number of concurrent calls into a gateway. Callers
// block until a slot is free or their context is done.
type Bounded struct {
	next   Gateway
	sem    *semaphore.Weighted
	tracer trace.Tracer
}

func NewBounded(next Gateway, size int) *Bounded {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Bounded{
		next:   next,
		sem:    semaphore.NewWeighted(int64(size)),
		tracer: observability.Tracer(),
	}
}

func (b *Bounded) acquire(ctx context.Context) error {
	return b.sem.Acquire(ctx, 1)
}

func (b *Bounded) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	ctx, span := b.tracer.Start(ctx, observability.SpanVectorQuery, trace.WithAttributes(
		attribute.String(observability.AttrRAGNamespace, req.Namespace),
		attribute.Int(observability.AttrRAGTopK, req.TopK),
	))

	if err := b.acquire(ctx); err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	defer b.sem.Release(1)

	matches, err := b.next.Query(ctx, req)
	span.SetAttributes(attribute.Int(observability.AttrRAGItems, len(matches)))
	observability.EndSpan(span, err)
	return matches, err
}

func (b *Bounded) FetchExisting(ctx context.Context, namespace string, ids []string) (map[string]bool, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.next.FetchExisting(ctx, namespace, ids)
}

func (b *Bounded) Upsert(ctx context.Context, namespace string, records []Record) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.sem.Release(1)
	return b.next.Upsert(ctx, namespace, records)
}

func (b *Bounded) Name() string { return b.next.Name() }

func (b *Bounded) Close() error { return b.next.Close() }

// Unwrap returns the wrapped gateway.
func (b *Bounded) Unwrap() Gateway { return b.next }

var _ Gateway = (*Bounded)(nil)
