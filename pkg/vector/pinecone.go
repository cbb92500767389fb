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
	"errors"
	"fmt"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stargazer-ai/stargazer/pkg/config"
)

// Pinecone queries a single Pinecone index. Namespaces map to Pinecone
// namespaces; one index connection is kept per namespace.
type Pinecone struct {
	client    *pinecone.Client
	indexName string
	batchSize int

	mu    sync.Mutex
	host  string
	conns map[string]*pinecone.IndexConnection
}

// NewPinecone creates the client. The index host is resolved on first use
// unless cfg.Host is set.
func NewPinecone(cfg config.PineconeConfig, batchSize int) (*Pinecone, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required for Pinecone")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	return &Pinecone{
		client:    client,
		indexName: cfg.IndexName,
		batchSize: batchSize,
		host:      cfg.Host,
		conns:     make(map[string]*pinecone.IndexConnection),
	}, nil
}

func (p *Pinecone) Name() string { return "pinecone" }

func (p *Pinecone) conn(ctx context.Context, namespace string) (*pinecone.IndexConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.conns[namespace]; ok {
		return c, nil
	}

	if p.host == "" {
		index, err := p.client.DescribeIndex(ctx, p.indexName)
		if err != nil {
			return nil, fmt.Errorf("failed to describe index %s: %w", p.indexName, err)
		}
		p.host = index.Host
	}

	c, err := p.client.Index(pinecone.NewIndexConnParams{
		Host:      p.host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}
	p.conns[namespace] = c
	return c, nil
}

func (p *Pinecone) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	c, err := p.conn(ctx, req.Namespace)
	if err != nil {
		return nil, err
	}

	var filter *pinecone.MetadataFilter
	if len(req.Filter) > 0 {
		filter, err = structpb.NewStruct(req.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to convert filter: %w", err)
		}
	}

	resp, err := c.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          req.Vector,
		TopK:            uint32(req.TopK),
		MetadataFilter:  filter,
		IncludeMetadata: true,
		IncludeValues:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query Pinecone: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, sv := range resp.Matches {
		if sv == nil || sv.Vector == nil {
			continue
		}
		m := Match{ID: sv.Vector.Id, Score: sv.Score, Metadata: map[string]any{}}
		if sv.Vector.Metadata != nil {
			m.Metadata = sv.Vector.Metadata.AsMap()
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (p *Pinecone) FetchExisting(ctx context.Context, namespace string, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	c, err := p.conn(ctx, namespace)
	if err != nil {
		return nil, err
	}

	for _, b := range batches(len(ids), p.batchSize) {
		resp, err := c.FetchVectors(ctx, ids[b[0]:b[1]])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch vectors: %w", err)
		}
		for id := range resp.Vectors {
			existing[id] = true
		}
	}
	return existing, nil
}

func (p *Pinecone) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	c, err := p.conn(ctx, namespace)
	if err != nil {
		return err
	}

	for _, b := range batches(len(records), p.batchSize) {
		vectors := make([]*pinecone.Vector, 0, b[1]-b[0])
		for _, r := range records[b[0]:b[1]] {
			v := &pinecone.Vector{Id: r.ID, Values: r.Values}
			if len(r.Metadata) > 0 {
				v.Metadata, err = structpb.NewStruct(r.Metadata)
				if err != nil {
					return fmt.Errorf("failed to convert metadata for %s: %w", r.ID, err)
				}
			}
			vectors = append(vectors, v)
		}
		if _, err := c.UpsertVectors(ctx, vectors); err != nil {
			return fmt.Errorf("failed to upsert vectors: %w", err)
		}
	}
	return nil
}

func (p *Pinecone) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for ns, c := range p.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("namespace %q: %w", ns, err))
		}
	}
	p.conns = make(map[string]*pinecone.IndexConnection)
	return errors.Join(errs...)
}

var _ Gateway = (*Pinecone)(nil)
