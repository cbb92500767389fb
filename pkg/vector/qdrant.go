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
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/stargazer-ai/stargazer/pkg/config"
)

const (
	qdrantNamespaceKey = "namespace"
	qdrantIDKey        = "_id"
)

// qdrantIDSpace seeds the UUIDv5 ids derived from record ids.
var qdrantIDSpace = uuid.MustParse("6f1c2f0e-8d4b-4c8e-9a57-3e2b1d0c4a19")

// Qdrant stores every namespace in one collection. The namespace is kept in
// the payload and every query filters on it.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	batchSize  int
}

func NewQdrant(cfg config.QdrantConfig, batchSize int) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Qdrant{
		client:     client,
		collection: cfg.Collection,
		batchSize:  batchSize,
	}, nil
}

func (q *Qdrant) Name() string { return "qdrant" }

// pointID maps an arbitrary record id to the UUID Qdrant requires.
func pointID(id string) string {
	return uuid.NewSHA1(qdrantIDSpace, []byte(id)).String()
}

func namespaceFilter(namespace string, extra map[string]any) *qdrant.Filter {
	fields := map[string]any{qdrantNamespaceKey: namespace}
	for k, v := range extra {
		fields[k] = v
	}

	conditions := make([]*qdrant.Condition, 0, len(fields))
	for key, value := range fields {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: fmt.Sprint(value)},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

func (q *Qdrant) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	resp, err := q.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         req.Vector,
		Limit:          uint64(req.TopK),
		Filter:         namespaceFilter(req.Namespace, req.Filter),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, point := range resp.Result {
		metadata := payloadToMap(point.Payload)
		id, _ := metadata[qdrantIDKey].(string)
		delete(metadata, qdrantIDKey)
		delete(metadata, qdrantNamespaceKey)
		matches = append(matches, Match{ID: id, Score: point.Score, Metadata: metadata})
	}
	return matches, nil
}

func (q *Qdrant) FetchExisting(ctx context.Context, namespace string, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return existing, nil
	}

	for _, b := range batches(len(ids), q.batchSize) {
		pointIDs := make([]*qdrant.PointId, 0, b[1]-b[0])
		for _, id := range ids[b[0]:b[1]] {
			pointIDs = append(pointIDs, qdrant.NewID(pointID(id)))
		}

		points, err := q.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: q.collection,
			Ids:            pointIDs,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get points: %w", err)
		}
		for _, p := range points {
			payload := payloadToMap(p.Payload)
			if payload[qdrantNamespaceKey] != namespace {
				continue
			}
			if id, ok := payload[qdrantIDKey].(string); ok {
				existing[id] = true
			}
		}
	}
	return existing, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context, dimension int) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, len(records[0].Values)); err != nil {
		return err
	}

	for _, b := range batches(len(records), q.batchSize) {
		points := make([]*qdrant.PointStruct, 0, b[1]-b[0])
		for _, r := range records[b[0]:b[1]] {
			payload := make(map[string]*qdrant.Value, len(r.Metadata)+2)
			for key, value := range r.Metadata {
				val, err := qdrant.NewValue(value)
				if err != nil {
					return fmt.Errorf("failed to convert metadata value for key %s: %w", key, err)
				}
				payload[key] = val
			}
			payload[qdrantIDKey] = stringValue(r.ID)
			payload[qdrantNamespaceKey] = stringValue(namespace)

			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(pointID(r.ID)),
				Vectors: qdrant.NewVectors(r.Values...),
				Payload: payload,
			})
		}

		if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Points:         points,
		}); err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return nil
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(value *qdrant.Value) any {
	if value == nil {
		return nil
	}
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		if v.ListValue == nil {
			return []any{}
		}
		list := make([]any, len(v.ListValue.Values))
		for i, item := range v.ListValue.Values {
			list[i] = valueToAny(item)
		}
		return list
	case *qdrant.Value_StructValue:
		if v.StructValue == nil {
			return map[string]any{}
		}
		return payloadToMap(v.StructValue.Fields)
	default:
		return nil
	}
}

var _ Gateway = (*Qdrant)(nil)
