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
	"fmt"
	"log/slog"

	"github.com/stargazer-ai/stargazer/pkg/config"
)

// Backend identifies a gateway implementation.
type Backend string

const (
	// BackendPinecone uses the managed Pinecone service.
	BackendPinecone Backend = "pinecone"

	// BackendQdrant uses a Qdrant server over gRPC.
	BackendQdrant Backend = "qdrant"

	// BackendChromem uses chromem-go in process. Zero-config.
	BackendChromem Backend = "chromem"
)

// New creates the configured gateway wrapped in Bounded.
//
// A backend without credentials is not a startup error: the service keeps
// running without retrieval and New returns an Unavailable gateway.
func New(cfg config.VectorConfig) (Gateway, error) {
	var (
		gw  Gateway
		err error
	)

	switch Backend(cfg.Type) {
	case BackendPinecone:
		if cfg.Pinecone.APIKey == "" {
			slog.Warn("Pinecone API key not set, knowledge retrieval disabled")
			return Unavailable{Reason: "pinecone api key not configured"}, nil
		}
		gw, err = NewPinecone(cfg.Pinecone, cfg.BatchSize)

	case BackendQdrant:
		if cfg.Qdrant.Host == "" {
			slog.Warn("Qdrant host not set, knowledge retrieval disabled")
			return Unavailable{Reason: "qdrant host not configured"}, nil
		}
		gw, err = NewQdrant(cfg.Qdrant, cfg.BatchSize)

	case BackendChromem:
		gw, err = NewChromem(cfg.Chromem)

	default:
		return nil, fmt.Errorf("unknown vector backend: %q", cfg.Type)
	}

	if err != nil {
		return nil, err
	}

	slog.Info("Vector backend ready", "backend", gw.Name(), "pool_size", cfg.PoolSize)
	return NewBounded(gw, cfg.PoolSize), nil
}
