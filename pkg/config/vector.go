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

package config

import "fmt"

// VectorConfig selects and configures the vector index backend.
//
// Example:
//
//	vector:
//	  type: pinecone
//	  pool_size: 50
//	  pinecone:
//	    api_key: ${PINECONE_API_KEY}
//	    index_name: astrology-text
type VectorConfig struct {
	// Type is pinecone, qdrant or chromem. Default: pinecone
	Type string `koanf:"type" yaml:"type" env:"VECTOR_BACKEND"`

	// PoolSize bounds concurrent backend calls. Default: 50
	PoolSize int `koanf:"pool_size" yaml:"pool_size" validate:"min=0"`

	// BatchSize bounds records per upsert call. Default: 100
	BatchSize int `koanf:"batch_size" yaml:"batch_size" validate:"min=0"`

	Pinecone PineconeConfig `koanf:"pinecone" yaml:"pinecone"`
	Qdrant   QdrantConfig   `koanf:"qdrant" yaml:"qdrant"`
	Chromem  ChromemConfig  `koanf:"chromem" yaml:"chromem"`
}

type PineconeConfig struct {
	APIKey    string `koanf:"api_key" yaml:"api_key" env:"PINECONE_API_KEY"`
	IndexName string `koanf:"index_name" yaml:"index_name" env:"PINECONE_INDEX_NAME"`
	// Host skips index discovery when set.
	Host string `koanf:"host" yaml:"host" env:"PINECONE_HOST"`
}

type QdrantConfig struct {
	Host       string `koanf:"host" yaml:"host" env:"QDRANT_HOST"`
	Port       int    `koanf:"port" yaml:"port" env:"QDRANT_PORT"`
	APIKey     string `koanf:"api_key" yaml:"api_key" env:"QDRANT_API_KEY"`
	UseTLS     bool   `koanf:"use_tls" yaml:"use_tls"`
	Collection string `koanf:"collection" yaml:"collection"`
}

type ChromemConfig struct {
	// PersistPath enables on-disk persistence when set.
	PersistPath string `koanf:"persist_path" yaml:"persist_path"`
	Compress    bool   `koanf:"compress" yaml:"compress"`
}

func (c *VectorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "pinecone"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 50
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.Pinecone.IndexName == "" {
		c.Pinecone.IndexName = "astrology-text"
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = c.Pinecone.IndexName
	}
}

func (c *VectorConfig) Validate() error {
	switch c.Type {
	case "pinecone", "qdrant", "chromem":
	default:
		return fmt.Errorf("invalid type %q (valid: pinecone, qdrant, chromem)", c.Type)
	}
	return nil
}
