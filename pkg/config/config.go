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

// Package config loads stargazer configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"fmt"

	"github.com/stargazer-ai/stargazer/pkg/observability"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig         `koanf:"server" yaml:"server"`
	LLM           LLMConfig            `koanf:"llm" yaml:"llm"`
	Embedder      EmbedderConfig       `koanf:"embedder" yaml:"embedder"`
	Vector        VectorConfig         `koanf:"vector" yaml:"vector"`
	RAG           RAGConfig            `koanf:"rag" yaml:"rag"`
	Agent         AgentConfig          `koanf:"agent" yaml:"agent"`
	Tools         ToolsConfig          `koanf:"tools" yaml:"tools"`
	Observability observability.Config `koanf:"observability" yaml:"observability"`
	Logger        LoggerConfig         `koanf:"logger" yaml:"logger"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies default values to every section, including values
// derived from other sections and the environment.
func (c *Config) SetDefaults() {
	c.setStaticDefaults()
	c.LLM.Resolve()
	c.Embedder.Resolve(&c.LLM)
}

// setStaticDefaults applies defaults that do not depend on other settings.
func (c *Config) setStaticDefaults() {
	c.Server.SetDefaults()
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.Vector.SetDefaults()
	c.RAG.SetDefaults()
	c.Agent.SetDefaults()
	c.Tools.SetDefaults()
	c.Observability.SetDefaults()
	c.Logger.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"llm", c.LLM.Validate},
		{"embedder", c.Embedder.Validate},
		{"vector", c.Vector.Validate},
		{"rag", c.RAG.Validate},
		{"agent", c.Agent.Validate},
		{"tools", c.Tools.Validate},
		{"observability", c.Observability.Validate},
		{"logger", c.Logger.Validate},
	}
	for _, s := range sections {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
