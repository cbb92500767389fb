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


package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stargazer-ai/stargazer/pkg/config"
)

// ValidateCmd validates configuration.
type ValidateCmd struct {
	// File overrides the global --config flag.
	File string `arg:"" optional:"" name:"config" help:"Configuration file path." placeholder:"PATH"`

	Format string `short:"f" help:"Output format: compact, json." default:"compact" enum:"compact,json"`

	PrintConfig bool `short:"p" name:"print-config" help:"Print the resolved configuration with secrets redacted."`
}

type validationReport struct {
	Valid    bool           `json:"valid"`
	Config   string         `json:"config"`
	Error    string         `json:"error,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Resolved *config.Config `json:"resolved,omitempty"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	path := firstNonEmpty(c.File, cli.Config)
	report := validationReport{Config: firstNonEmpty(path, "(defaults)")}

	cfg, err := config.Load(path)
	if err != nil {
		report.Error = err.Error()
		c.print(report)
		return fmt.Errorf("configuration is invalid")
	}

	report.Valid = true
	report.Warnings = readinessWarnings(cfg)
	if c.PrintConfig {
		report.Resolved = redact(cfg)
	}
	c.print(report)
	return nil
}

func (c *ValidateCmd) print(r validationReport) {
	if c.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r)
		return
	}

	if !r.Valid {
		fmt.Fprintf(os.Stderr, "✗ %s: %s\n", r.Config, r.Error)
		return
	}
	fmt.Printf("✓ %s is valid\n", r.Config)
	for _, w := range r.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
	if r.Resolved != nil {
		out, err := yaml.Marshal(r.Resolved)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render configuration: %v\n", err)
			return
		}
		fmt.Printf("\n%s", out)
	}
}

// readinessWarnings lists settings that leave the service degraded.
func readinessWarnings(cfg *config.Config) []string {
	var warnings []string
	if !cfg.LLM.HasCredentials() {
		warnings = append(warnings, "llm.api_key is not set: the agent will not be initialized")
	}
	if cfg.Embedder.APIKey == "" {
		warnings = append(warnings, "embedder.api_key is not set: knowledge retrieval is disabled")
	}
	switch cfg.Vector.Type {
	case "pinecone":
		if cfg.Vector.Pinecone.APIKey == "" {
			warnings = append(warnings, "vector.pinecone.api_key is not set: knowledge retrieval is disabled")
		}
	case "qdrant":
		if cfg.Vector.Qdrant.Host == "" {
			warnings = append(warnings, "vector.qdrant.host is not set: knowledge retrieval is disabled")
		}
	}
	return warnings
}

const redacted = "********"

// redact returns a copy of cfg with credentials masked.
func redact(cfg *config.Config) *config.Config {
	out := *cfg
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&out.LLM.APIKey)
	mask(&out.Embedder.APIKey)
	mask(&out.Vector.Pinecone.APIKey)
	mask(&out.Vector.Qdrant.APIKey)

	if len(cfg.Tools.MCP) > 0 {
		out.Tools.MCP = make([]config.MCPSourceConfig, len(cfg.Tools.MCP))
		for i, src := range cfg.Tools.MCP {
			if len(src.Env) > 0 {
				env := make(map[string]string, len(src.Env))
				for k := range src.Env {
					env[k] = redacted
				}
				src.Env = env
			}
			out.Tools.MCP[i] = src
		}
	}
	return &out
}
