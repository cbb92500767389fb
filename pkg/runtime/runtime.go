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


// Package runtime assembles the process-wide components from configuration:
// the embedder, the vector gateway, the retriever, the tool registry, the
// chat model and the agent.
//
// Missing credentials never fail construction. Without embedder
// credentials retrieval is disabled; without model credentials the agent is
// nil and the HTTP layer reports it as not initialized.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stargazer-ai/stargazer/pkg/agent"
	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/embedder"
	"github.com/stargazer-ai/stargazer/pkg/model"
	"github.com/stargazer-ai/stargazer/pkg/observability"
	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/tool"
	"github.com/stargazer-ai/stargazer/pkg/tool/charttool"
	"github.com/stargazer-ai/stargazer/pkg/tool/knowledgetool"
	"github.com/stargazer-ai/stargazer/pkg/tool/mcptoolset"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

// ErrNoCredentials means the chat model has no API key configured.
var ErrNoCredentials = errors.New("language model credentials not configured")

// Options customizes runtime construction. Nil factories use the defaults.
type Options struct {
	LLMFactory      LLMFactory
	EmbedderFactory EmbedderFactory
	GatewayFactory  GatewayFactory

	Observability *observability.Manager

	// ClientName and Version identify this process to MCP servers.
	ClientName string
	Version    string

	// RetrievalOnly builds the embedder, gateway and retriever and skips
	// tools and the agent. Used by maintenance commands.
	RetrievalOnly bool
}

func (o *Options) setDefaults() {
	if o.LLMFactory == nil {
		o.LLMFactory = DefaultLLMFactory
	}
	if o.EmbedderFactory == nil {
		o.EmbedderFactory = DefaultEmbedderFactory
	}
	if o.GatewayFactory == nil {
		o.GatewayFactory = DefaultGatewayFactory
	}
	if o.ClientName == "" {
		o.ClientName = "stargazer"
	}
	if o.Version == "" {
		o.Version = "dev"
	}
}

// Runtime owns the shared components for the lifetime of the process.
type Runtime struct {
	config    *config.Config
	embedder  embedder.Embedder
	gateway   vector.Gateway
	retriever *rag.Retriever
	mcp       *mcptoolset.Toolset
	tools     *tool.Registry
	llm       model.LLM
	agent     *agent.Agent
	initErr   error
}

// New builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	opts.setDefaults()
	metrics := opts.Observability.Metrics()

	r := &Runtime{config: cfg}

	r.embedder, r.gateway = buildRetrievalBackend(cfg, opts)

	retriever, err := rag.NewRetriever(r.embedder, r.gateway, cfg.RAG, rag.WithMetrics(metrics))
	if err != nil {
		r.cleanup()
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}
	r.retriever = retriever

	if opts.RetrievalOnly {
		return r, nil
	}

	if err := r.buildTools(ctx, opts); err != nil {
		r.cleanup()
		return nil, err
	}

	r.buildAgent(opts, metrics)
	return r, nil
}

// buildRetrievalBackend never fails: an unusable backend becomes an
// Unavailable gateway so the service runs without retrieval.
func buildRetrievalBackend(cfg *config.Config, opts Options) (embedder.Embedder, vector.Gateway) {
	if cfg.Embedder.APIKey == "" {
		slog.Warn("Embedding credentials not set, knowledge retrieval disabled")
		return nil, vector.Unavailable{Reason: "embedder not configured"}
	}

	emb, err := opts.EmbedderFactory(&cfg.Embedder)
	if err != nil {
		slog.Warn("Failed to create embedder, knowledge retrieval disabled", "error", err)
		return nil, vector.Unavailable{Reason: "embedder unavailable"}
	}

	gw, err := opts.GatewayFactory(&cfg.Vector)
	if err != nil {
		slog.Warn("Failed to connect vector backend, knowledge retrieval disabled",
			"backend", cfg.Vector.Type, "error", err)
		return emb, vector.Unavailable{Reason: err.Error()}
	}

	slog.Info("Knowledge retrieval configured",
		"backend", gw.Name(),
		"available", vector.Available(gw),
		"embedding_model", emb.Model(),
		"dimension", emb.Dimension(),
	)
	return emb, gw
}

func (r *Runtime) buildTools(ctx context.Context, opts Options) error {
	knowledge, err := knowledgetool.New(r.retriever)
	if err != nil {
		return fmt.Errorf("failed to create knowledge tools: %w", err)
	}

	chart, err := charttool.New(r.config.Tools.ChartsDir)
	if err != nil {
		return fmt.Errorf("failed to create chart tool: %w", err)
	}

	tools := append(knowledge, chart)
	taken := make(map[string]bool, len(tools))
	for _, t := range tools {
		taken[t.Name()] = true
	}

	r.mcp = mcptoolset.Connect(ctx, r.config.Tools.MCP, opts.ClientName, opts.Version)
	for _, t := range r.mcp.Tools() {
		if taken[t.Name()] {
			slog.Warn("Skipping MCP tool that shadows another tool", "tool", t.Name())
			continue
		}
		taken[t.Name()] = true
		tools = append(tools, t)
	}

	reg, err := tool.NewRegistry(tools...)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	r.tools = reg

	counts := reg.CountByTransport()
	slog.Info("Tools registered",
		"total", reg.Len(),
		"in_process", counts[tool.TransportInProcess],
		"subprocess", counts[tool.TransportStdio],
	)
	return nil
}

// buildAgent leaves the agent nil and records why when the model cannot
// be created.
func (r *Runtime) buildAgent(opts Options, metrics *observability.Metrics) {
	if !r.config.LLM.HasCredentials() {
		r.initErr = ErrNoCredentials
		slog.Error("Agent not initialized", "error", r.initErr)
		return
	}

	llm, err := opts.LLMFactory(&r.config.LLM)
	if err != nil {
		r.initErr = fmt.Errorf("failed to create language model: %w", err)
		slog.Error("Agent not initialized", "error", r.initErr)
		return
	}
	r.llm = llm

	prompt, loaded, err := r.config.Agent.LoadSystemPrompt()
	if err != nil {
		slog.Warn("Failed to load system prompt, using default", "error", err)
		prompt, loaded = config.DefaultSystemPrompt, false
	}

	cfg := agent.Config{
		LLM:                 llm,
		Tools:               r.tools,
		SystemPrompt:        prompt,
		SystemPromptLoaded:  loaded,
		MaxIterations:       r.config.Agent.MaxIterations,
		ContinueOnToolError: r.config.Agent.ContinueOnToolError,
		Metrics:             metrics,
	}
	if r.retriever.Available() {
		cfg.Retriever = r.retriever
	}

	a, err := agent.New(cfg)
	if err != nil {
		r.initErr = fmt.Errorf("failed to create agent: %w", err)
		slog.Error("Agent not initialized", "error", r.initErr)
		return
	}
	r.agent = a

	slog.Info("Agent initialized",
		"model", llm.Name(),
		"tools", r.tools.Len(),
		"rag_enabled", cfg.Retriever != nil,
		"max_iterations", a.Info().MaxIterations,
	)
}

func (r *Runtime) Config() *config.Config {
	return r.config
}

// Agent returns the agent, nil when it could not be initialized.
func (r *Runtime) Agent() *agent.Agent {
	return r.agent
}

// InitError reports why Agent is nil.
func (r *Runtime) InitError() error {
	return r.initErr
}

func (r *Runtime) Tools() *tool.Registry {
	return r.tools
}

func (r *Runtime) Retriever() *rag.Retriever {
	return r.retriever
}

func (r *Runtime) Embedder() embedder.Embedder {
	return r.embedder
}

func (r *Runtime) Gateway() vector.Gateway {
	return r.gateway
}

// SkippedToolSources maps each MCP source that was not started to the reason.
func (r *Runtime) SkippedToolSources() map[string]string {
	if r.mcp == nil {
		return map[string]string{}
	}
	return r.mcp.Skipped()
}

// Indexer returns an indexer over the configured backend. opts are applied
// after the configured batch size.
func (r *Runtime) Indexer(opts ...rag.IndexerOption) (*rag.Indexer, error) {
	if r.embedder == nil || !vector.Available(r.gateway) {
		return nil, fmt.Errorf("knowledge retrieval is not configured: %w", vector.ErrUnavailable)
	}
	opts = append([]rag.IndexerOption{rag.WithBatchSize(r.config.Vector.BatchSize)}, opts...)
	return rag.NewIndexer(r.embedder, r.gateway, opts...)
}

// Close stops MCP servers and releases backend connections.
func (r *Runtime) Close() error {
	return r.cleanup()
}

func (r *Runtime) cleanup() error {
	var errs []error
	if r.mcp != nil {
		if err := r.mcp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mcp toolset cleanup: %w", err))
		}
	}
	if r.llm != nil {
		if err := r.llm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("language model cleanup: %w", err))
		}
	}
	if r.embedder != nil {
		if err := r.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("embedder cleanup: %w", err))
		}
	}
	if r.gateway != nil {
		if err := r.gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("vector gateway cleanup: %w", err))
		}
	}
	return errors.Join(errs...)
}
