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

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/stargazer-ai/stargazer/pkg/agent"
	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/observability"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

// HTTPServer serves the chat API.
type HTTPServer struct {
	cfg      config.ServerConfig
	agent    *agent.Agent
	tools    *tool.Registry
	obs      *observability.Manager
	version  string
	charts   string
	validate *validator.Validate
	handler  http.Handler
	server   *http.Server
}

// HTTPServerOption configures the HTTP server.
type HTTPServerOption func(*HTTPServer)

// WithObservability sets the observability manager for tracing and metrics.
func WithObservability(obs *observability.Manager) HTTPServerOption {
	return func(s *HTTPServer) {
		s.obs = obs
	}
}

// WithTools sets the registry listed by /tools when no agent is available.
func WithTools(tools *tool.Registry) HTTPServerOption {
	return func(s *HTTPServer) {
		s.tools = tools
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(version string) HTTPServerOption {
	return func(s *HTTPServer) {
		s.version = version
	}
}

// WithChartsDir serves the rendered natal charts in dir under /charts/.
func WithChartsDir(dir string) HTTPServerOption {
	return func(s *HTTPServer) {
		s.charts = dir
	}
}

// NewHTTPServer creates the server. a may be nil, in which case every chat
// endpoint answers 503.
func NewHTTPServer(cfg config.ServerConfig, a *agent.Agent, opts ...HTTPServerOption) *HTTPServer {
	cfg.SetDefaults()

	s := &HTTPServer{
		cfg:      cfg,
		agent:    a,
		version:  "dev",
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tools == nil && a != nil {
		s.tools = a.Tools()
	}

	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// routes builds the router and middleware chain.
// Order: observability -> request id -> logging -> recover -> cors -> routes.
func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(observability.HTTPMiddleware(s.obs.Tracer(), s.obs.Metrics(), routePattern))
	r.Use(chimw.RequestID)
	r.Use(loggingMiddleware)
	r.Use(recoverMiddleware)
	r.Use(corsMiddleware(s.cfg.CORSOrigins))

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/agent/status", s.handleAgentStatus)
	r.Get("/tools", s.handleTools)

	r.Post("/chat", s.handleChat)
	r.Post("/chat/stream", s.handleChatStream)

	if s.charts != "" {
		r.Get("/charts/*", chartsHandler(s.charts))
	}

	if m := s.obs.Metrics(); m != nil {
		r.Method(http.MethodGet, observability.DefaultMetricsPath, m.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}

// chartsHandler serves files from dir without directory listings.
func chartsHandler(dir string) http.HandlerFunc {
	files := http.StripPrefix("/charts/", http.FileServer(http.Dir(dir)))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		files.ServeHTTP(w, r)
	}
}

// routePattern returns the matched chi pattern, falling back to the raw
// path when no route matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: event streams stay open for as long as the agent runs.
		IdleTimeout: 120 * time.Second,
	}

	slog.Info("HTTP server starting", "address", s.cfg.Address(), "agent_ready", s.agent != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

// Address returns the HTTP server address.
func (s *HTTPServer) Address() string {
	return s.cfg.Address()
}
