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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stargazer-ai/stargazer"
	"github.com/stargazer-ai/stargazer/pkg/observability"
	"github.com/stargazer-ai/stargazer/pkg/runtime"
	"github.com/stargazer-ai/stargazer/pkg/server"
)

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Host string `help:"Host to bind (overrides server.host)."`
	Port int    `help:"Port to listen on (overrides server.port)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := loadConfig(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	obs, err := observability.NewManager(ctx, cfg.Observability, stargazer.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Observability shutdown error", "error", err)
		}
	}()

	rt, err := runtime.New(ctx, cfg, runtime.Options{
		Observability: obs,
		Version:       stargazer.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("Runtime cleanup error", "error", err)
		}
	}()

	if rt.Agent() == nil {
		slog.Warn("Serving without an agent; chat endpoints will answer 503", "reason", rt.InitError())
	}

	srv := server.NewHTTPServer(cfg.Server, rt.Agent(),
		server.WithObservability(obs),
		server.WithTools(rt.Tools()),
		server.WithChartsDir(cfg.Tools.ChartsDir),
		server.WithVersion(stargazer.Version),
	)

	fmt.Fprintf(os.Stderr, "\nstargazer %s ready\n", stargazer.Version)
	fmt.Fprintf(os.Stderr, "   Chat stream: http://%s/chat/stream\n", srv.Address())
	fmt.Fprintf(os.Stderr, "   Chat:        http://%s/chat\n", srv.Address())
	fmt.Fprintf(os.Stderr, "   Status:      http://%s/agent/status\n", srv.Address())
	fmt.Fprintf(os.Stderr, "   Health:      http://%s/health\n", srv.Address())
	if obs.Metrics() != nil {
		fmt.Fprintf(os.Stderr, "   Metrics:     http://%s%s\n", srv.Address(), observability.DefaultMetricsPath)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Start(ctx)
}
