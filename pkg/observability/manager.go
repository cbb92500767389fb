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

package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"
)

// Manager owns the tracer provider and metrics for the process.
type Manager struct {
	tracerProvider trace.TracerProvider
	metrics        *Metrics
}

// NewManager initializes tracing and metrics from cfg.
func NewManager(ctx context.Context, cfg Config, version string) (*Manager, error) {
	tp, err := InitGlobalTracer(ctx, cfg.Tracing, version)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Manager{tracerProvider: tp, metrics: metrics}, nil
}

// Metrics returns the metrics recorder, nil when disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// Tracer returns a tracer from the managed provider.
func (m *Manager) Tracer() trace.Tracer {
	if m == nil || m.tracerProvider == nil {
		return Tracer()
	}
	return m.tracerProvider.Tracer(TracerName)
}

// Shutdown flushes exporters.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error
	if spt, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, spt.Shutdown(ctx))
	}
	errs = append(errs, m.metrics.Shutdown(ctx))
	return errors.Join(errs...)
}
