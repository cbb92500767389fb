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
	"fmt"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records service metrics. A nil *Metrics is valid and records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	registry *prom.Registry
	provider *sdkmetric.MeterProvider

	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram

	streams        metric.Int64Counter
	streamDuration metric.Float64Histogram
	heartbeats     metric.Int64Counter

	retrievals        metric.Int64Counter
	retrievalErrors   metric.Int64Counter
	retrievalDuration metric.Float64Histogram
	retrievalItems    metric.Int64Histogram

	toolCalls    metric.Int64Counter
	toolErrors   metric.Int64Counter
	toolDuration metric.Float64Histogram

	llmCalls    metric.Int64Counter
	llmErrors   metric.Int64Counter
	llmDuration metric.Float64Histogram
}

// NewMetrics builds the meter provider backed by a dedicated Prometheus
// registry. It returns nil when metrics are disabled.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(TracerName)
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultServiceName
	}

	m := &Metrics{registry: registry, provider: provider}
	b := instrumentBuilder{meter: meter, ns: ns}

	m.httpRequests = b.counter("http_requests", "HTTP requests served")
	m.httpDuration = b.histogram("http_request_duration_seconds", "HTTP request duration in seconds")
	m.streams = b.counter("chat_streams", "Chat streams completed, by outcome")
	m.streamDuration = b.histogram("chat_stream_duration_seconds", "Chat stream duration in seconds")
	m.heartbeats = b.counter("chat_heartbeats", "Keep-alive frames written")
	m.retrievals = b.counter("rag_searches", "Knowledge searches")
	m.retrievalErrors = b.counter("rag_search_errors", "Knowledge searches that degraded to no context")
	m.retrievalDuration = b.histogram("rag_search_duration_seconds", "Knowledge search duration in seconds")
	m.retrievalItems = b.intHistogram("rag_search_items", "Context items returned per search")
	m.toolCalls = b.counter("tool_calls", "Tool invocations")
	m.toolErrors = b.counter("tool_errors", "Failed tool invocations")
	m.toolDuration = b.histogram("tool_call_duration_seconds", "Tool invocation duration in seconds")
	m.llmCalls = b.counter("llm_requests", "Model requests")
	m.llmErrors = b.counter("llm_errors", "Failed model requests")
	m.llmDuration = b.histogram("llm_request_duration_seconds", "Model request duration in seconds")

	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

type instrumentBuilder struct {
	meter metric.Meter
	ns    string
	err   error
}

func (b *instrumentBuilder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(b.ns+"_"+name, metric.WithDescription(desc))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s counter: %w", name, err)
	}
	return c
}

func (b *instrumentBuilder) histogram(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(b.ns+"_"+name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s histogram: %w", name, err)
	}
	return h
}

func (b *instrumentBuilder) intHistogram(name, desc string) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(b.ns+"_"+name, metric.WithDescription(desc))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s histogram: %w", name, err)
	}
	return h
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.String(AttrHTTPStatusCode, strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *Metrics) RecordStream(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, outcome))
	m.streams.Add(ctx, 1, attrs)
	m.streamDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *Metrics) RecordHeartbeat(ctx context.Context) {
	if m == nil {
		return
	}
	m.heartbeats.Add(ctx, 1)
}

func (m *Metrics) RecordRetrieval(ctx context.Context, namespace string, items int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrRAGNamespace, namespace))
	m.retrievals.Add(ctx, 1, attrs)
	m.retrievalDuration.Record(ctx, duration.Seconds(), attrs)
	m.retrievalItems.Record(ctx, int64(items), attrs)
	if err != nil {
		m.retrievalErrors.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrToolName, tool))
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrLLMModel, model))
	m.llmCalls.Add(ctx, 1, attrs)
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}
