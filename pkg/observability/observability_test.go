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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	ctx := context.Background()
	var m *Metrics

	m.RecordHTTPRequest(ctx, "GET", "/health", 200, time.Millisecond)
	m.RecordStream(ctx, "completed", time.Second)
	m.RecordHeartbeat(ctx)
	m.RecordRetrieval(ctx, "ns", 2, time.Millisecond, nil)
	m.RecordToolCall(ctx, "natal_figure", time.Millisecond, errors.New("boom"))
	m.RecordLLMCall(ctx, "gpt-4.1", time.Second, nil)
	assert.NoError(t, m.Shutdown(ctx))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisabledMetricsReturnNil(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestMetricsExposition(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "stargazer"})
	require.NoError(t, err)
	defer func() { _ = m.Shutdown(context.Background()) }()

	ctx := context.Background()
	m.RecordToolCall(ctx, "natal_figure", 20*time.Millisecond, nil)
	m.RecordRetrieval(ctx, "hierarchy_chunking_strategy", 3, 5*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "stargazer_tool_calls_total")
	assert.Contains(t, body, "stargazer_rag_searches_total")
}

func TestHTTPMiddlewarePreservesFlusher(t *testing.T) {
	var flushed bool
	handler := HTTPMiddleware(nil, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		w.WriteHeader(http.StatusAccepted)
		f.Flush()
		flushed = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.True(t, flushed)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, rec.Flushed)
}

func TestTracingConfigValidate(t *testing.T) {
	cfg := TracingConfig{Enabled: true}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())

	cfg.Exporter = "zipkin"
	assert.Error(t, cfg.Validate())

	cfg = TracingConfig{Enabled: true, SamplingRate: 2}
	cfg.SetDefaults()
	assert.Error(t, cfg.Validate())
}

func TestDisabledTracerIsNoop(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracingConfig{}, "test")
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "span")
	assert.False(t, span.SpanContext().IsValid())
	EndSpan(span, errors.New("ignored"))
}
