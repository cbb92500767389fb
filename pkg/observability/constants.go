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

const (
	AttrHTTPMethod       = "http.method"
	AttrHTTPRoute        = "http.route"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"
	AttrSessionID        = "chat.session_id"
	AttrToolName         = "tool.name"
	AttrToolID           = "tool.id"
	AttrLLMModel         = "llm.model"
	AttrRAGNamespace     = "rag.namespace"
	AttrRAGTopK          = "rag.top_k"
	AttrRAGItems         = "rag.items"
	AttrErrorType        = "error.type"
	AttrOutcome          = "agent.outcome"

	SpanHTTPRequest = "http.request"
	SpanAgentRun    = "agent.run"
	SpanLLMTurn     = "agent.llm_turn"
	SpanToolCall    = "agent.tool_call"
	SpanRAGSearch   = "rag.search"
	SpanEmbed       = "rag.embed"
	SpanVectorQuery = "vector.query"

	DefaultServiceName  = "stargazer"
	DefaultMetricsPath  = "/metrics"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultSamplingRate = 1.0

	// TracerName is the instrumentation scope used by every package.
	TracerName = "github.com/stargazer-ai/stargazer"
)
