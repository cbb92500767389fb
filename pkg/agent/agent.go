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

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stargazer-ai/stargazer/pkg/model"
	"github.com/stargazer-ai/stargazer/pkg/observability"
	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

// DefaultMaxIterations bounds the reasoning turns of one request.
const DefaultMaxIterations = 5

// ErrMaxIterations is returned when every allowed turn requested tools.
var ErrMaxIterations = errors.New("maximum reasoning turns reached")

// errStopped means the consumer no longer accepts events.
var errStopped = errors.New("event consumer stopped")

// Client-safe error messages. Details go to the log only.
const (
	msgModelFailed   = "The language model request failed. Please try again later."
	msgToolFailed    = "Tool %s failed while processing your request."
	msgToolMissing   = "Tool %s is not available."
	msgMaxIterations = "Stopped after %d reasoning turns without a final answer."
	msgToolNotice    = "Tool %s failed and returned no result. Continue without it."
)

// Retriever supplies the knowledge context of a request. It never fails;
// retrieval problems yield an empty context.
type Retriever interface {
	SearchContext(ctx context.Context, query string) []rag.ContextItem
}

// Config configures an Agent.
type Config struct {
	// LLM is the chat model (required).
	LLM model.LLM

	// Tools the model may call. nil means none.
	Tools *tool.Registry

	// Retriever supplies knowledge context. nil disables retrieval.
	Retriever Retriever

	SystemPrompt string

	// SystemPromptLoaded reports that SystemPrompt came from configuration
	// rather than the built-in default.
	SystemPromptLoaded bool

	// MaxIterations caps reasoning turns per request. Default: 5
	MaxIterations int

	// ContinueOnToolError feeds a failure notice to the model instead of
	// ending the request when a tool fails.
	ContinueOnToolError bool

	// Temperature and MaxTokens override the model defaults when set.
	Temperature *float64
	MaxTokens   *int

	Metrics *observability.Metrics
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
}

// Agent drives the reasoning loop. It holds no per-request state and is
// safe for concurrent use.
type Agent struct {
	cfg    Config
	tracer trace.Tracer
}

// New creates an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.LLM == nil {
		return nil, errors.New("agent requires a language model")
	}
	cfg.SetDefaults()
	if cfg.Tools == nil {
		cfg.Tools, _ = tool.NewRegistry()
	}
	return &Agent{cfg: cfg, tracer: observability.Tracer()}, nil
}

// Input is one user request.
type Input struct {
	Query      string
	IncludeRAG bool
	SessionID  string
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted     Outcome = "completed"
	OutcomeFailed        Outcome = "failed"
	OutcomeMaxIterations Outcome = "max_iterations"
	OutcomeCanceled      Outcome = "canceled"
)

// Info describes the agent for status reporting.
type Info struct {
	Model              string   `json:"model"`
	MaxIterations      int      `json:"max_iterations"`
	Tools              []string `json:"tools"`
	InProcessTools     int      `json:"in_process_tools"`
	SubprocessTools    int      `json:"subprocess_tools"`
	RAGEnabled         bool     `json:"rag_enabled"`
	SystemPromptLoaded bool     `json:"system_prompt_loaded"`
}

// Info returns a snapshot of the agent configuration.
func (a *Agent) Info() Info {
	counts := a.cfg.Tools.CountByTransport()
	return Info{
		Model:              a.cfg.LLM.Name(),
		MaxIterations:      a.cfg.MaxIterations,
		Tools:              a.cfg.Tools.Names(),
		InProcessTools:     counts[tool.TransportInProcess],
		SubprocessTools:    counts[tool.TransportStdio],
		RAGEnabled:         a.cfg.Retriever != nil,
		SystemPromptLoaded: a.cfg.SystemPromptLoaded,
	}
}

// Tools returns the tool registry.
func (a *Agent) Tools() *tool.Registry {
	return a.cfg.Tools
}

// Run answers one request, passing every event to emit in order. emit
// returning false cancels the run. Run never emits StreamEnd.
//
// The returned error is nil for completed and canceled runs,
// ErrMaxIterations when the turn cap is hit, and the underlying failure
// otherwise. Whatever the outcome, at most one Error event is emitted.
func (a *Agent) Run(ctx context.Context, in Input, emit func(Event) bool) (Outcome, error) {
	sess := newSession(in.SessionID)
	ctx, span := a.tracer.Start(ctx, observability.SpanAgentRun, trace.WithAttributes(
		attribute.String(observability.AttrSessionID, sess.ID),
		attribute.String(observability.AttrLLMModel, a.cfg.LLM.Name()),
	))

	r := &run{agent: a, sess: sess, emit: emit}
	outcome, err := r.execute(ctx, in)

	span.SetAttributes(attribute.String(observability.AttrOutcome, string(outcome)))
	if outcome == OutcomeCanceled {
		observability.EndSpan(span, nil)
	} else {
		observability.EndSpan(span, err)
	}

	if n := sess.Pending(); n > 0 {
		slog.Debug("Run ended with unmatched tool calls", "session_id", sess.ID, "pending", n)
	}
	slog.Info("Agent run finished", "session_id", sess.ID, "outcome", outcome)
	return outcome, err
}

// run is the state of one Run call.
type run struct {
	agent    *Agent
	sess     *Session
	emit     func(Event) bool
	messages []model.Message
	system   string
}

func (r *run) send(ev Event) error {
	if !r.emit(ev) {
		return errStopped
	}
	r.sess.Touch()
	return nil
}

// fail emits the single Error event of a failed run.
func (r *run) fail(ctx context.Context, message string, err error) (Outcome, error) {
	if ctx.Err() != nil {
		return OutcomeCanceled, nil
	}
	slog.Error("Agent run failed", "session_id", r.sess.ID, "error", err)
	if sendErr := r.send(Error(message)); sendErr != nil {
		return OutcomeCanceled, nil
	}
	return OutcomeFailed, err
}

func (r *run) execute(ctx context.Context, in Input) (Outcome, error) {
	cfg := r.agent.cfg
	r.system = cfg.SystemPrompt
	r.messages = []model.Message{model.UserMessage(in.Query)}

	if in.IncludeRAG && cfg.Retriever != nil {
		items := cfg.Retriever.SearchContext(ctx, in.Query)
		if ctx.Err() != nil {
			return OutcomeCanceled, nil
		}
		if len(items) > 0 {
			if err := r.send(RagContext(items)); err != nil {
				return OutcomeCanceled, nil
			}
			r.system = appendReferences(r.system, items)
		}
	}

	defs := cfg.Tools.Definitions()
	for turn := 1; turn <= cfg.MaxIterations; turn++ {
		if ctx.Err() != nil {
			return OutcomeCanceled, nil
		}
		if turn > 1 {
			if err := r.send(ModelStart()); err != nil {
				return OutcomeCanceled, nil
			}
		}

		resp, err := r.reason(ctx, turn, defs)
		if errors.Is(err, errStopped) || ctx.Err() != nil {
			return OutcomeCanceled, nil
		}
		if err != nil {
			return r.fail(ctx, msgModelFailed, err)
		}
		if !resp.HasToolCalls() {
			return OutcomeCompleted, nil
		}

		outcome, err := r.dispatch(ctx, resp)
		if outcome != "" {
			return outcome, err
		}
	}

	slog.Warn("Reasoning turn cap reached", "session_id", r.sess.ID, "max_iterations", cfg.MaxIterations)
	if err := r.send(Error(fmt.Sprintf(msgMaxIterations, cfg.MaxIterations))); err != nil {
		return OutcomeCanceled, nil
	}
	return OutcomeMaxIterations, ErrMaxIterations
}

// reason runs one streamed model turn, emitting each text increment.
func (r *run) reason(ctx context.Context, turn int, defs []tool.Definition) (*model.Response, error) {
	cfg := r.agent.cfg
	req := &model.Request{
		SystemInstruction: r.system,
		Messages:          r.messages,
		Tools:             defs,
	}
	if cfg.Temperature != nil || cfg.MaxTokens != nil {
		req.Config = &model.GenerateConfig{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	}

	ctx, span := r.agent.tracer.Start(ctx, observability.SpanLLMTurn, trace.WithAttributes(
		attribute.Int("agent.turn", turn),
	))
	start := time.Now()

	r.sess.resetTurn()
	streamed := false
	var final *model.Response
	var err error
	for resp, genErr := range cfg.LLM.GenerateContent(ctx, req, true) {
		if genErr != nil {
			err = genErr
			break
		}
		if resp == nil {
			continue
		}
		if resp.Partial {
			if resp.Text == "" {
				continue
			}
			streamed = true
			r.sess.appendTurn(resp.Text)
			if err = r.send(TokenChunk(resp.Text)); err != nil {
				break
			}
			continue
		}
		final = resp
	}
	if err == nil && final == nil {
		err = errors.New("model returned no response")
	}

	recorded := err
	if errors.Is(err, errStopped) {
		recorded = nil
	}
	cfg.Metrics.RecordLLMCall(ctx, cfg.LLM.Name(), time.Since(start), recorded)
	observability.EndSpan(span, recorded)
	if err != nil {
		return nil, err
	}

	// Non-streaming models deliver all text in the final response.
	if !streamed && strings.TrimSpace(final.Text) != "" {
		r.sess.appendTurn(final.Text)
		if err := r.send(TokenChunk(final.Text)); err != nil {
			return nil, err
		}
	}
	return final, nil
}

// dispatch runs the requested tools in order. A non-empty outcome ends the
// run.
func (r *run) dispatch(ctx context.Context, resp *model.Response) (Outcome, error) {
	calls := make([]tool.ToolCall, len(resp.ToolCalls))
	for i, c := range resp.ToolCalls {
		c.ID = r.sess.assignToolID(c.ID)
		if c.Args == nil {
			c.Args = map[string]any{}
		}
		calls[i] = c
	}
	r.messages = append(r.messages, model.AssistantMessage(r.sess.turnText(), calls...))

	for _, call := range calls {
		if ctx.Err() != nil {
			return OutcomeCanceled, nil
		}
		if err := r.send(ToolCallStart(call.ID, call.Name, call.Args)); err != nil {
			return OutcomeCanceled, nil
		}
		r.sess.startTool(call.ID, call.Name)

		result, message, err := r.invoke(ctx, call)
		if ctx.Err() != nil {
			// The result of a call outliving its request is dropped.
			return OutcomeCanceled, nil
		}
		if err != nil {
			if !r.agent.cfg.ContinueOnToolError {
				return r.fail(ctx, message, err)
			}
			slog.Warn("Tool failed, continuing without its result",
				"session_id", r.sess.ID, "tool", call.Name, "error", err)
			notice := fmt.Sprintf(msgToolNotice, call.Name)
			result = tool.Text(notice)
		}

		r.sess.endTool(call.ID)
		if err := r.send(ToolCallEnd(call.ID, call.Name, result.Display)); err != nil {
			return OutcomeCanceled, nil
		}
		r.messages = append(r.messages, model.ToolMessage(call.ID, call.Name, result.ModelContent()))
	}
	return "", nil
}

// invoke resolves and calls one tool. On failure it returns the
// client-safe message.
func (r *run) invoke(ctx context.Context, call tool.ToolCall) (tool.Result, string, error) {
	cfg := r.agent.cfg
	t, err := cfg.Tools.Lookup(call.Name)
	if err != nil {
		return tool.Result{}, fmt.Sprintf(msgToolMissing, call.Name), err
	}

	ctx, span := r.agent.tracer.Start(ctx, observability.SpanToolCall, trace.WithAttributes(
		attribute.String(observability.AttrToolName, call.Name),
		attribute.String(observability.AttrToolID, call.ID),
	))
	start := time.Now()
	result, err := t.Call(ctx, call.Args)
	cfg.Metrics.RecordToolCall(ctx, call.Name, time.Since(start), err)
	observability.EndSpan(span, err)

	if err != nil {
		return tool.Result{}, fmt.Sprintf(msgToolFailed, call.Name), fmt.Errorf("tool %s: %w", call.Name, err)
	}
	slog.Debug("Tool call finished",
		"session_id", r.sess.ID,
		"tool", call.Name,
		"tool_id", call.ID,
		"duration", time.Since(start))
	return result, "", nil
}

// appendReferences adds the retrieved knowledge to the system prompt.
func appendReferences(system string, items []rag.ContextItem) string {
	block := rag.PromptHeader + "\n\n" + rag.FormatForPrompt(items)
	if strings.TrimSpace(system) == "" {
		return block
	}
	return system + "\n\n" + block
}
