// Package testutils provides fakes and fixtures shared by the package tests.
package testutils

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/model"
	"github.com/stargazer-ai/stargazer/pkg/tool"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

// ErrScriptExhausted is returned when a ScriptedLLM is asked for more turns
// than it was given.
var ErrScriptExhausted = errors.New("scripted LLM has no more turns")

// TestConfig returns a minimal valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.Endpoint = "http://localhost:0"
	cfg.Tools.MCP = []config.MCPSourceConfig{}
	cfg.SetDefaults()
	return cfg
}

// TestContext returns a context with timeout for testing, canceled when
// the test finishes.
func TestContext(t testing.TB) context.Context {
	return TestContextWithTimeout(t, 5*time.Second)
}

// TestContextWithTimeout returns a context with custom timeout for testing,
// canceled when the test finishes.
func TestContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// Turn scripts one model response.
type Turn struct {
	// Chunks are streamed as partial text in order.
	Chunks []string

	// ToolCalls are requested in the final response.
	ToolCalls []tool.ToolCall

	// Err fails the turn after the chunks were streamed.
	Err error

	// Delay is waited before every chunk.
	Delay time.Duration

	// Block waits for the context to be canceled instead of answering.
	Block bool
}

// ScriptedLLM is a model.LLM replaying scripted turns.
type ScriptedLLM struct {
	mu       sync.Mutex
	turns    []Turn
	requests []*model.Request
}

// NewScriptedLLM creates a model answering with turns in order.
func NewScriptedLLM(turns ...Turn) *ScriptedLLM {
	return &ScriptedLLM{turns: turns}
}

// ToolTurn is a turn requesting a single tool call.
func ToolTurn(id, name string, args map[string]any) Turn {
	return Turn{ToolCalls: []tool.ToolCall{{ID: id, Name: name, Args: args}}}
}

// TextTurn is a turn streaming chunks and requesting no tools.
func TextTurn(chunks ...string) Turn {
	return Turn{Chunks: chunks}
}

func (s *ScriptedLLM) Name() string { return "scripted" }

func (s *ScriptedLLM) Close() error { return nil }

// Requests returns the requests received so far.
func (s *ScriptedLLM) Requests() []*model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of turns requested so far.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *ScriptedLLM) next(req *model.Request) (Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *req
	snapshot.Messages = append([]model.Message(nil), req.Messages...)
	s.requests = append(s.requests, &snapshot)

	if len(s.turns) == 0 {
		return Turn{}, false
	}
	t := s.turns[0]
	s.turns = s.turns[1:]
	return t, true
}

// GenerateContent implements model.LLM.
func (s *ScriptedLLM) GenerateContent(ctx context.Context, req *model.Request, stream bool) iter.Seq2[*model.Response, error] {
	return func(yield func(*model.Response, error) bool) {
		turn, ok := s.next(req)
		if !ok {
			yield(nil, ErrScriptExhausted)
			return
		}

		if turn.Block {
			<-ctx.Done()
			yield(nil, ctx.Err())
			return
		}

		agg := model.NewStreamingAggregator()
		for _, c := range turn.Chunks {
			if turn.Delay > 0 {
				select {
				case <-time.After(turn.Delay):
				case <-ctx.Done():
					yield(nil, ctx.Err())
					return
				}
			}
			resp := agg.ProcessTextDelta(c)
			if resp != nil && stream {
				if !yield(resp, nil) {
					return
				}
			}
		}

		if turn.Err != nil {
			yield(nil, turn.Err)
			return
		}

		final, err := agg.Close()
		if err != nil {
			yield(nil, err)
			return
		}
		final.ToolCalls = turn.ToolCalls
		if len(turn.ToolCalls) > 0 {
			final.FinishReason = model.FinishReasonToolCalls
		}
		yield(final, nil)
	}
}

var _ model.LLM = (*ScriptedLLM)(nil)

// FakeEmbedder returns a constant vector of its dimension.
type FakeEmbedder struct {
	Dim int
	Err error

	mu    sync.Mutex
	texts []string
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *FakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.texts = append(f.texts, texts...)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.Dimension())
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

// Texts returns every text embedded so far.
func (f *FakeEmbedder) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *FakeEmbedder) Dimension() int {
	if f.Dim <= 0 {
		return 8
	}
	return f.Dim
}

func (f *FakeEmbedder) Model() string { return "fake-embedding" }

func (f *FakeEmbedder) Close() error { return nil }

// FakeGateway is an in-memory vector.Gateway returning fixed matches.
type FakeGateway struct {
	Matches  []vector.Match
	QueryErr error

	mu       sync.Mutex
	queries  []vector.QueryRequest
	existing map[string]map[string]bool
	upserts  map[string][]vector.Record
}

func (f *FakeGateway) Query(_ context.Context, req vector.QueryRequest) ([]vector.Match, error) {
	f.mu.Lock()
	f.queries = append(f.queries, req)
	f.mu.Unlock()

	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	out := f.Matches
	if req.TopK > 0 && len(out) > req.TopK {
		out = out[:req.TopK]
	}
	return append([]vector.Match(nil), out...), nil
}

// Queries returns the received query requests.
func (f *FakeGateway) Queries() []vector.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vector.QueryRequest(nil), f.queries...)
}

// Seed marks ids as already stored in namespace.
func (f *FakeGateway) Seed(namespace string, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existing == nil {
		f.existing = make(map[string]map[string]bool)
	}
	if f.existing[namespace] == nil {
		f.existing[namespace] = make(map[string]bool)
	}
	for _, id := range ids {
		f.existing[namespace][id] = true
	}
}

func (f *FakeGateway) FetchExisting(_ context.Context, namespace string, ids []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range ids {
		if f.existing[namespace][id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *FakeGateway) Upsert(_ context.Context, namespace string, records []vector.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upserts == nil {
		f.upserts = make(map[string][]vector.Record)
	}
	f.upserts[namespace] = append(f.upserts[namespace], records...)
	return nil
}

// Upserted returns the records stored in namespace.
func (f *FakeGateway) Upserted(namespace string) []vector.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vector.Record(nil), f.upserts[namespace]...)
}

func (f *FakeGateway) Name() string { return "fake" }

func (f *FakeGateway) Close() error { return nil }

var _ vector.Gateway = (*FakeGateway)(nil)
