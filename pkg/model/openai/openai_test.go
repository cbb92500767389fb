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

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/model"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

func streamServer(t *testing.T, chunks []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(config.LLMConfig{
		Provider:    config.LLMProviderOpenAI,
		Model:       "gpt-4.1",
		APIKey:      "test-key",
		Endpoint:    srv.URL,
		Temperature: 0.7,
		MaxTokens:   256,
	}, srv.Client())
	require.NoError(t, err)
	return c
}

func chunk(delta string, finish string) string {
	fr := "null"
	if finish != "" {
		fr = fmt.Sprintf("%q", finish)
	}
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","model":"gpt-4.1","choices":[{"index":0,"delta":%s,"finish_reason":%s}]}`, delta, fr)
}

func TestGenerateContent_StreamsTextThenAggregate(t *testing.T) {
	srv := streamServer(t, []string{
		chunk(`{"role":"assistant","content":"Your Sun "}`, ""),
		chunk(`{"content":"is in Aries."}`, ""),
		chunk(`{}`, "stop"),
	}, nil)
	defer srv.Close()

	c := newTestClient(t, srv)
	var responses []*model.Response
	for resp, err := range c.GenerateContent(context.Background(), &model.Request{
		Messages: []model.Message{model.UserMessage("sun sign?")},
	}, true) {
		require.NoError(t, err)
		responses = append(responses, resp)
	}

	require.Len(t, responses, 3)
	assert.True(t, responses[0].Partial)
	assert.Equal(t, "Your Sun ", responses[0].Text)
	assert.Equal(t, "is in Aries.", responses[1].Text)

	final := responses[2]
	assert.False(t, final.Partial)
	assert.Equal(t, "Your Sun is in Aries.", final.Text)
	assert.Equal(t, model.FinishReasonStop, final.FinishReason)
	assert.False(t, final.HasToolCalls())
}

func TestGenerateContent_AggregatesToolCallFragments(t *testing.T) {
	var captured map[string]any
	srv := streamServer(t, []string{
		chunk(`{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"natal_figure","arguments":""}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"{\"utc_dt\":\"2000-01-18 11:00\","}}]}`, ""),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"\"lat\":25.03,\"lon\":121.56}"}}]}`, ""),
		chunk(`{}`, "tool_calls"),
	}, &captured)
	defer srv.Close()

	c := newTestClient(t, srv)
	req := &model.Request{
		SystemInstruction: "You are a professional astrologer assistant.",
		Messages:          []model.Message{model.UserMessage("draw my chart")},
		Tools: []tool.Definition{{
			Name:        "natal_figure",
			Description: "Draw a natal chart",
			Parameters:  map[string]any{"type": "object"},
		}},
	}

	var final *model.Response
	for resp, err := range c.GenerateContent(context.Background(), req, true) {
		require.NoError(t, err)
		if !resp.Partial {
			final = resp
		}
	}

	require.NotNil(t, final)
	require.Len(t, final.ToolCalls, 1)
	call := final.ToolCalls[0]
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "natal_figure", call.Name)
	assert.Equal(t, "2000-01-18 11:00", call.Args["utc_dt"])
	assert.InDelta(t, 25.03, call.Args["lat"], 1e-9)
	assert.Equal(t, model.FinishReasonToolCalls, final.FinishReason)

	messages, _ := captured["messages"].([]any)
	require.Len(t, messages, 2)
	first, _ := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	tools, _ := captured["tools"].([]any)
	assert.Len(t, tools, 1)
	assert.Equal(t, true, captured["stream"])
}

func TestGenerateContent_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var gotErr error
	for _, err := range c.GenerateContent(context.Background(), &model.Request{
		Messages: []model.Message{model.UserMessage("hi")},
	}, true) {
		gotErr = err
	}
	require.Error(t, gotErr)
}

func TestConvertMessages_ToolRoundTrip(t *testing.T) {
	msgs := convertMessages(&model.Request{
		Messages: []model.Message{
			model.UserMessage("chart"),
			model.AssistantMessage("", tool.ToolCall{ID: "call_1", Name: "natal_figure", Args: map[string]any{"lat": 1.5}}),
			model.ToolMessage("call_1", "natal_figure", `{"path":"charts/a.svg"}`),
		},
	})

	require.Len(t, msgs, 3)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, `{"lat":1.5}`, msgs[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "natal_figure", msgs[2].Name)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(config.LLMConfig{Model: "gpt-4.1"}, nil)
	assert.Error(t, err)
}
