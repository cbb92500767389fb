// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai provides a chat model backed by the OpenAI Chat Completions
// API, for both OpenAI and Azure OpenAI deployments.
//
//   - Unified GenerateContent method with stream boolean
//   - Streamed text deltas are yielded as they arrive
//   - Tool call fragments are aggregated and reported once complete
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/stargazer-ai/stargazer/internal/openaiconf"
	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/model"
	"github.com/stargazer-ai/stargazer/pkg/tool"
)

// Client is a chat model implementing model.LLM.
type Client struct {
	client      *openai.Client
	modelName   string
	temperature float64
	maxTokens   int
}

// New creates a client from the LLM configuration. doer may be nil to use
// the default retrying HTTP client.
func New(cfg config.LLMConfig, doer openai.HTTPDoer) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required for the chat model")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required for the chat model")
	}

	clientCfg := openaiconf.ClientConfig(openaiconf.Options{
		Azure:      cfg.Provider == config.LLMProviderAzure,
		APIKey:     cfg.APIKey,
		Endpoint:   cfg.Endpoint,
		APIVersion: cfg.APIVersion,
		Deployment: cfg.Model,
		MaxRetries: cfg.MaxRetries,
		HTTPClient: doer,
	})

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name returns the model name.
func (c *Client) Name() string {
	return c.modelName
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *Client) Close() error {
	return nil
}

// GenerateContent implements model.LLM.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request, stream bool) iter.Seq2[*model.Response, error] {
	if stream {
		return c.generateStream(ctx, req)
	}
	return func(yield func(*model.Response, error) bool) {
		yield(c.generate(ctx, req))
	}
}

func (c *Client) generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	calls := make([]tool.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		args, err := model.DecodeArguments(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool call %q: %w", tc.Function.Name, err)
		}
		calls = append(calls, tool.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}

	return &model.Response{
		Text:         choice.Message.Content,
		ToolCalls:    calls,
		FinishReason: finishReason(choice.FinishReason),
		Usage: &model.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) generateStream(ctx context.Context, req *model.Request) iter.Seq2[*model.Response, error] {
	return func(yield func(*model.Response, error) bool) {
		stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
		if err != nil {
			yield(nil, fmt.Errorf("chat completion stream failed: %w", err))
			return
		}
		defer stream.Close()

		agg := model.NewStreamingAggregator()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(nil, fmt.Errorf("chat completion stream failed: %w", err))
				return
			}

			if chunk.Usage != nil {
				agg.SetUsage(&model.Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				})
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			agg.SetFinishReason(finishReason(choice.FinishReason))
			for i, tc := range choice.Delta.ToolCalls {
				index := i
				if tc.Index != nil {
					index = *tc.Index
				}
				agg.ProcessToolCallDelta(index, tc.ID, tc.Function.Name, tc.Function.Arguments)
			}
			if resp := agg.ProcessTextDelta(choice.Delta.Content); resp != nil {
				if !yield(resp, nil) {
					return
				}
			}
		}

		final, err := agg.Close()
		if err != nil {
			yield(nil, err)
			return
		}
		slog.Debug("Chat completion finished",
			"model", c.modelName,
			"finish_reason", final.FinishReason,
			"tool_calls", len(final.ToolCalls))
		yield(final, nil)
	}
}

func (c *Client) buildRequest(req *model.Request, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    convertMessages(req),
		Tools:       convertTools(req.Tools),
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			out.Temperature = float32(*cfg.Temperature)
		}
		if cfg.MaxTokens != nil {
			out.MaxTokens = *cfg.MaxTokens
		}
	}
	return out
}

func convertMessages(req *model.Request) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemInstruction != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}

	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == model.RoleTool {
			msg.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Args)
			if err != nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func convertTools(defs []tool.Definition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

func finishReason(r openai.FinishReason) model.FinishReason {
	switch r {
	case openai.FinishReasonStop:
		return model.FinishReasonStop
	case openai.FinishReasonLength:
		return model.FinishReasonLength
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return model.FinishReasonToolCalls
	case openai.FinishReasonContentFilter:
		return model.FinishReasonContent
	}
	return ""
}

var _ model.LLM = (*Client)(nil)
