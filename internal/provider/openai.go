package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/roach88/callbench/internal/suite"
	"github.com/roach88/callbench/internal/turn"
)

// Config configures the OpenAI-compatible transport.
type Config struct {
	APIKey  string
	BaseURL string

	// Stream requests server-sent events and reassembles them.
	Stream bool

	// MaxRetries and Timeout are applied per request by the client.
	MaxRetries int
	Timeout    time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// OpenAI is a Model and judge.Completer backed by github.com/openai/openai-go.
type OpenAI struct {
	client openai.Client
	stream bool
	logger *slog.Logger
}

// NewOpenAI creates a client for cfg. A nil logger discards output.
func NewOpenAI(cfg Config, logger *slog.Logger) *OpenAI {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		stream: cfg.Stream,
		logger: logger,
	}
}

// Complete implements Model.
func (p *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: convertMessages(req.Messages),
	}
	if len(req.Functions) > 0 {
		tools, err := convertFunctions(req.Functions)
		if err != nil {
			return Response{}, err
		}
		params.Tools = tools
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
	}

	start := time.Now()
	var (
		resp Response
		err  error
	)
	if p.stream {
		resp, err = p.completeStreaming(ctx, params)
	} else {
		resp, err = p.completeOnce(ctx, params)
	}
	if err != nil {
		return Response{}, err
	}

	p.logger.Debug("model turn",
		"model", req.Model,
		"stream", p.stream,
		"finish_reason", resp.Turn.FinishReason,
		"tool_calls", len(resp.Turn.ToolCalls),
		"duration", time.Since(start),
	)
	return resp, nil
}

func (p *OpenAI) completeOnce(ctx context.Context, params openai.ChatCompletionNewParams) (Response, error) {
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, ErrNoChoices
	}

	choice := completion.Choices[0]
	t := turn.Turn{
		Role:         string(choice.Message.Role),
		FinishReason: string(choice.FinishReason),
	}
	if choice.Message.Content != "" {
		t.Content = turn.String(choice.Message.Content)
	}
	for _, tc := range choice.Message.ToolCalls {
		t.ToolCalls = append(t.ToolCalls, turn.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}

	return Response{Turn: t, Raw: rawJSON(completion.RawJSON())}, nil
}

func (p *OpenAI) completeStreaming(ctx context.Context, params openai.ChatCompletionNewParams) (Response, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := turn.NewAccumulator()
	var (
		raw    []json.RawMessage
		chosen bool
	)
	for stream.Next() {
		chunk := stream.Current()
		raw = append(raw, rawJSON(chunk.RawJSON()))
		if len(chunk.Choices) == 0 {
			continue // usage-only chunks
		}
		chosen = true

		choice := chunk.Choices[0]
		c := turn.Chunk{
			Role:         string(choice.Delta.Role),
			Content:      choice.Delta.Content,
			FinishReason: string(choice.FinishReason),
		}
		for _, d := range choice.Delta.ToolCalls {
			c.ToolCalls = append(c.ToolCalls, turn.ToolCallDelta{
				Index:     int(d.Index),
				ID:        d.ID,
				Name:      d.Function.Name,
				Arguments: d.Function.Arguments,
			})
		}
		acc.Add(c)
	}
	if err := stream.Err(); err != nil {
		return Response{}, fmt.Errorf("chat completion stream: %w", err)
	}
	if !chosen {
		return Response{}, ErrNoChoices
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return Response{}, fmt.Errorf("encode stream chunks: %w", err)
	}
	return Response{Turn: acc.Turn(), Raw: data}, nil
}

// CompleteText sends a single user prompt and asks for a JSON object reply.
// It implements judge.Completer.
func (p *OpenAI) CompleteText(ctx context.Context, model, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}
	return completion.Choices[0].Message.Content, nil
}

func convertMessages(messages []turn.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case turn.RoleSystem:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Text()),
					},
				},
			})
		case turn.RoleAssistant:
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != nil {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(*msg.Content),
				}
			}
			for _, tc := range msg.ToolCalls {
				args := tc.RawArguments
				if args == "" {
					args = "{}"
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case turn.RoleTool:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(msg.Text()),
					},
					ToolCallID: msg.ToolCallID,
				},
			})
		default:
			result = append(result, openai.UserMessage(msg.Text()))
		}
	}
	return result
}

func convertFunctions(functions []suite.Function) ([]openai.ChatCompletionToolParam, error) {
	tools := make([]openai.ChatCompletionToolParam, 0, len(functions))
	for _, fn := range functions {
		// Round-trip through encoding/json so json.Number values become plain numbers
		schemaBytes, err := json.Marshal(fn.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal parameters of %s: %w", fn.Name, err)
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters of %s: %w", fn.Name, err)
		}

		def := openai.FunctionDefinitionParam{
			Name:       fn.Name,
			Parameters: parameters,
		}
		if fn.Description != "" {
			def.Description = openai.String(fn.Description)
		}
		tools = append(tools, openai.ChatCompletionToolParam{Function: def})
	}
	return tools, nil
}

func rawJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
