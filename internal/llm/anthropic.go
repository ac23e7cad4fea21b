package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the backend identifier.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns the model identifiers this backend serves.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
	}
}

// buildParams converts the common request shape into Anthropic params.
// System-role messages move into the dedicated System field.
func (c *AnthropicClient) buildParams(req *CompletionRequest) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system = append(system, anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(msg.Content),
			})
			continue
		}
		messages = append(messages, anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		})
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(req.Model),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages:  anthropic.F(messages),
	}
	if len(system) > 0 {
		params.System = anthropic.F(system)
	}
	return params
}

// Complete sends a non-streaming completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream opens a streaming completion. The SDK defers connection errors to
// the first event pull, so one event is pulled eagerly to keep initiation
// failures on the error return.
func (c *AnthropicClient) Stream(ctx context.Context, req *CompletionRequest) (<-chan Chunk, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.buildParams(req))

	hasFirst := stream.Next()
	if !hasFirst {
		err := stream.Err()
		stream.Close()
		if err != nil {
			return nil, err
		}
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		forward := func(event anthropic.MessageStreamEvent) bool {
			if event.Type != anthropic.MessageStreamEventTypeContentBlockDelta {
				return true
			}
			delta, ok := event.Delta.(anthropic.ContentBlockDeltaEventDelta)
			if !ok || delta.Type != "text_delta" || delta.Text == "" {
				return true
			}
			return emit(ctx, out, Chunk{Delta: delta.Text})
		}

		if hasFirst {
			if !forward(stream.Current()) {
				return
			}
			for stream.Next() {
				if !forward(stream.Current()) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			emit(ctx, out, Chunk{Err: err})
			return
		}
		emit(ctx, out, Chunk{Done: true})
	}()

	return out, nil
}
