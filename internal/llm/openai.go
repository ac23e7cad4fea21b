package llm

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient speaks the OpenAI chat-completion protocol. Besides OpenAI
// itself it covers the OpenAI-compatible backends (NVIDIA integrate, xAI,
// DeepSeek) via a custom base URL.
type OpenAIClient struct {
	name   string
	client *openai.Client
	models []string
}

// NewOpenAIClient creates a client for the OpenAI API.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		name:   "openai",
		client: openai.NewClient(apiKey),
		models: []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"},
	}, nil
}

// NewOpenAICompatibleClient creates a client for an OpenAI-compatible
// backend at baseURL.
func NewOpenAICompatibleClient(name, apiKey, baseURL string, models []string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New(name + " API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &OpenAIClient{
		name:   name,
		client: openai.NewClientWithConfig(cfg),
		models: models,
	}, nil
}

// Name returns the backend identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Models returns the model identifiers this backend serves.
func (c *OpenAIClient) Models() []string {
	return c.models
}

func (c *OpenAIClient) buildRequest(req *CompletionRequest, stream bool) openai.ChatCompletionRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	topP := req.TopP
	if topP == 0 {
		topP = defaultTopP
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		if msg.ImageURL != "" {
			messages[i] = openai.ChatCompletionMessage{
				Role: msg.Role,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: msg.ImageURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: msg.Content,
					},
				},
			}
			continue
		}
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		TopP:        float32(topP),
		Stream:      stream,
	}
}

// Complete sends a non-streaming completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, err
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream opens a streaming completion. The error return covers initiation
// only.
func (c *OpenAIClient) Stream(ctx context.Context, req *CompletionRequest) (<-chan Chunk, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				emit(ctx, out, Chunk{Done: true})
				return
			}
			if err != nil {
				emit(ctx, out, Chunk{Err: err})
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !emit(ctx, out, Chunk{Delta: delta}) {
				return
			}
		}
	}()

	return out, nil
}

// emit sends a chunk unless the consumer is gone.
func emit(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
