package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultChatModel      = "gpt-4o-mini"
	defaultEmbeddingModel = openai.SmallEmbedding3
)

// GatewayConfig configures the OpenAI-compatible provider used for text
// generation and chat streaming. BaseURL may point at any compatible
// endpoint (OpenRouter, LiteLLM, vLLM) and should include the /v1 prefix.
type GatewayConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

// Gateway is a TextGenerator, ChatStreamer and Embedder backed by the
// OpenAI API. 429 and 402 provider responses surface as ErrRateLimited and
// ErrQuotaExhausted so handlers can report them distinctly.
type Gateway struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
}

func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ai gateway api key required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultChatModel
	}
	embeddingModel := openai.EmbeddingModel(strings.TrimSpace(cfg.EmbeddingModel))
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}
	return &Gateway{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

// EmbedText implements Embedder.
func (g *Gateway) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: g.embeddingModel,
	})
	if err != nil {
		return nil, mapProviderError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// GenerateText implements TextGenerator.
func (g *Gateway) GenerateText(ctx context.Context, systemPrompt, userPrompt string, opts ...GenerateOption) (string, error) {
	var options GenerateOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	req := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: chatMessages(systemPrompt, []ChatMessage{{Role: openai.ChatMessageRoleUser, Content: userPrompt}}),
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return text, nil
}

// StreamChat implements ChatStreamer.
func (g *Gateway) StreamChat(ctx context.Context, systemPrompt string, history []ChatMessage, onDelta func(string) error) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: chatMessages(systemPrompt, history),
		Stream:   true,
	})
	if err != nil {
		return mapProviderError(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return mapProviderError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onDelta(delta); err != nil {
			return err
		}
	}
}

func chatMessages(systemPrompt string, history []ChatMessage) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return messages
}

func mapProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrQuotaExhausted, apiErr.Message)
		}
	}
	return err
}
