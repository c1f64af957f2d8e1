package ai

import "context"

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	Temperature *float32
}

type GenerateOption func(*GenerateOptions)

// WithTemperature overrides the provider default sampling temperature.
func WithTemperature(t float32) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = &t
	}
}

// TextGenerator generates text from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string, opts ...GenerateOption) (string, error)
}

// ChatMessage is one turn of a chat exchange sent to the provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatStreamer streams a chat completion token by token. onDelta is called
// once per content fragment in arrival order; returning an error from it
// aborts the stream.
type ChatStreamer interface {
	StreamChat(ctx context.Context, systemPrompt string, history []ChatMessage, onDelta func(delta string) error) error
}
