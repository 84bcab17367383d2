package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature or Model override.
type Option func(*Options)

type Options struct {
	Temperature float64
	Model       string // Override default deployment
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// ChatProvider defines the contract for any chat completion backend.
type ChatProvider interface {
	// Chat sends a chat history to the model and returns the full response.
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream sends a chat history and returns a token stream. The
	// stream ends with an EventDone event; Err reports the terminal
	// failure after the event channel closes.
	ChatStream(ctx context.Context, history []Message, options ...Option) (*Stream, error)
}
