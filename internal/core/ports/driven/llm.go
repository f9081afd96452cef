package driven

import "context"

// LLMService maps a prompt to generated answer text.
// The core constructs the prompt; the model is a black box behind this
// port.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Ollama (local models)
//   - Any OpenAI-compatible inference server
type LLMService interface {
	// Generate produces a text completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
