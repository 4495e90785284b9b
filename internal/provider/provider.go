// Package provider wraps the external AI backend behind one interface. A
// single implementation is selected by configuration at startup and injected
// into every consumer; swapping the backing service is a config change only.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"course-tutor/internal/config"
)

var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrEmptyInput          = errors.New("empty input")
	ErrUnsupportedFormat   = errors.New("unsupported format")
)

// AIProvider is the uniform contract over OCR extraction, embedding
// generation and context-augmented chat completion.
type AIProvider interface {
	// ExtractText turns uploaded bytes into plain text. Images go through
	// the backend's vision model; document formats are parsed locally.
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)

	// GenerateEmbedding embeds text into a vector of the configured
	// dimension. Empty or all-whitespace input fails with ErrEmptyInput.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// ChatWithContext produces a completion for an already-assembled prompt.
	ChatWithContext(ctx context.Context, prompt string) (string, error)
}

// New builds the configured provider variant. Adding a backend means adding
// a case here, never a call-site change.
func New(cfg *config.Config, log zerolog.Logger) (AIProvider, error) {
	pc := &cfg.Provider
	switch pc.Backend {
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(pc.BaseURL),
			openai.WithToken(strings.TrimPrefix(pc.Key, "Bearer ")),
			openai.WithModel(pc.ChatModel),
			openai.WithEmbeddingModel(pc.EmbeddingModel),
		)
		if err != nil {
			return nil, fmt.Errorf("init openai backend: %w", err)
		}
		embedder, err := embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("init openai embedder: %w", err)
		}
		return newLLMProvider(pc.Backend, llm, embedder, cfg, log), nil
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(pc.BaseURL),
			ollama.WithModel(pc.ChatModel),
		)
		if err != nil {
			return nil, fmt.Errorf("init ollama backend: %w", err)
		}
		embedLLM, err := ollama.New(
			ollama.WithServerURL(pc.BaseURL),
			ollama.WithModel(pc.EmbeddingModel),
		)
		if err != nil {
			return nil, fmt.Errorf("init ollama embedding backend: %w", err)
		}
		embedder, err := embeddings.NewEmbedder(embedLLM)
		if err != nil {
			return nil, fmt.Errorf("init ollama embedder: %w", err)
		}
		return newLLMProvider(pc.Backend, llm, embedder, cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown provider backend: %s", pc.Backend)
	}
}
