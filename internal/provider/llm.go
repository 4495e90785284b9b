package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"course-tutor/internal/config"
	"course-tutor/internal/extract"
	"course-tutor/internal/models"
)

// Embedder is the slice of embeddings.EmbedderImpl this package needs; tests
// substitute their own.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type llmProvider struct {
	name       string
	model      llms.Model
	embedder   Embedder
	vectorSize int
	chunkSize  int
	timeout    time.Duration
	log        zerolog.Logger
}

func newLLMProvider(name string, model llms.Model, embedder Embedder, cfg *config.Config, log zerolog.Logger) *llmProvider {
	return &llmProvider{
		name:       name,
		model:      model,
		embedder:   embedder,
		vectorSize: cfg.Provider.VectorSize,
		chunkSize:  cfg.RAG.ChunkSize,
		timeout:    cfg.Provider.Timeout(),
		log:        log.With().Str("component", "provider").Str("backend", name).Logger(),
	}
}

func (p *llmProvider) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return p.ocrImage(ctx, data, mimeType)
	}

	text, err := extract.Text(data, mimeType)
	if errors.Is(err, extract.ErrUnsupported) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return "", fmt.Errorf("parse %s document: %w", mimeType, err)
	}
	return text, nil
}

func (p *llmProvider) ocrImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role: schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimeType, data),
				llms.TextPart(models.OCRPromptTemplate),
			},
		},
	}
	res, err := p.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", p.classify("ocr", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: ocr returned no choices", ErrProviderUnavailable)
	}
	return res.Choices[0].Content, nil
}

func (p *llmProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	// Long texts are trimmed to the leading chunk before embedding; one
	// vector per material keeps the search side simple.
	chunks := extract.Chunk(text, p.chunkSize, 0)
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	vec, err := p.embedder.EmbedQuery(ctx, chunks[0])
	if err != nil {
		return nil, p.classify("embed", err)
	}
	if len(vec) != p.vectorSize {
		return nil, fmt.Errorf("embedding dimension %d, expected %d", len(vec), p.vectorSize)
	}
	return vec, nil
}

func (p *llmProvider) ChatWithContext(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
	res, err := p.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", p.classify("chat", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: chat returned no choices", ErrProviderUnavailable)
	}
	return res.Choices[0].Content, nil
}

// classify maps backend transport failures onto the provider error taxonomy.
func (p *llmProvider) classify(op string, err error) error {
	p.log.Warn().Err(err).Str("op", op).Msg("provider call failed")

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", ErrProviderTimeout, op, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %v", ErrProviderTimeout, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, op, err)
	}
}
