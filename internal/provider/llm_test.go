package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"course-tutor/internal/config"
)

type fakeModel struct {
	gotMessages []llms.MessageContent
	response    string
	err         error
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.gotMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.response, f.err
}

type fakeEmbedder struct {
	gotText string
	vector  []float32
	err     error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.gotText = text
	return f.vector, f.err
}

func testConfig(dim int) *config.Config {
	cfg := &config.Config{}
	cfg.Provider.Backend = "openai"
	cfg.Provider.VectorSize = dim
	cfg.ApplyDefaults()
	return cfg
}

func newTestProvider(model llms.Model, embedder Embedder, dim int) *llmProvider {
	return newLLMProvider("test", model, embedder, testConfig(dim), zerolog.Nop())
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := testConfig(8)
	cfg.Provider.Backend = "acme"
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestGenerateEmbeddingEmptyInput(t *testing.T) {
	p := newTestProvider(&fakeModel{}, &fakeEmbedder{}, 8)
	for _, input := range []string{"", "   ", "\n\t "} {
		if _, err := p.GenerateEmbedding(context.Background(), input); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: expected ErrEmptyInput, got %v", input, err)
		}
	}
}

func TestGenerateEmbeddingChecksDimension(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 2, 3}}
	p := newTestProvider(&fakeModel{}, emb, 8)
	if _, err := p.GenerateEmbedding(context.Background(), "some text"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestGenerateEmbeddingSuccess(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 2, 3, 4}}
	p := newTestProvider(&fakeModel{}, emb, 4)
	vec, err := p.GenerateEmbedding(context.Background(), "some text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("dimension = %d", len(vec))
	}
	if emb.gotText != "some text" {
		t.Errorf("embedded %q", emb.gotText)
	}
}

func TestGenerateEmbeddingTruncatesLongInput(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 2, 3, 4}}
	cfg := testConfig(4)
	cfg.RAG.ChunkSize = 10
	p := newLLMProvider("test", &fakeModel{}, emb, cfg, zerolog.Nop())

	if _, err := p.GenerateEmbedding(context.Background(), "aaaa bbbb cccc dddd"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(emb.gotText) > 10 {
		t.Errorf("input not truncated to leading chunk: %d chars", len(emb.gotText))
	}
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	p := newTestProvider(&fakeModel{}, &fakeEmbedder{}, 8)
	_, err := p.ExtractText(context.Background(), []byte("x"), "application/x-msdownload")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractTextDocumentFormat(t *testing.T) {
	p := newTestProvider(&fakeModel{}, &fakeEmbedder{}, 8)
	got, err := p.ExtractText(context.Background(), []byte("plain notes"), "text/plain")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "plain notes" {
		t.Errorf("got %q", got)
	}
}

func TestExtractTextImageUsesModel(t *testing.T) {
	model := &fakeModel{response: "text on the slide"}
	p := newTestProvider(model, &fakeEmbedder{}, 8)

	got, err := p.ExtractText(context.Background(), []byte{0x89, 0x50}, "image/png")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "text on the slide" {
		t.Errorf("got %q", got)
	}
	if len(model.gotMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(model.gotMessages))
	}
	parts := model.gotMessages[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected binary + instruction parts, got %d", len(parts))
	}
	if _, ok := parts[0].(llms.BinaryContent); !ok {
		t.Error("first part should carry the image bytes")
	}
}

func TestChatWithContext(t *testing.T) {
	model := &fakeModel{response: "an answer"}
	p := newTestProvider(model, &fakeEmbedder{}, 8)

	got, err := p.ChatWithContext(context.Background(), "a prompt")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got != "an answer" {
		t.Errorf("got %q", got)
	}
}

func TestChatWithContextEmptyPrompt(t *testing.T) {
	p := newTestProvider(&fakeModel{}, &fakeEmbedder{}, 8)
	if _, err := p.ChatWithContext(context.Background(), "  "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestClassifyTimeout(t *testing.T) {
	model := &fakeModel{err: context.DeadlineExceeded}
	p := newTestProvider(model, &fakeEmbedder{}, 8)

	_, err := p.ChatWithContext(context.Background(), "prompt")
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("expected ErrProviderTimeout, got %v", err)
	}
}

func TestClassifyUnavailable(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	p := newTestProvider(model, &fakeEmbedder{}, 8)

	_, err := p.ChatWithContext(context.Background(), "prompt")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestEmbedErrorClassified(t *testing.T) {
	emb := &fakeEmbedder{err: context.DeadlineExceeded}
	p := newTestProvider(&fakeModel{}, emb, 8)

	_, err := p.GenerateEmbedding(context.Background(), "text")
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("expected ErrProviderTimeout, got %v", err)
	}
}
