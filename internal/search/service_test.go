package search

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-tutor/internal/models"
	"course-tutor/internal/provider"
)

type stubGateway struct {
	gotEmbedding []float32
	gotLimit     int
	result       []models.Excerpt
}

func (s *stubGateway) Search(_ context.Context, _ uuid.UUID, queryEmbedding []float32, limit int) []models.Excerpt {
	s.gotEmbedding = queryEmbedding
	s.gotLimit = limit
	return s.result
}

type stubAI struct {
	embedding []float32
	embedErr  error
}

func (s *stubAI) ExtractText(context.Context, []byte, string) (string, error) {
	return "", nil
}

func (s *stubAI) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return s.embedding, s.embedErr
}

func (s *stubAI) ChatWithContext(context.Context, string) (string, error) {
	return "", nil
}

func TestSearchTextEmbedsAndDelegates(t *testing.T) {
	gw := &stubGateway{result: []models.Excerpt{{Name: "a.pdf"}}}
	ai := &stubAI{embedding: []float32{0.1, 0.2}}
	svc := NewService(gw, ai, 3, zerolog.Nop())

	got := svc.SearchText(context.Background(), uuid.New(), "what is entropy", 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 excerpt, got %d", len(got))
	}
	if gw.gotLimit != 3 {
		t.Errorf("default limit not applied: %d", gw.gotLimit)
	}
	if len(gw.gotEmbedding) != 2 {
		t.Error("query embedding not forwarded")
	}
}

func TestSearchTextEmbeddingFailureDegrades(t *testing.T) {
	gw := &stubGateway{result: []models.Excerpt{{Name: "a.pdf"}}}
	ai := &stubAI{embedErr: provider.ErrProviderTimeout}
	svc := NewService(gw, ai, 3, zerolog.Nop())

	got := svc.SearchText(context.Background(), uuid.New(), "question", 0)
	if got != nil {
		t.Errorf("embedding failure must degrade to no excerpts, got %v", got)
	}
	if gw.gotEmbedding != nil {
		t.Error("gateway must not be called without an embedding")
	}
}
