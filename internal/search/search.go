// Package search ranks a course's processed materials against a query
// embedding. Search degradation is silent toward the chat turn: backend
// failures are logged and surface as an empty result set.
package search

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-tutor/internal/models"
	"course-tutor/internal/provider"
)

// Gateway is one vector-store backend. Implementations never return an
// error; anything that goes wrong degrades to an empty slice.
type Gateway interface {
	Search(ctx context.Context, courseID uuid.UUID, queryEmbedding []float32, limit int) []models.Excerpt
}

// Service wraps a gateway with query-text embedding, which is what the chat
// side calls.
type Service struct {
	gw           Gateway
	ai           provider.AIProvider
	defaultLimit int
	log          zerolog.Logger
}

func NewService(gw Gateway, ai provider.AIProvider, defaultLimit int, log zerolog.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 3
	}
	return &Service{
		gw:           gw,
		ai:           ai,
		defaultLimit: defaultLimit,
		log:          log.With().Str("component", "search").Logger(),
	}
}

// SearchText embeds the query and runs the similarity search. An embedding
// failure costs this turn its grounding, nothing more.
func (s *Service) SearchText(ctx context.Context, courseID uuid.UUID, queryText string, limit int) []models.Excerpt {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	embedding, err := s.ai.GenerateEmbedding(ctx, queryText)
	if err != nil {
		s.log.Warn().Err(err).Stringer("course_id", courseID).Msg("query embedding failed, returning no excerpts")
		return nil
	}
	return s.gw.Search(ctx, courseID, embedding, limit)
}

// Search runs the similarity search with an already-computed embedding.
func (s *Service) Search(ctx context.Context, courseID uuid.UUID, queryEmbedding []float32, limit int) []models.Excerpt {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.gw.Search(ctx, courseID, queryEmbedding, limit)
}

func truncateExcerpt(text string, maxLen int) string {
	if maxLen > 0 && len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}
