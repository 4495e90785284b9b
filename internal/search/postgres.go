package search

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-tutor/internal/db"
	"course-tutor/internal/models"
)

// PostgresGateway searches pgvector embeddings through the material repo.
type PostgresGateway struct {
	repo       *db.MaterialRepo
	excerptLen int
	log        zerolog.Logger
}

func NewPostgresGateway(repo *db.MaterialRepo, excerptLen int, log zerolog.Logger) *PostgresGateway {
	return &PostgresGateway{
		repo:       repo,
		excerptLen: excerptLen,
		log:        log.With().Str("component", "search").Str("backend", "postgres").Logger(),
	}
}

func (g *PostgresGateway) Search(ctx context.Context, courseID uuid.UUID, queryEmbedding []float32, limit int) []models.Excerpt {
	mats, sims, err := g.repo.Search(ctx, courseID, queryEmbedding, limit)
	if err != nil {
		g.log.Warn().Err(err).Stringer("course_id", courseID).Msg("vector search failed, returning no excerpts")
		return nil
	}

	excerpts := make([]models.Excerpt, 0, len(mats))
	for i, m := range mats {
		text := ""
		if m.ExtractedText != nil {
			text = *m.ExtractedText
		}
		excerpts = append(excerpts, models.Excerpt{
			MaterialID: m.ID,
			Name:       m.Name,
			Excerpt:    truncateExcerpt(text, g.excerptLen),
			Similarity: sims[i],
		})
	}
	return excerpts
}
