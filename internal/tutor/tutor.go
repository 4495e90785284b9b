// Package tutor orchestrates one chat turn: learner context and material
// retrieval run concurrently, the composed prompt goes to the AI provider,
// and the answer comes back with the excerpts that grounded it.
package tutor

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-tutor/internal/models"
	"course-tutor/internal/prompt"
)

// ContextSource delivers the personalization bundle; it never fails.
type ContextSource interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) models.UserContext
}

// ExcerptSource delivers ranked material excerpts; it degrades to empty.
type ExcerptSource interface {
	SearchText(ctx context.Context, courseID uuid.UUID, queryText string, limit int) []models.Excerpt
}

// Chatter is the chat slice of the AI provider.
type Chatter interface {
	ChatWithContext(ctx context.Context, prompt string) (string, error)
}

type Tutor struct {
	contexts    ContextSource
	excerpts    ExcerptSource
	chat        Chatter
	searchLimit int
	log         zerolog.Logger
}

func New(contexts ContextSource, excerpts ExcerptSource, chat Chatter, searchLimit int, log zerolog.Logger) *Tutor {
	return &Tutor{
		contexts:    contexts,
		excerpts:    excerpts,
		chat:        chat,
		searchLimit: searchLimit,
		log:         log.With().Str("component", "tutor").Logger(),
	}
}

// Answer produces the tutor's reply for one message. Context aggregation and
// retrieval cannot fail the turn; only the final completion call can.
func (t *Tutor) Answer(ctx context.Context, userID, courseID uuid.UUID, message string) (*models.Answer, error) {
	var (
		wg       sync.WaitGroup
		uctx     models.UserContext
		excerpts []models.Excerpt
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		uctx = t.contexts.Get(ctx, userID, courseID)
	}()
	go func() {
		defer wg.Done()
		excerpts = t.excerpts.SearchText(ctx, courseID, message, t.searchLimit)
	}()
	wg.Wait()

	composed := prompt.Compose(uctx, message, excerpts)
	t.log.Debug().
		Stringer("course_id", courseID).
		Int("excerpts", len(excerpts)).
		Int("prompt_len", len(composed)).
		Msg("prompt composed")

	content, err := t.chat.ChatWithContext(ctx, composed)
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		Query:    message,
		Content:  content,
		Excerpts: excerpts,
	}, nil
}
