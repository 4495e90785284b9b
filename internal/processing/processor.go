// Package processing owns the material lifecycle state machine:
// pending -> processing -> {completed, failed}, with failed -> pending via an
// explicit retry. All material writes go through this service.
package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-tutor/internal/db"
	"course-tutor/internal/helper"
	"course-tutor/internal/models"
	"course-tutor/internal/provider"
)

// ErrInFlight is returned when a material is already being processed.
var ErrInFlight = errors.New("material is already processing")

// MaterialStore is the row-level persistence the state machine drives.
// *db.MaterialRepo implements it.
type MaterialStore interface {
	Get(ctx context.Context, id uuid.UUID) (*db.Material, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, text string, embedding []float32) error
	Fail(ctx context.Context, id uuid.UUID, cause string) error
	Rearm(ctx context.Context, id uuid.UUID) (bool, error)
}

// BlobStore reads uploaded material bytes from object storage.
type BlobStore interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Indexer mirrors completed materials into a secondary vector index. Only
// the in-memory search backend needs one; nil disables mirroring.
type Indexer interface {
	Index(ctx context.Context, m *db.Material) error
}

type Service struct {
	store MaterialStore
	ai    provider.AIProvider
	blobs BlobStore
	index Indexer
	log   zerolog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewService(store MaterialStore, ai provider.AIProvider, blobs BlobStore, index Indexer, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		ai:       ai,
		blobs:    blobs,
		index:    index,
		log:      log.With().Str("component", "processing").Logger(),
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Process runs one material through the pipeline. Failures are recorded on
// the row; the returned error exists only for the queue's outcome logging.
func (s *Service) Process(ctx context.Context, id uuid.UUID) error {
	if !s.acquire(id) {
		s.log.Warn().Stringer("material_id", id).Msg("skipping, already in flight")
		return ErrInFlight
	}
	defer s.release(id)

	claimed, err := s.store.Claim(ctx, id)
	if err != nil {
		return fmt.Errorf("claim material %s: %w", id, err)
	}
	if !claimed {
		s.log.Warn().Stringer("material_id", id).Msg("skipping, row already claimed")
		return ErrInFlight
	}

	m, err := s.store.Get(ctx, id)
	if err != nil {
		s.fail(ctx, id, err)
		return fmt.Errorf("load material %s: %w", id, err)
	}

	data, err := s.blobs.Read(ctx, m.StoragePath)
	if err != nil {
		s.fail(ctx, id, fmt.Errorf("read storage object: %w", err))
		return fmt.Errorf("read material %s: %w", id, err)
	}

	text, err := s.ai.ExtractText(ctx, data, m.MimeType)
	if err != nil {
		s.fail(ctx, id, err)
		return fmt.Errorf("extract material %s: %w", id, err)
	}

	// A blank document is a completed material without an embedding, not a
	// failure.
	if strings.TrimSpace(text) == "" {
		if err := s.store.Complete(ctx, id, text, nil); err != nil {
			s.fail(ctx, id, fmt.Errorf("persist completion: %w", err))
			return fmt.Errorf("complete material %s: %w", id, err)
		}
		s.log.Info().Stringer("material_id", id).Msg("completed with empty text, no embedding")
		return nil
	}

	embedding, err := s.ai.GenerateEmbedding(ctx, text)
	if err != nil {
		s.fail(ctx, id, err)
		return fmt.Errorf("embed material %s: %w", id, err)
	}

	if err := s.store.Complete(ctx, id, text, embedding); err != nil {
		s.fail(ctx, id, fmt.Errorf("persist completion: %w", err))
		return fmt.Errorf("complete material %s: %w", id, err)
	}
	s.log.Info().Stringer("material_id", id).Int("embedding_dim", len(embedding)).Msg("material processed")

	if s.index != nil {
		m.ExtractedText = &text
		m.Embedding = embedding
		m.ProcessingStatus = models.StatusCompleted
		if err := s.index.Index(ctx, m); err != nil {
			s.log.Warn().Err(err).Stringer("material_id", id).Msg("secondary index update failed")
		}
	}
	return nil
}

// Retry re-arms a material to pending so it can be enqueued again. Any
// status qualifies, "processing" included, so a row stranded by a crash is
// recoverable without touching the database by hand. The prior error message
// is cleared from the row and preserved in the logs.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) error {
	if m, err := s.store.Get(ctx, id); err == nil && m.ErrorMessage != nil {
		s.log.Info().Stringer("material_id", id).Str("prior_error", *m.ErrorMessage).Msg("retrying failed material")
	}
	ok, err := s.store.Rearm(ctx, id)
	if err != nil {
		return fmt.Errorf("rearm material %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("rearm material %s: %w", id, db.ErrNotFound)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, cause error) {
	msg := helper.SanitizeErrorMessage(cause, models.MaxErrorMessageLength)
	if err := s.store.Fail(ctx, id, msg); err != nil {
		s.log.Error().Err(err).Stringer("material_id", id).Msg("could not record failure")
	}
}

func (s *Service) acquire(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
