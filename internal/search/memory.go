package search

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"course-tutor/internal/db"
	"course-tutor/internal/models"
)

// MemoryGateway keeps embeddings in chromem-go, one collection per course.
// It doubles as the processing service's secondary Indexer so completed
// materials show up without a round trip to postgres. With an empty path the
// store lives in RAM only, which is what the tests use.
type MemoryGateway struct {
	vdb        *chromem.DB
	excerptLen int
	log        zerolog.Logger

	mu sync.Mutex
}

func NewMemoryGateway(path string, excerptLen int, log zerolog.Logger) (*MemoryGateway, error) {
	var (
		vdb *chromem.DB
		err error
	)
	if path == "" {
		vdb = chromem.NewDB()
	} else {
		vdb, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("create vector database: %w", err)
		}
	}
	return &MemoryGateway{
		vdb:        vdb,
		excerptLen: excerptLen,
		log:        log.With().Str("component", "search").Str("backend", "memory").Logger(),
	}, nil
}

// Index mirrors one completed material. Materials without an embedding (the
// blank-document case) are skipped.
func (g *MemoryGateway) Index(ctx context.Context, m *db.Material) error {
	if m.ProcessingStatus != models.StatusCompleted || m.Embedding == nil {
		return nil
	}
	text := ""
	if m.ExtractedText != nil {
		text = *m.ExtractedText
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.collection(m.CourseID)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:      m.ID.String(),
		Content: text,
		Metadata: map[string]string{
			"name":      m.Name,
			"course_id": m.CourseID.String(),
		},
		Embedding: m.Embedding,
	}
	if err := c.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index material %s: %w", m.ID, err)
	}
	return nil
}

func (g *MemoryGateway) Search(ctx context.Context, courseID uuid.UUID, queryEmbedding []float32, limit int) []models.Excerpt {
	g.mu.Lock()
	c, err := g.collection(courseID)
	g.mu.Unlock()
	if err != nil {
		g.log.Warn().Err(err).Stringer("course_id", courseID).Msg("vector search failed, returning no excerpts")
		return nil
	}

	n := limit
	if count := c.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil
	}

	results, err := c.QueryEmbedding(ctx, queryEmbedding, n, nil, nil)
	if err != nil {
		g.log.Warn().Err(err).Stringer("course_id", courseID).Msg("vector search failed, returning no excerpts")
		return nil
	}

	excerpts := make([]models.Excerpt, 0, len(results))
	for _, res := range results {
		id, err := uuid.Parse(res.ID)
		if err != nil {
			continue
		}
		excerpts = append(excerpts, models.Excerpt{
			MaterialID: id,
			Name:       res.Metadata["name"],
			Excerpt:    truncateExcerpt(res.Content, g.excerptLen),
			Similarity: float64(res.Similarity),
		})
	}
	return excerpts
}

func (g *MemoryGateway) collection(courseID uuid.UUID) (*chromem.Collection, error) {
	name := "course_" + courseID.String()
	c, err := g.vdb.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return c, nil
}
