package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"course-tutor/internal/helper"
	"course-tutor/internal/models"
)

// MaterialRepo is the single writer for material rows.
type MaterialRepo struct {
	db *bun.DB
}

func NewMaterialRepo(db *bun.DB) *MaterialRepo {
	return &MaterialRepo{db: db}
}

func (r *MaterialRepo) Create(ctx context.Context, m *Material) error {
	now := time.Now()
	if m.ID == uuid.Nil {
		id, err := helper.NewID()
		if err != nil {
			return fmt.Errorf("%w: create material: %v", ErrPersistence, err)
		}
		m.ID = id
	}
	m.ProcessingStatus = models.StatusPending
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("%w: create material: %v", ErrPersistence, err)
	}
	return nil
}

func (r *MaterialRepo) Get(ctx context.Context, id uuid.UUID) (*Material, error) {
	m := new(Material)
	err := r.db.NewSelect().Model(m).Where("m.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: material %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get material: %v", ErrPersistence, err)
	}
	return m, nil
}

// Claim transitions a material to "processing". It refuses rows already in
// flight, which is the cross-process half of the one-attempt-per-id rule.
func (r *MaterialRepo) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Material)(nil)).
		Set("processing_status = ?", models.StatusProcessing).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("processing_status <> ?", models.StatusProcessing).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: claim material: %v", ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: claim material: %v", ErrPersistence, err)
	}
	return n == 1, nil
}

// Complete finishes processing. A nil embedding is the blank-document edge
// case and is stored as NULL, not an error.
func (r *MaterialRepo) Complete(ctx context.Context, id uuid.UUID, text string, embedding []float32) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*Material)(nil)).
		Set("processing_status = ?", models.StatusCompleted).
		Set("extracted_text = ?", text).
		Set("embedding = ?", embedding).
		Set("processed_at = ?", now).
		Set("error_message = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: complete material: %v", ErrPersistence, err)
	}
	return nil
}

func (r *MaterialRepo) Fail(ctx context.Context, id uuid.UUID, cause string) error {
	_, err := r.db.NewUpdate().
		Model((*Material)(nil)).
		Set("processing_status = ?", models.StatusFailed).
		Set("error_message = ?", cause).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: fail material: %v", ErrPersistence, err)
	}
	return nil
}

// Rearm resets a material to "pending" so it can be processed again,
// whatever its current status. Rows stuck in "processing" after a crash are
// recoverable this way too; a live attempt is harmless because it will still
// land its own Complete or Fail write.
func (r *MaterialRepo) Rearm(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Material)(nil)).
		Set("processing_status = ?", models.StatusPending).
		Set("error_message = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: rearm material: %v", ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rearm material: %v", ErrPersistence, err)
	}
	return n == 1, nil
}

type materialHit struct {
	Material   `bun:",extend"`
	Similarity float64 `bun:"similarity,scanonly"`
}

// Search ranks a course's completed, embedded materials by cosine similarity
// against the query embedding.
func (r *MaterialRepo) Search(ctx context.Context, courseID uuid.UUID, queryEmbedding []float32, limit int) ([]Material, []float64, error) {
	var hits []materialHit
	err := r.db.NewSelect().
		Model(&hits).
		ColumnExpr("m.*").
		ColumnExpr("1 - (m.embedding <=> ?) AS similarity", queryEmbedding).
		Where("m.course_id = ?", courseID).
		Where("m.processing_status = ?", models.StatusCompleted).
		Where("m.embedding IS NOT NULL").
		OrderExpr("m.embedding <=> ?", queryEmbedding).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: search materials: %v", ErrPersistence, err)
	}
	mats := make([]Material, len(hits))
	sims := make([]float64, len(hits))
	for i, h := range hits {
		mats[i] = h.Material
		sims[i] = h.Similarity
	}
	return mats, sims, nil
}
