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

// LearnerRepo reads the personalization side of the store: preferences,
// academic profile and the recent chat history. All of it is read-only here
// except StoreChatTurn, which the chat transport calls after a turn.
type LearnerRepo struct {
	db *bun.DB
}

func NewLearnerRepo(db *bun.DB) *LearnerRepo {
	return &LearnerRepo{db: db}
}

func (r *LearnerRepo) Preferences(ctx context.Context, userID, courseID uuid.UUID) (*models.LearnerPreferences, error) {
	row := new(LearnerPreference)
	err := r.db.NewSelect().Model(row).
		Where("lp.user_id = ?", userID).
		Where("lp.course_id = ?", courseID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: preferences for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get preferences: %v", ErrPersistence, err)
	}
	return &models.LearnerPreferences{
		Visual:     row.Visual,
		Verbal:     row.Verbal,
		Active:     row.Active,
		Reflective: row.Reflective,
		Sequential: row.Sequential,
		Global:     row.Global,
		Pace:       row.Pace,
		Experience: row.Experience,
	}, nil
}

func (r *LearnerRepo) AcademicProfile(ctx context.Context, userID uuid.UUID) (*models.AcademicProfile, error) {
	row := new(AcademicProfile)
	err := r.db.NewSelect().Model(row).
		Where("ap.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: academic profile for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get academic profile: %v", ErrPersistence, err)
	}
	return &models.AcademicProfile{
		DegreeLevels:   row.DegreeLevels,
		SemesterType:   row.SemesterType,
		SemesterNumber: row.SemesterNumber,
		Subjects:       row.Subjects,
	}, nil
}

// RecentHistory returns the last n chat turns of a course flattened into
// role/content messages in chronological order.
func (r *LearnerRepo) RecentHistory(ctx context.Context, courseID uuid.UUID, n int) ([]models.ChatMessage, error) {
	var turns []ChatTurn
	err := r.db.NewSelect().Model(&turns).
		Where("ct.course_id = ?", courseID).
		OrderExpr("ct.created_at DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get chat history: %v", ErrPersistence, err)
	}
	// Rows arrive newest first; flatten oldest first.
	messages := make([]models.ChatMessage, 0, len(turns)*2)
	for i := len(turns) - 1; i >= 0; i-- {
		messages = append(messages,
			models.ChatMessage{Role: "user", Content: turns[i].UserMessage},
			models.ChatMessage{Role: "assistant", Content: turns[i].AssistantMessage},
		)
	}
	return messages, nil
}

func (r *LearnerRepo) StoreChatTurn(ctx context.Context, courseID, userID uuid.UUID, userMessage, assistantMessage string) error {
	id, err := helper.NewID()
	if err != nil {
		return fmt.Errorf("%w: store chat turn: %v", ErrPersistence, err)
	}
	turn := &ChatTurn{
		ID:               id,
		CourseID:         courseID,
		UserID:           userID,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		CreatedAt:        time.Now(),
	}
	if _, err := r.db.NewInsert().Model(turn).Exec(ctx); err != nil {
		return fmt.Errorf("%w: store chat turn: %v", ErrPersistence, err)
	}
	return nil
}
