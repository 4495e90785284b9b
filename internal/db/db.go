package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"course-tutor/internal/config"
)

// ErrPersistence wraps any storage failure surfaced by this package.
var ErrPersistence = errors.New("persistence error")

var ErrNotFound = errors.New("not found")

// Material is one uploaded course document. Embedding is non-null only when
// the material completed processing with non-empty extracted text;
// ErrorMessage is non-null only when processing failed.
type Material struct {
	bun.BaseModel `bun:"table:materials,alias:m"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid"`
	CourseID         uuid.UUID  `bun:"course_id,notnull,type:uuid"`
	Name             string     `bun:"name,notnull"`
	StoragePath      string     `bun:"storage_path,notnull"`
	MimeType         string     `bun:"mime_type,notnull"`
	Size             int64      `bun:"size,notnull"`
	ExtractedText    *string    `bun:"extracted_text"`
	Embedding        []float32  `bun:"embedding,type:vector(768)"`
	ProcessingStatus string     `bun:"processing_status,notnull"`
	ProcessedAt      *time.Time `bun:"processed_at"`
	ErrorMessage     *string    `bun:"error_message"`
	CreatedAt        time.Time  `bun:"created_at,notnull"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull"`
}

type LearnerPreference struct {
	bun.BaseModel `bun:"table:learner_preferences,alias:lp"`

	UserID     uuid.UUID `bun:"user_id,pk,type:uuid"`
	CourseID   uuid.UUID `bun:"course_id,pk,type:uuid"`
	Visual     float64   `bun:"visual,notnull"`
	Verbal     float64   `bun:"verbal,notnull"`
	Active     float64   `bun:"active,notnull"`
	Reflective float64   `bun:"reflective,notnull"`
	Sequential float64   `bun:"sequential,notnull"`
	Global     float64   `bun:"global,notnull"`
	Pace       string    `bun:"pace,notnull"`
	Experience string    `bun:"experience,notnull"`
}

type AcademicProfile struct {
	bun.BaseModel `bun:"table:academic_profiles,alias:ap"`

	UserID         uuid.UUID `bun:"user_id,pk,type:uuid"`
	DegreeLevels   []string  `bun:"degree_levels,array"`
	SemesterType   string    `bun:"semester_type"`
	SemesterNumber int       `bun:"semester_number"`
	Subjects       []string  `bun:"subjects,array"`
}

// ChatTurn is one question/answer exchange. Append-only; the chat transport
// writes it, this package only reads the most recent window.
type ChatTurn struct {
	bun.BaseModel `bun:"table:chat_turns,alias:ct"`

	ID               uuid.UUID `bun:"id,pk,type:uuid"`
	CourseID         uuid.UUID `bun:"course_id,notnull,type:uuid"`
	UserID           uuid.UUID `bun:"user_id,notnull,type:uuid"`
	UserMessage      string    `bun:"user_message,notnull"`
	AssistantMessage string    `bun:"assistant_message,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver == "postgres" {
		return sql.Open("postgres", cfg.URL)
	}
	dsn := cfg.URL + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key))), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB, vectorSize int) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: create vector extension: %v", ErrPersistence, err)
	}
	tables := []any{
		(*Material)(nil),
		(*LearnerPreference)(nil),
		(*AcademicProfile)(nil),
		(*ChatTurn)(nil),
	}
	for _, table := range tables {
		if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("%w: create table: %v", ErrPersistence, err)
		}
	}
	// The struct tag pins the column to the default dimension; align it with
	// the configured one when they differ.
	if vectorSize > 0 && vectorSize != 768 {
		stmt := fmt.Sprintf("ALTER TABLE materials ALTER COLUMN embedding TYPE vector(%d)", vectorSize)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: alter embedding dimension: %v", ErrPersistence, err)
		}
	}
	return nil
}
