package models

import "github.com/google/uuid"

// Processing lifecycle of a material. Only the processing service writes
// these; everything else treats the status as read-only.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// LearnerPreferences holds the six normalized learning-style scores plus the
// two categorical fields. All scores are in [0,1].
type LearnerPreferences struct {
	Visual     float64 `json:"visual"`
	Verbal     float64 `json:"verbal"`
	Active     float64 `json:"active"`
	Reflective float64 `json:"reflective"`
	Sequential float64 `json:"sequential"`
	Global     float64 `json:"global"`
	Pace       string  `json:"pace"`
	Experience string  `json:"experience"`
}

type AcademicProfile struct {
	DegreeLevels   []string `json:"degree_levels"`
	SemesterType   string   `json:"semester_type"`
	SemesterNumber int      `json:"semester_number"`
	Subjects       []string `json:"subjects"`
}

type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// UserContext is the per-turn personalization bundle. Nil pointers and an
// empty history mean the corresponding lookup was absent or degraded; the
// bundle itself is always valid.
type UserContext struct {
	Preferences *LearnerPreferences `json:"preferences,omitempty"`
	Profile     *AcademicProfile    `json:"profile,omitempty"`
	History     []ChatMessage       `json:"history,omitempty"`
}

// Excerpt is one ranked vector-search hit, trimmed for prompt use.
type Excerpt struct {
	MaterialID uuid.UUID `json:"material_id"`
	Name       string    `json:"name"`
	Excerpt    string    `json:"excerpt"`
	Similarity float64   `json:"similarity"`
}

// Answer is what the tutor returns for one chat turn.
type Answer struct {
	Query    string    `json:"query"`
	Content  string    `json:"content"`
	Excerpts []Excerpt `json:"excerpts,omitempty"`
}
