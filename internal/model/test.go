package model

import (
	"time"

	"github.com/google/uuid"
)

// ResultPolicy controls when correct answers and ranks become visible.
type ResultPolicy string

const (
	ResultPolicyImmediate ResultPolicy = "immediate"
	ResultPolicyScheduled ResultPolicy = "scheduled"
)

// Test represents a timed mock test.
type Test struct {
	ID               uuid.UUID    `json:"id"`
	SeriesID         *uuid.UUID   `json:"series_id,omitempty"`
	Title            string       `json:"title"`
	Subject          string       `json:"subject"`
	Category         Category     `json:"category"`
	DurationMinutes  int          `json:"duration_minutes"`
	Visible          bool         `json:"visible"`
	StartAt          *time.Time   `json:"start_at,omitempty"`
	EndAt            *time.Time   `json:"end_at,omitempty"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	MaxAttempts      *int         `json:"max_attempts,omitempty"`
	ResultPolicy     ResultPolicy `json:"result_policy"`
	ResultDeclaredAt *time.Time   `json:"result_declared_at,omitempty"`
	Questions        []Question   `json:"questions,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// TotalMarks sums the positive marks of all questions.
func (t *Test) TotalMarks() float64 {
	var total float64
	for i := range t.Questions {
		total += t.Questions[i].Marks
	}
	return total
}

// AvailableAt reports whether the test may be started at the given
// instant with respect to its optional window and expiry date.
func (t *Test) AvailableAt(now time.Time) bool {
	if t.StartAt != nil && now.Before(*t.StartAt) {
		return false
	}
	if t.EndAt != nil && now.After(*t.EndAt) {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return true
}

// CreateTestRequest is the admin payload for creating a test.
type CreateTestRequest struct {
	Title           string          `json:"title" binding:"required,min=3,max=255"`
	Subject         string          `json:"subject" binding:"omitempty,max=100"`
	Category        string          `json:"category" binding:"required,oneof=JEE NEET GATE CAT UPSC BANKING"`
	SeriesID        *uuid.UUID      `json:"series_id" binding:"omitempty"`
	DurationMinutes int             `json:"duration_minutes" binding:"required,min=1,max=480"`
	Visible         bool            `json:"visible"`
	StartAt         *time.Time      `json:"start_at" binding:"omitempty"`
	EndAt           *time.Time      `json:"end_at" binding:"omitempty,gtfield=StartAt"`
	ExpiresAt       *time.Time      `json:"expires_at" binding:"omitempty"`
	MaxAttempts     *int            `json:"max_attempts" binding:"omitempty,min=1"`
	ResultPolicy    string          `json:"result_policy" binding:"omitempty,oneof=immediate scheduled"`
	ResultDeclareAt *time.Time      `json:"result_declared_at" binding:"omitempty"`
	Questions       []QuestionInput `json:"questions" binding:"omitempty,dive"`
}

// UpdateTestRequest is the admin payload for updating an existing test.
// Replacing questions after a student has attempted the test weakens
// score comparability; the service logs a warning but does not block it.
type UpdateTestRequest struct {
	Title           string          `json:"title" binding:"omitempty,min=3,max=255"`
	Subject         string          `json:"subject" binding:"omitempty,max=100"`
	DurationMinutes int             `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Visible         *bool           `json:"visible" binding:"omitempty"`
	StartAt         *time.Time      `json:"start_at" binding:"omitempty"`
	EndAt           *time.Time      `json:"end_at" binding:"omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at" binding:"omitempty"`
	MaxAttempts     *int            `json:"max_attempts" binding:"omitempty,min=1"`
	ResultPolicy    string          `json:"result_policy" binding:"omitempty,oneof=immediate scheduled"`
	ResultDeclareAt *time.Time      `json:"result_declared_at" binding:"omitempty"`
	Questions       []QuestionInput `json:"questions" binding:"omitempty,dive"`
}

// PaperQuestion is a question as served to a student: the correct answer
// fields are populated only on the review path, after the student already
// has a result for the owning test.
type PaperQuestion struct {
	ID             string       `json:"id"`
	Position       int          `json:"position"`
	Kind           QuestionKind `json:"kind"`
	Prompt         string       `json:"prompt"`
	Options        []Option     `json:"options"`
	Marks          float64      `json:"marks"`
	NegativeMarks  float64      `json:"negative_marks"`
	Subject        string       `json:"subject,omitempty"`
	Topic          string       `json:"topic,omitempty"`
	CorrectOption  string       `json:"correct_option,omitempty"`
	CorrectOptions []string     `json:"correct_options,omitempty"`
	CorrectAnswer  string       `json:"correct_answer,omitempty"`
}

// AdminQuestion is a question as served to the admin API: the stored
// answer key is flattened back into the same fields the admin submitted
// it with, so saved keys can be read back and audited.
type AdminQuestion struct {
	Question
	CorrectOption  string   `json:"correct_option,omitempty"`
	CorrectOptions []string `json:"correct_options,omitempty"`
	CorrectAnswer  string   `json:"correct_answer,omitempty"`
}

// AdminTest is a test as served to the admin API, answer keys included.
type AdminTest struct {
	Test
	Questions []AdminQuestion `json:"questions"`
}

// TestPaper is the payload a student receives on a successful start.
type TestPaper struct {
	TestID          uuid.UUID       `json:"test_id"`
	Title           string          `json:"title"`
	Subject         string          `json:"subject"`
	DurationMinutes int             `json:"duration_minutes"`
	TotalMarks      float64         `json:"total_marks"`
	Review          bool            `json:"review"`
	Questions       []PaperQuestion `json:"questions"`
}
