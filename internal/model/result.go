package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptRecord is the per-question portion of a result. It captures what
// was selected and whether it was correct — never the canonical correct
// answer, so inspecting a result cannot leak the answer key.
type AttemptRecord struct {
	QuestionID   string   `json:"question_id"`
	Selected     []string `json:"selected"`
	Attempted    bool     `json:"attempted"`
	Correct      bool     `json:"correct"`
	MarksAwarded float64  `json:"marks_awarded"`
	Subject      string   `json:"subject,omitempty"`
	Topic        string   `json:"topic,omitempty"`
}

// Feedback is the one-shot post-submission rating a student may attach
// to their most recent attempt.
type Feedback struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Result is the graded outcome of one submission. Test metadata is
// frozen at submission time so later edits to the test cannot
// retroactively change a graded result. Immutable after creation except
// for the single feedback field.
type Result struct {
	ID            uuid.UUID `json:"id"`
	TestID        uuid.UUID `json:"test_id"`
	UserID        int       `json:"user_id"`
	AttemptNumber int       `json:"attempt_number"`

	// Frozen test metadata.
	TestTitle   string  `json:"test_title"`
	TestSubject string  `json:"test_subject"`
	TotalMarks  float64 `json:"total_marks"`

	Score            float64         `json:"score"`
	Accuracy         float64         `json:"accuracy"`
	CorrectCount     int             `json:"correct_count"`
	WrongCount       int             `json:"wrong_count"`
	TotalQuestions   int             `json:"total_questions"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	SubmittedAt      time.Time       `json:"submitted_at"`
	Attempts         []AttemptRecord `json:"attempts,omitempty"`
	Feedback         *Feedback       `json:"feedback,omitempty"`
}

// UnattemptedCount derives the number of questions left blank.
func (r *Result) UnattemptedCount() int {
	return r.TotalQuestions - r.CorrectCount - r.WrongCount
}

// SubmittedAnswer is one answer in a submission payload: a question
// identifier plus the selected value(s). Single-choice and integer
// questions send one element; multi-choice sends zero or more.
type SubmittedAnswer struct {
	QuestionID string   `json:"question_id" binding:"required"`
	Selected   []string `json:"selected"`
}

// SubmitTestRequest is the payload for final submission of an attempt.
type SubmitTestRequest struct {
	Answers          []SubmittedAnswer `json:"answers" binding:"dive"`
	TimeTakenSeconds int               `json:"time_taken_seconds" binding:"min=0"`
	Feedback         *FeedbackRequest  `json:"feedback" binding:"omitempty"`
}

// FeedbackRequest carries the star rating collected before or after
// submission, depending on the client's submit-order policy.
type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"omitempty,max=2000"`
}
