package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// QuestionKind enumerates the closed set of question variants.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single_choice"
	KindMultiChoice  QuestionKind = "multi_choice"
	KindInteger      QuestionKind = "integer"
)

// AnswerKey is the grading rule of a single question. Each kind carries
// only the fields its rule needs, so scoring never inspects a loosely
// typed answer shape at runtime.
type AnswerKey interface {
	Kind() QuestionKind
	// Matches reports whether the selected values grade as correct.
	Matches(selected []string) bool
}

// SingleChoiceKey grades by exact string equality against one option.
type SingleChoiceKey struct {
	Correct string `json:"correct"`
}

func (k SingleChoiceKey) Kind() QuestionKind { return KindSingleChoice }

func (k SingleChoiceKey) Matches(selected []string) bool {
	return len(selected) == 1 && selected[0] == k.Correct
}

// MultiChoiceKey grades by exact set equality: order-independent, no
// partial credit for subsets or supersets.
type MultiChoiceKey struct {
	Correct []string `json:"correct"`
}

func (k MultiChoiceKey) Kind() QuestionKind { return KindMultiChoice }

func (k MultiChoiceKey) Matches(selected []string) bool {
	if len(selected) != len(k.Correct) {
		return false
	}
	want := make(map[string]int, len(k.Correct))
	for _, v := range k.Correct {
		want[v]++
	}
	for _, v := range selected {
		if want[v] == 0 {
			return false
		}
		want[v]--
	}
	return true
}

// IntegerKey grades by whitespace-trimmed string equality. There is no
// numeric coercion: "42.0" and "42" are different answers.
type IntegerKey struct {
	Answer string `json:"answer"`
}

func (k IntegerKey) Kind() QuestionKind { return KindInteger }

func (k IntegerKey) Matches(selected []string) bool {
	return len(selected) == 1 &&
		strings.TrimSpace(selected[0]) == strings.TrimSpace(k.Answer)
}

// Option is a selectable answer choice; text, image, or both.
type Option struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Question is a single graded item of a test. Its ID is assigned once,
// deterministically, when the owning test is saved and is never
// regenerated at read time.
type Question struct {
	ID            string       `json:"id"`
	TestID        uuid.UUID    `json:"test_id"`
	Position      int          `json:"position"`
	Prompt        string       `json:"prompt"`
	Options       []Option     `json:"options"`
	Marks         float64      `json:"marks"`
	NegativeMarks float64      `json:"negative_marks"`
	Subject       string       `json:"subject"`
	Topic         string       `json:"topic"`
	Key           AnswerKey    `json:"-"`
	KeyKind       QuestionKind `json:"kind"`
}

// QuestionID builds the arena-style identifier for a question at the
// given position of a test. Identifiers are index-derived and immutable
// from the first save of the owning test onward.
func QuestionID(testID uuid.UUID, position int) string {
	return fmt.Sprintf("q_%s_%d", testID, position)
}

// QuestionInput is the admin payload for one question inside a test
// create/update request. The correct-answer field that applies depends
// on kind; the service validates the pairing.
type QuestionInput struct {
	Kind           string   `json:"kind" binding:"required,oneof=single_choice multi_choice integer"`
	Prompt         string   `json:"prompt" binding:"required,min=1,max=4000"`
	Options        []Option `json:"options" binding:"omitempty,dive"`
	Marks          float64  `json:"marks" binding:"required,gt=0"`
	NegativeMarks  float64  `json:"negative_marks" binding:"min=0"`
	Subject        string   `json:"subject" binding:"omitempty,max=100"`
	Topic          string   `json:"topic" binding:"omitempty,max=100"`
	CorrectOption  string   `json:"correct_option" binding:"omitempty,max=1000"`
	CorrectOptions []string `json:"correct_options" binding:"omitempty,dive,max=1000"`
	CorrectAnswer  string   `json:"correct_answer" binding:"omitempty,max=100"`
}
