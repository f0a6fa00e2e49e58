// Package scoring grades submitted answers against a test's answer keys.
// All functions are pure: the same test and answers always produce the
// same summary, which keeps grading deterministic and replayable.
package scoring

import (
	"strings"

	"github.com/preplane/preplane-backend/internal/model"
)

// Summary is the aggregate outcome of grading one submission.
type Summary struct {
	Score          float64
	CorrectCount   int
	WrongCount     int
	TotalQuestions int
	Accuracy       float64
	Attempts       []model.AttemptRecord
}

// Score grades every answer that resolves against the test. Unresolvable
// answers are skipped and contribute to neither score nor counts.
//
// Marking policy: a correct answer adds the question's marks; an
// attempted-but-incorrect answer subtracts its negative marks; an
// unattempted question changes nothing and is not counted as wrong.
// TotalQuestions is the question count of the test, not of the
// submission, and accuracy is 0 rather than a division error when the
// test has no questions.
func Score(t *model.Test, answers []model.SubmittedAnswer) Summary {
	s := Summary{
		TotalQuestions: len(t.Questions),
		Attempts:       make([]model.AttemptRecord, 0, len(answers)),
	}

	for _, a := range answers {
		q, ok := Resolve(t, a.QuestionID)
		if !ok {
			continue
		}

		rec := model.AttemptRecord{
			QuestionID: q.ID,
			Selected:   a.Selected,
			Attempted:  attempted(a.Selected),
			Subject:    q.Subject,
			Topic:      q.Topic,
		}

		switch {
		case !rec.Attempted:
			// No score change, not counted as wrong.
		case q.Key.Matches(a.Selected):
			rec.Correct = true
			rec.MarksAwarded = q.Marks
			s.Score += q.Marks
			s.CorrectCount++
		default:
			rec.MarksAwarded = -q.NegativeMarks
			s.Score -= q.NegativeMarks
			s.WrongCount++
		}

		s.Attempts = append(s.Attempts, rec)
	}

	if s.TotalQuestions > 0 {
		s.Accuracy = float64(s.CorrectCount) / float64(s.TotalQuestions) * 100
	}
	return s
}

// attempted reports whether a selection counts as an attempt: at least
// one value that is non-empty after trimming. An empty array, or values
// that are only whitespace, leave the question unattempted.
func attempted(selected []string) bool {
	for _, v := range selected {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
