package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func buildTest(questions ...model.Question) *model.Test {
	t := &model.Test{ID: uuid.New(), Title: "Mock Test"}
	for i := range questions {
		questions[i].Position = i
		questions[i].TestID = t.ID
		if questions[i].ID == "" {
			questions[i].ID = model.QuestionID(t.ID, i)
		}
	}
	t.Questions = questions
	return t
}

func singleChoice(correct string, marks, negative float64) model.Question {
	return model.Question{
		Prompt:        "pick one",
		Options:       []model.Option{{Text: "Delhi"}, {Text: "Mumbai"}, {Text: "Chennai"}},
		Marks:         marks,
		NegativeMarks: negative,
		Key:           model.SingleChoiceKey{Correct: correct},
		KeyKind:       model.KindSingleChoice,
	}
}

func TestScoreNegativeMarking(t *testing.T) {
	// Two +4/-1 questions: one right, one wrong => 4 - 1 = 3.
	test := buildTest(
		singleChoice("Delhi", 4, 1),
		singleChoice("Mumbai", 4, 1),
	)

	summary := Score(test, []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID, Selected: []string{"Delhi"}},
		{QuestionID: test.Questions[1].ID, Selected: []string{"Chennai"}},
	})

	assert.Equal(t, 3.0, summary.Score)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.Equal(t, 1, summary.WrongCount)
	assert.Equal(t, 2, summary.TotalQuestions)
	assert.Equal(t, 50.0, summary.Accuracy)
}

func TestScoreUnattemptedIsNotWrong(t *testing.T) {
	test := buildTest(
		singleChoice("Delhi", 4, 1),
		singleChoice("Mumbai", 4, 1),
		singleChoice("Chennai", 4, 1),
	)

	// Blank and whitespace-only selections are not attempts.
	summary := Score(test, []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID, Selected: []string{"Delhi"}},
		{QuestionID: test.Questions[1].ID, Selected: []string{}},
		{QuestionID: test.Questions[2].ID, Selected: []string{"   "}},
	})

	assert.Equal(t, 4.0, summary.Score)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.Equal(t, 0, summary.WrongCount)
	assert.Len(t, summary.Attempts, 3)
	assert.False(t, summary.Attempts[1].Attempted)
	assert.False(t, summary.Attempts[2].Attempted)
}

func TestScoreEmptySubmission(t *testing.T) {
	test := buildTest(singleChoice("Delhi", 4, 1))

	summary := Score(test, nil)

	assert.Equal(t, 0.0, summary.Score)
	assert.Equal(t, 1, summary.TotalQuestions)
	assert.Equal(t, 0.0, summary.Accuracy)
	assert.Empty(t, summary.Attempts)
}

func TestScoreZeroQuestionTest(t *testing.T) {
	test := buildTest()

	summary := Score(test, []model.SubmittedAnswer{
		{QuestionID: "q_unknown_0", Selected: []string{"x"}},
	})

	assert.Equal(t, 0.0, summary.Score)
	assert.Equal(t, 0.0, summary.Accuracy)
	assert.Equal(t, 0, summary.TotalQuestions)
}

func TestScoreMultiChoiceExactSetOnly(t *testing.T) {
	test := buildTest(model.Question{
		Prompt:        "pick all",
		Options:       []model.Option{{Text: "A"}, {Text: "B"}, {Text: "C"}, {Text: "D"}},
		Marks:         4,
		NegativeMarks: 2,
		Key:           model.MultiChoiceKey{Correct: []string{"A", "C"}},
		KeyKind:       model.KindMultiChoice,
	})
	qid := test.Questions[0].ID

	cases := []struct {
		name     string
		selected []string
		want     float64
	}{
		{"exact match", []string{"A", "C"}, 4},
		{"order independent", []string{"C", "A"}, 4},
		{"subset gets no partial credit", []string{"A"}, -2},
		{"superset is wrong", []string{"A", "B", "C"}, -2},
		{"disjoint is wrong", []string{"B", "D"}, -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := Score(test, []model.SubmittedAnswer{{QuestionID: qid, Selected: tc.selected}})
			assert.Equal(t, tc.want, summary.Score)
		})
	}
}

func TestScoreIntegerTrimsButNoCoercion(t *testing.T) {
	test := buildTest(model.Question{
		Prompt:        "answer",
		Marks:         4,
		NegativeMarks: 0,
		Key:           model.IntegerKey{Answer: "42"},
		KeyKind:       model.KindInteger,
	})
	qid := test.Questions[0].ID

	exact := Score(test, []model.SubmittedAnswer{{QuestionID: qid, Selected: []string{"42"}}})
	assert.Equal(t, 4.0, exact.Score)

	padded := Score(test, []model.SubmittedAnswer{{QuestionID: qid, Selected: []string{"  42 "}}})
	assert.Equal(t, 4.0, padded.Score)

	// "42.0" is a different string, hence a wrong answer.
	decimal := Score(test, []model.SubmittedAnswer{{QuestionID: qid, Selected: []string{"42.0"}}})
	assert.Equal(t, 0.0, decimal.Score)
	assert.Equal(t, 1, decimal.WrongCount)
}

func TestScoreSkipsUnresolvableAnswers(t *testing.T) {
	test := buildTest(singleChoice("Delhi", 4, 1))

	summary := Score(test, []model.SubmittedAnswer{
		{QuestionID: "q_nonsense_id", Selected: []string{"Delhi"}},
		{QuestionID: test.Questions[0].ID, Selected: []string{"Delhi"}},
	})

	assert.Equal(t, 4.0, summary.Score)
	assert.Len(t, summary.Attempts, 1)
}

func TestScoreDeterministic(t *testing.T) {
	test := buildTest(
		singleChoice("Delhi", 4, 1),
		singleChoice("Mumbai", 3, 1),
	)
	answers := []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID, Selected: []string{"Delhi"}},
		{QuestionID: test.Questions[1].ID, Selected: []string{"Delhi"}},
	}

	first := Score(test, answers)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(test, answers))
	}
}

func TestScoreRecordsNeverCarryCorrectAnswer(t *testing.T) {
	test := buildTest(singleChoice("Delhi", 4, 1))

	summary := Score(test, []model.SubmittedAnswer{
		{QuestionID: test.Questions[0].ID, Selected: []string{"Mumbai"}},
	})

	rec := summary.Attempts[0]
	assert.Equal(t, []string{"Mumbai"}, rec.Selected)
	assert.False(t, rec.Correct)
	assert.Equal(t, -1.0, rec.MarksAwarded)
}
