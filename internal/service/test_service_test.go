package service

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paperSourceTest() *model.Test {
	id := uuid.New()
	return &model.Test{
		ID:              id,
		Title:           "Full Mock 1",
		Subject:         "Physics",
		DurationMinutes: 180,
		Questions: []model.Question{
			{
				ID:            model.QuestionID(id, 0),
				TestID:        id,
				Position:      0,
				Prompt:        "capital?",
				Options:       []model.Option{{Text: "Delhi"}, {Text: "Mumbai"}},
				Marks:         4,
				NegativeMarks: 1,
				Key:           model.SingleChoiceKey{Correct: "Delhi"},
				KeyKind:       model.KindSingleChoice,
			},
			{
				ID:       model.QuestionID(id, 1),
				TestID:   id,
				Position: 1,
				Prompt:   "select all primes",
				Options:  []model.Option{{Text: "2"}, {Text: "3"}, {Text: "4"}},
				Marks:    4,
				Key:      model.MultiChoiceKey{Correct: []string{"2", "3"}},
				KeyKind:  model.KindMultiChoice,
			},
			{
				ID:       model.QuestionID(id, 2),
				TestID:   id,
				Position: 2,
				Prompt:   "value?",
				Marks:    4,
				Key:      model.IntegerKey{Answer: "42"},
				KeyKind:  model.KindInteger,
			},
		},
	}
}

func TestBuildPaperStripsAnswers(t *testing.T) {
	paper := BuildPaper(paperSourceTest(), false)

	assert.False(t, paper.Review)
	assert.Equal(t, 12.0, paper.TotalMarks)
	require.Len(t, paper.Questions, 3)

	// No correct-answer field may survive, not even after serialization.
	raw, err := json.Marshal(paper)
	require.NoError(t, err)
	for _, q := range paper.Questions {
		assert.Empty(t, q.CorrectOption)
		assert.Empty(t, q.CorrectOptions)
		assert.Empty(t, q.CorrectAnswer)
	}
	assert.NotContains(t, string(raw), "correct_option")
	assert.NotContains(t, string(raw), "correct_answer")
}

func TestBuildPaperReviewIncludesAnswers(t *testing.T) {
	paper := BuildPaper(paperSourceTest(), true)

	assert.True(t, paper.Review)
	assert.Equal(t, "Delhi", paper.Questions[0].CorrectOption)
	assert.Equal(t, []string{"2", "3"}, paper.Questions[1].CorrectOptions)
	assert.Equal(t, "42", paper.Questions[2].CorrectAnswer)
}

func TestBuildAdminTestExposesStoredKeys(t *testing.T) {
	admin := BuildAdminTest(paperSourceTest())

	require.Len(t, admin.Questions, 3)
	assert.Equal(t, "Delhi", admin.Questions[0].CorrectOption)
	assert.Equal(t, []string{"2", "3"}, admin.Questions[1].CorrectOptions)
	assert.Equal(t, "42", admin.Questions[2].CorrectAnswer)

	// The keys must survive serialization so the admin API can return
	// what was saved for auditing.
	raw, err := json.Marshal(admin)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"correct_option":"Delhi"`)
	assert.Contains(t, string(raw), `"correct_answer":"42"`)
}

func TestBuildQuestionsValidatesKindPairing(t *testing.T) {
	cases := []struct {
		name  string
		input model.QuestionInput
		want  error
	}{
		{
			"single choice without correct option",
			model.QuestionInput{Kind: "single_choice", Prompt: "p", Marks: 4,
				Options: []model.Option{{Text: "A"}, {Text: "B"}}},
			ErrMissingAnswerKey,
		},
		{
			"single choice with one option",
			model.QuestionInput{Kind: "single_choice", Prompt: "p", Marks: 4,
				Options: []model.Option{{Text: "A"}}, CorrectOption: "A"},
			ErrMissingOptions,
		},
		{
			"multi choice without correct set",
			model.QuestionInput{Kind: "multi_choice", Prompt: "p", Marks: 4,
				Options: []model.Option{{Text: "A"}, {Text: "B"}}},
			ErrMissingAnswerKey,
		},
		{
			"integer without answer",
			model.QuestionInput{Kind: "integer", Prompt: "p", Marks: 4},
			ErrMissingAnswerKey,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildQuestions([]model.QuestionInput{tc.input})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuildQuestionsAssignsPositionsAndKeys(t *testing.T) {
	questions, err := buildQuestions([]model.QuestionInput{
		{Kind: "integer", Prompt: "first", Marks: 4, CorrectAnswer: "1"},
		{Kind: "single_choice", Prompt: "second", Marks: 4,
			Options: []model.Option{{Text: "A"}, {Text: "B"}}, CorrectOption: "B"},
	})
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, 0, questions[0].Position)
	assert.Equal(t, 1, questions[1].Position)
	assert.True(t, questions[0].Key.Matches([]string{"1"}))
	assert.True(t, questions[1].Key.Matches([]string{"B"}))
	assert.False(t, questions[1].Key.Matches([]string{"A", "B"}))
}
