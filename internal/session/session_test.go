package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	payloads  []Payload
	feedbacks []model.Feedback
	submitErr error
	fbErr     error
}

func (f *fakeSubmitter) Submit(_ context.Context, p Payload) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.payloads = append(f.payloads, p)
	return nil
}

func (f *fakeSubmitter) SendFeedback(_ context.Context, _ string, fb model.Feedback) error {
	if f.fbErr != nil {
		return f.fbErr
	}
	f.feedbacks = append(f.feedbacks, fb)
	return nil
}

func paperWith(n int, durationMinutes int) *model.TestPaper {
	testID := uuid.New()
	questions := make([]model.PaperQuestion, n)
	for i := range questions {
		questions[i] = model.PaperQuestion{
			ID:       model.QuestionID(testID, i),
			Position: i,
			Kind:     model.KindSingleChoice,
			Prompt:   "q",
			Options:  []model.Option{{Text: "A"}, {Text: "B"}},
		}
	}
	return &model.TestPaper{
		TestID:          testID,
		Title:           "Mock",
		DurationMinutes: durationMinutes,
		Questions:       questions,
	}
}

func startActive(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Acknowledge())
	for i := 0; i < countdownTicks; i++ {
		require.NoError(t, s.Tick(context.Background()))
	}
	require.Equal(t, PhaseActive, s.Phase())
}

func TestLifecycleInstructionToActive(t *testing.T) {
	s := New(paperWith(3, 10), FeedbackFirst, &fakeSubmitter{})

	assert.Equal(t, PhaseInstruction, s.Phase())
	// The clock does not run before acknowledgement.
	assert.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, PhaseInstruction, s.Phase())
	assert.Equal(t, 600, s.Remaining())

	startActive(t, s)
	assert.Equal(t, 0, s.Current())
	assert.Equal(t, StatusNotAnswered, s.Status(0))
	assert.Equal(t, StatusNotVisited, s.Status(1))
}

func TestAcknowledgeOnlyFromInstruction(t *testing.T) {
	s := New(paperWith(1, 10), FeedbackFirst, &fakeSubmitter{})
	startActive(t, s)

	assert.ErrorIs(t, s.Acknowledge(), ErrWrongPhase)
}

func TestPaletteStatuses(t *testing.T) {
	s := New(paperWith(4, 10), FeedbackFirst, &fakeSubmitter{})
	startActive(t, s)

	// Q0: answer and save.
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.SaveNext(context.Background()))
	assert.Equal(t, StatusAnswered, s.Status(0))
	assert.Equal(t, 1, s.Current())

	// Q1: mark without answering.
	require.NoError(t, s.MarkForReview())
	assert.Equal(t, StatusMarked, s.Status(1))

	// Q2: answer then mark.
	require.NoError(t, s.Select("B"))
	require.NoError(t, s.MarkForReview())
	assert.Equal(t, StatusMarkedAnswered, s.Status(2))

	// Q3: answer then clear.
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.ClearResponse())
	assert.Equal(t, StatusNotAnswered, s.Status(3))
}

func TestSaveNextOnLastQuestionSubmits(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(paperWith(2, 10), SubmitFirst, sub)
	startActive(t, s)

	require.NoError(t, s.Select("A"))
	require.NoError(t, s.SaveNext(context.Background()))
	require.NoError(t, s.Select("B"))
	require.NoError(t, s.SaveNext(context.Background()))

	assert.Equal(t, PhaseFeedback, s.Phase())
	require.Len(t, sub.payloads, 1)
	assert.False(t, sub.payloads[0].Forced)
	assert.Len(t, sub.payloads[0].Answers, 2)
}

func TestForcedSubmitOnExpiry(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(paperWith(1, 1), SubmitFirst, sub) // 60 seconds
	startActive(t, s)

	require.NoError(t, s.Select("A"))
	for i := 0; i < 60; i++ {
		require.NoError(t, s.Tick(context.Background()))
	}

	assert.Equal(t, 0, s.Remaining())
	assert.True(t, s.Forced())
	assert.Equal(t, PhaseFeedback, s.Phase())
	require.Len(t, sub.payloads, 1)
	assert.True(t, sub.payloads[0].Forced)
	assert.Equal(t, 60, sub.payloads[0].TimeTakenSeconds)
}

func TestFeedbackFirstHoldsPayloadUntilRated(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(paperWith(1, 10), FeedbackFirst, sub)
	startActive(t, s)

	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Submit(context.Background()))

	// Nothing sent yet: the rating gates the payload.
	assert.Equal(t, PhaseFeedback, s.Phase())
	assert.Empty(t, sub.payloads)

	assert.ErrorIs(t, s.RateFeedback(context.Background(), 0, ""), ErrRatingRequired)
	assert.ErrorIs(t, s.RateFeedback(context.Background(), 6, ""), ErrRatingRequired)

	require.NoError(t, s.RateFeedback(context.Background(), 4, "good paper"))
	assert.Equal(t, PhaseTerminated, s.Phase())
	require.Len(t, sub.payloads, 1)
	require.NotNil(t, sub.payloads[0].Feedback)
	assert.Equal(t, 4, sub.payloads[0].Feedback.Rating)
	assert.Empty(t, sub.feedbacks)
}

func TestSubmitFirstSendsFeedbackSeparately(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(paperWith(1, 10), SubmitFirst, sub)
	startActive(t, s)

	require.NoError(t, s.Submit(context.Background()))
	require.Len(t, sub.payloads, 1)
	assert.Nil(t, sub.payloads[0].Feedback)

	require.NoError(t, s.RateFeedback(context.Background(), 5, ""))
	assert.Equal(t, PhaseTerminated, s.Phase())
	require.Len(t, sub.feedbacks, 1)
	assert.Equal(t, 5, sub.feedbacks[0].Rating)
}

func TestFailedSubmitAllowsRetry(t *testing.T) {
	sub := &fakeSubmitter{submitErr: errors.New("network down")}
	s := New(paperWith(1, 10), SubmitFirst, sub)
	startActive(t, s)

	require.NoError(t, s.Select("A"))
	assert.Error(t, s.Submit(context.Background()))
	// The attempt is not discarded; the session waits in submitting.
	assert.Equal(t, PhaseSubmitting, s.Phase())

	sub.submitErr = nil
	require.NoError(t, s.Retry(context.Background()))
	assert.Equal(t, PhaseFeedback, s.Phase())
	require.Len(t, sub.payloads, 1)
	assert.Len(t, sub.payloads[0].Answers, 1)
}

func TestRetryBeforeRatingStaysGated(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(paperWith(1, 10), FeedbackFirst, sub)
	startActive(t, s)

	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, PhaseFeedback, s.Phase())

	// Without a rating there is no payload to resend; the gate holds.
	assert.ErrorIs(t, s.Retry(context.Background()), ErrRatingRequired)
	assert.Equal(t, PhaseFeedback, s.Phase())
	assert.Empty(t, sub.payloads)

	require.NoError(t, s.RateFeedback(context.Background(), 4, ""))
	require.Len(t, sub.payloads, 1)
	require.NotNil(t, sub.payloads[0].Feedback)
}

func TestRetryAfterFailedRatedSendResends(t *testing.T) {
	sub := &fakeSubmitter{submitErr: errors.New("network down")}
	s := New(paperWith(1, 10), FeedbackFirst, sub)
	startActive(t, s)

	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Submit(context.Background()))
	assert.Error(t, s.RateFeedback(context.Background(), 5, "ok"))
	assert.Equal(t, PhaseFeedback, s.Phase())

	sub.submitErr = nil
	require.NoError(t, s.Retry(context.Background()))
	assert.Equal(t, PhaseTerminated, s.Phase())
	require.Len(t, sub.payloads, 1)
	require.NotNil(t, sub.payloads[0].Feedback)
	assert.Equal(t, 5, sub.payloads[0].Feedback.Rating)
}

func TestAnswersSentInPaperOrder(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(paperWith(3, 10), SubmitFirst, sub)
	startActive(t, s)

	// Answer out of order: Q2 then Q0.
	require.NoError(t, s.Visit(2))
	require.NoError(t, s.Select("B"))
	require.NoError(t, s.Visit(0))
	require.NoError(t, s.Select("A"))
	require.NoError(t, s.Submit(context.Background()))

	require.Len(t, sub.payloads, 1)
	answers := sub.payloads[0].Answers
	require.Len(t, answers, 2)
	assert.Equal(t, s.paper.Questions[0].ID, answers[0].QuestionID)
	assert.Equal(t, s.paper.Questions[2].ID, answers[1].QuestionID)
}

func TestInteractionRejectedOutsideActive(t *testing.T) {
	s := New(paperWith(2, 10), FeedbackFirst, &fakeSubmitter{})

	assert.ErrorIs(t, s.Visit(1), ErrWrongPhase)
	assert.ErrorIs(t, s.Select("A"), ErrWrongPhase)
	assert.ErrorIs(t, s.SaveNext(context.Background()), ErrWrongPhase)
	assert.ErrorIs(t, s.MarkForReview(), ErrWrongPhase)
	assert.ErrorIs(t, s.ClearResponse(), ErrWrongPhase)
	assert.ErrorIs(t, s.Submit(context.Background()), ErrWrongPhase)
	assert.ErrorIs(t, s.RateFeedback(context.Background(), 5, ""), ErrWrongPhase)
}

func TestVisitOutOfRange(t *testing.T) {
	s := New(paperWith(2, 10), FeedbackFirst, &fakeSubmitter{})
	startActive(t, s)

	assert.ErrorIs(t, s.Visit(-1), ErrNoQuestion)
	assert.ErrorIs(t, s.Visit(2), ErrNoQuestion)
}

func TestTicksIgnoredAfterTermination(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(paperWith(1, 10), SubmitFirst, sub)
	startActive(t, s)

	require.NoError(t, s.Submit(context.Background()))
	require.NoError(t, s.RateFeedback(context.Background(), 3, ""))
	require.Equal(t, PhaseTerminated, s.Phase())

	for i := 0; i < 10; i++ {
		assert.NoError(t, s.Tick(context.Background()))
	}
	assert.Equal(t, PhaseTerminated, s.Phase())
	assert.Len(t, sub.payloads, 1)
}
