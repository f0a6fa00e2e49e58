// Package session implements the client-resident attempt state machine.
//
// A Session is created per test attempt and discarded once terminated;
// it is never a process-wide singleton. The machine is single-threaded
// cooperative: the caller delivers exactly one Tick per second and all
// user-interaction methods run to completion before the next tick, so
// the in-memory submission is never mutated concurrently. Closing the
// tab abandons the in-memory answers with no persistence — that is
// accepted behavior, not a defect.
package session

import (
	"context"
	"errors"

	"github.com/preplane/preplane-backend/internal/model"
)

// Phase is the top-level state of an attempt.
type Phase string

const (
	PhaseInstruction Phase = "instruction"
	PhaseCountdown   Phase = "countdown"
	PhaseActive      Phase = "active"
	PhaseSubmitting  Phase = "submitting"
	PhaseFeedback    Phase = "feedback"
	PhaseTerminated  Phase = "terminated"
)

// QuestionStatus is the per-question palette state shown to the student.
type QuestionStatus string

const (
	StatusNotVisited     QuestionStatus = "not_visited"
	StatusNotAnswered    QuestionStatus = "not_answered"
	StatusAnswered       QuestionStatus = "answered"
	StatusMarked         QuestionStatus = "marked"
	StatusMarkedAnswered QuestionStatus = "marked_answered"
)

// SubmitOrder decides whether the submission payload is sent before or
// after the mandatory feedback rating. FeedbackFirst matches the
// observed product: even a time-expired forced submission waits on the
// rating. SubmitFirst sends answers immediately and collects feedback
// afterwards, so a forced submission cannot be blocked by the modal.
type SubmitOrder int

const (
	FeedbackFirst SubmitOrder = iota
	SubmitFirst
)

// countdownTicks is the fixed pre-test countdown length.
const countdownTicks = 3

// Payload is the final submission handed to the scoring side exactly once.
type Payload struct {
	TestID           string
	Answers          []model.SubmittedAnswer
	TimeTakenSeconds int
	Forced           bool
	Feedback         *model.Feedback
}

// Submitter receives the completed payload. Implementations perform the
// network calls to the scoring engine. Under FeedbackFirst the feedback
// is embedded in the payload; under SubmitFirst the answers go out first
// and SendFeedback attaches the rating to the already-created result.
type Submitter interface {
	Submit(ctx context.Context, p Payload) error
	SendFeedback(ctx context.Context, testID string, fb model.Feedback) error
}

var (
	ErrWrongPhase     = errors.New("operation not valid in current phase")
	ErrNoQuestion     = errors.New("question index out of range")
	ErrRatingRequired = errors.New("a star rating between 1 and 5 is required")
	ErrTerminated     = errors.New("session already terminated")
)

// Session drives one attempt at a test paper.
type Session struct {
	paper     *model.TestPaper
	order     SubmitOrder
	submitter Submitter

	phase     Phase
	countdown int
	remaining int // seconds left in PhaseActive
	elapsed   int

	current  int
	statuses []QuestionStatus
	answers  map[string][]string

	forced   bool
	feedback *model.Feedback
}

// New creates a session in PhaseInstruction. The timer does not run
// until the student acknowledges the rules and the countdown completes.
func New(paper *model.TestPaper, order SubmitOrder, submitter Submitter) *Session {
	statuses := make([]QuestionStatus, len(paper.Questions))
	for i := range statuses {
		statuses[i] = StatusNotVisited
	}
	return &Session{
		paper:     paper,
		order:     order,
		submitter: submitter,
		phase:     PhaseInstruction,
		countdown: countdownTicks,
		remaining: paper.DurationMinutes * 60,
		statuses:  statuses,
		answers:   make(map[string][]string),
	}
}

// Phase returns the current top-level state.
func (s *Session) Phase() Phase { return s.phase }

// Remaining returns the seconds left on the exam clock.
func (s *Session) Remaining() int { return s.remaining }

// Current returns the index of the question in view.
func (s *Session) Current() int { return s.current }

// Forced reports whether submission was triggered by the clock.
func (s *Session) Forced() bool { return s.forced }

// Status returns the palette status of question i.
func (s *Session) Status(i int) QuestionStatus {
	if i < 0 || i >= len(s.statuses) {
		return StatusNotVisited
	}
	return s.statuses[i]
}

// Acknowledge confirms the instructions were read and starts the countdown.
func (s *Session) Acknowledge() error {
	if s.phase != PhaseInstruction {
		return ErrWrongPhase
	}
	s.phase = PhaseCountdown
	return nil
}

// Tick advances the 1-Hz clock. During the countdown it decrements the
// countdown; in the active phase it decrements remaining time and, on
// reaching zero, forces submission with no confirmation step.
func (s *Session) Tick(ctx context.Context) error {
	switch s.phase {
	case PhaseCountdown:
		s.countdown--
		if s.countdown <= 0 {
			s.phase = PhaseActive
			s.visit(0)
		}
		return nil
	case PhaseActive:
		s.remaining--
		s.elapsed++
		if s.remaining <= 0 {
			s.remaining = 0
			s.forced = true
			return s.beginSubmit(ctx)
		}
		return nil
	default:
		// Ticks in other phases are ignored; the clock only runs while
		// counting down or active.
		return nil
	}
}

// Visit moves the view to question i. A not-visited question becomes
// not-answered on first visit.
func (s *Session) Visit(i int) error {
	if s.phase != PhaseActive {
		return ErrWrongPhase
	}
	if i < 0 || i >= len(s.statuses) {
		return ErrNoQuestion
	}
	s.visit(i)
	return nil
}

func (s *Session) visit(i int) {
	if i >= len(s.statuses) {
		return
	}
	s.current = i
	if s.statuses[i] == StatusNotVisited {
		s.statuses[i] = StatusNotAnswered
	}
}

// Select stores the in-memory selection for the current question without
// changing its palette status; SaveNext or MarkForReview settle it.
func (s *Session) Select(values ...string) error {
	if s.phase != PhaseActive {
		return ErrWrongPhase
	}
	q := s.paper.Questions[s.current]
	if len(values) == 0 {
		delete(s.answers, q.ID)
		return nil
	}
	s.answers[q.ID] = append([]string(nil), values...)
	return nil
}

// SaveNext settles the current question as answered or not-answered and
// advances. On the last question it is equivalent to a manual submit.
func (s *Session) SaveNext(ctx context.Context) error {
	if s.phase != PhaseActive {
		return ErrWrongPhase
	}
	q := s.paper.Questions[s.current]
	if _, ok := s.answers[q.ID]; ok {
		s.statuses[s.current] = StatusAnswered
	} else {
		s.statuses[s.current] = StatusNotAnswered
	}

	if s.current == len(s.statuses)-1 {
		return s.beginSubmit(ctx)
	}
	s.visit(s.current + 1)
	return nil
}

// MarkForReview marks the current question (with or without an answer)
// and advances to the next question.
func (s *Session) MarkForReview() error {
	if s.phase != PhaseActive {
		return ErrWrongPhase
	}
	q := s.paper.Questions[s.current]
	if _, ok := s.answers[q.ID]; ok {
		s.statuses[s.current] = StatusMarkedAnswered
	} else {
		s.statuses[s.current] = StatusMarked
	}
	if s.current < len(s.statuses)-1 {
		s.visit(s.current + 1)
	}
	return nil
}

// ClearResponse removes the stored value for the current question and
// resets its status to not-answered.
func (s *Session) ClearResponse() error {
	if s.phase != PhaseActive {
		return ErrWrongPhase
	}
	q := s.paper.Questions[s.current]
	delete(s.answers, q.ID)
	s.statuses[s.current] = StatusNotAnswered
	return nil
}

// Submit is the manual submission path.
func (s *Session) Submit(ctx context.Context) error {
	if s.phase != PhaseActive {
		return ErrWrongPhase
	}
	return s.beginSubmit(ctx)
}

// beginSubmit enters PhaseSubmitting and applies the submit-order
// policy. Under SubmitFirst the payload is sent immediately and feedback
// is collected afterwards; under FeedbackFirst nothing is sent until a
// rating arrives via RateFeedback.
func (s *Session) beginSubmit(ctx context.Context) error {
	s.phase = PhaseSubmitting

	if s.order == SubmitFirst {
		if err := s.send(ctx); err != nil {
			// Stay in PhaseSubmitting so the student can retry; the
			// attempt must never be silently discarded on a failed write.
			return err
		}
	}
	s.phase = PhaseFeedback
	return nil
}

// RateFeedback records the mandatory star rating and optional comment.
// Under FeedbackFirst this is the moment the payload is sent; under
// SubmitFirst the answers are already on the server and the feedback
// rides along as a follow-up.
func (s *Session) RateFeedback(ctx context.Context, rating int, comment string) error {
	if s.phase != PhaseFeedback {
		return ErrWrongPhase
	}
	if rating < 1 || rating > 5 {
		return ErrRatingRequired
	}
	s.feedback = &model.Feedback{Rating: rating, Comment: comment}

	if s.order == FeedbackFirst {
		if err := s.send(ctx); err != nil {
			return err
		}
	} else if err := s.submitter.SendFeedback(ctx, s.paper.TestID.String(), *s.feedback); err != nil {
		return err
	}
	s.phase = PhaseTerminated
	return nil
}

// Retry resends the payload after a failed submission attempt. Under
// FeedbackFirst nothing has been sent until a rating exists, so there
// is nothing to retry before RateFeedback has run.
func (s *Session) Retry(ctx context.Context) error {
	if s.phase != PhaseSubmitting && s.phase != PhaseFeedback {
		return ErrWrongPhase
	}
	if s.order == FeedbackFirst && s.feedback == nil {
		return ErrRatingRequired
	}
	if err := s.send(ctx); err != nil {
		return err
	}
	if s.order == SubmitFirst && s.phase == PhaseSubmitting {
		s.phase = PhaseFeedback
		return nil
	}
	s.phase = PhaseTerminated
	return nil
}

// send builds and delivers the payload exactly as currently held.
func (s *Session) send(ctx context.Context) error {
	answers := make([]model.SubmittedAnswer, 0, len(s.answers))
	for i := range s.paper.Questions {
		q := s.paper.Questions[i]
		if sel, ok := s.answers[q.ID]; ok {
			answers = append(answers, model.SubmittedAnswer{QuestionID: q.ID, Selected: sel})
		}
	}
	return s.submitter.Submit(ctx, Payload{
		TestID:           s.paper.TestID.String(),
		Answers:          answers,
		TimeTakenSeconds: s.elapsed,
		Forced:           s.forced,
		Feedback:         s.feedback,
	})
}
