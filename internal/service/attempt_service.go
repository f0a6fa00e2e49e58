package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/preplane/preplane-backend/internal/config"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/preplane/preplane-backend/internal/scoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Submission errors.
var (
	ErrLateSubmission   = errors.New("submission received after the deadline")
	ErrFeedbackRepeated = errors.New("feedback already recorded for this attempt")
	ErrNoResult         = errors.New("no result to attach feedback to")
)

// LeaderboardEvent is the queue message produced after every durable
// submission. The worker folds it into the test's ranking sorted set.
type LeaderboardEvent struct {
	TestID           string    `json:"test_id"`
	UserID           int       `json:"user_id"`
	ResultID         string    `json:"result_id"`
	Score            float64   `json:"score"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// AttemptService owns the server side of a test attempt: start
// bookkeeping, deadline enforcement, grading, durable result creation,
// and the one-shot feedback attachment.
type AttemptService struct {
	testRepo    *repository.TestRepository
	resultRepo  *repository.ResultRepository
	entitlement *EntitlementService
	rdb         *redis.Client
	lateGrace   time.Duration
	logger      zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	testRepo *repository.TestRepository,
	resultRepo *repository.ResultRepository,
	entitlement *EntitlementService,
	rdb *redis.Client,
	lateGrace time.Duration,
	logger zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		testRepo:    testRepo,
		resultRepo:  resultRepo,
		entitlement: entitlement,
		rdb:         rdb,
		lateGrace:   lateGrace,
		logger:      logger.With().Str("component", "attempt_service").Logger(),
	}
}

// MarkStarted stamps the attempt start time in Redis. SetNX keeps the
// first stamp authoritative when a paper is re-fetched mid-attempt, and
// the TTL outlives the test duration plus grace so a live attempt's
// stamp cannot expire under it.
func (s *AttemptService) MarkStarted(ctx context.Context, testID uuid.UUID, userID int, duration time.Duration) {
	key := config.CacheKey.AttemptStartKey(testID.String(), userID)
	ttl := duration + s.lateGrace + time.Hour
	if err := s.rdb.SetNX(ctx, key, time.Now().UnixMilli(), ttl).Err(); err != nil {
		s.logger.Warn().Err(err).
			Str("test_id", testID.String()).
			Int("user_id", userID).
			Msg("failed to stamp attempt start")
	}
}

// SubmitTest grades and durably stores one submission. Entitlement is
// re-checked so an access grant revoked mid-attempt cannot still produce
// a result, and the insert is conditional so two racing submissions for
// the same attempt yield exactly one stored result — the loser receives
// the winner's result back.
func (s *AttemptService) SubmitTest(ctx context.Context, user *model.User, testID uuid.UUID, req *model.SubmitTestRequest) (*model.Result, error) {
	_, ent, err := s.entitlement.Check(ctx, user, testID, false)
	if err != nil {
		return nil, err
	}
	if !ent.Allowed {
		// An exhausted attempt limit at submit time means the result for
		// this attempt already exists; return it instead of failing.
		if ent.Reason == DenyAttemptLimit {
			existing, err := s.resultRepo.GetLatestByTestAndUser(ctx, testID, user.ID)
			if err == nil {
				return existing, nil
			}
		}
		return nil, &DeniedError{Reason: ent.Reason, SeriesID: ent.SeriesID}
	}

	test, err := s.testRepo.GetWithQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("load test: %w", err)
	}

	if err := s.checkDeadline(ctx, test, user.ID); err != nil {
		return nil, err
	}

	attemptCount, err := s.resultRepo.CountByTestAndUser(ctx, testID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}

	summary := scoring.Score(test, req.Answers)

	result := &model.Result{
		TestID:           testID,
		UserID:           user.ID,
		AttemptNumber:    attemptCount + 1,
		TestTitle:        test.Title,
		TestSubject:      test.Subject,
		TotalMarks:       test.TotalMarks(),
		Score:            summary.Score,
		Accuracy:         summary.Accuracy,
		CorrectCount:     summary.CorrectCount,
		WrongCount:       summary.WrongCount,
		TotalQuestions:   summary.TotalQuestions,
		TimeTakenSeconds: req.TimeTakenSeconds,
		Attempts:         summary.Attempts,
	}
	if req.Feedback != nil {
		result.Feedback = &model.Feedback{Rating: req.Feedback.Rating, Comment: req.Feedback.Comment}
	}

	if err := s.resultRepo.Create(ctx, result); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race against a concurrent submission of the same attempt.
			existing, gerr := s.resultRepo.GetLatestByTestAndUser(ctx, testID, user.ID)
			if gerr != nil {
				return nil, fmt.Errorf("load concurrent result: %w", gerr)
			}
			s.logger.Info().
				Str("test_id", testID.String()).
				Int("user_id", user.ID).
				Msg("duplicate submission collapsed onto existing result")
			return existing, nil
		}
		return nil, fmt.Errorf("store result: %w", err)
	}

	s.clearStart(ctx, testID, user.ID)
	s.enqueueLeaderboard(ctx, result)

	s.logger.Info().
		Str("test_id", testID.String()).
		Int("user_id", user.ID).
		Int("attempt", result.AttemptNumber).
		Float64("score", result.Score).
		Msg("submission graded")
	return result, nil
}

// AttachFeedback records the one-shot rating on the user's most recent
// attempt of a test. A second rating for the same attempt is rejected.
func (s *AttemptService) AttachFeedback(ctx context.Context, userID int, testID uuid.UUID, fb model.Feedback) error {
	err := s.resultRepo.AttachFeedback(ctx, testID, userID, fb)
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish "no attempt at all" from "already rated".
		if _, gerr := s.resultRepo.GetLatestByTestAndUser(ctx, testID, userID); gerr != nil {
			return ErrNoResult
		}
		return ErrFeedbackRepeated
	}
	return fmt.Errorf("attach feedback: %w", err)
}

// checkDeadline rejects submissions that arrive past the allowed window.
// The primary clock is the Redis start stamp; if it is gone (flushed or
// expired) the test's own end window still bounds acceptance, and an
// unbounded test falls back to accepting with a warning rather than
// destroying the student's work over lost bookkeeping.
func (s *AttemptService) checkDeadline(ctx context.Context, test *model.Test, userID int) error {
	now := time.Now()
	limit := time.Duration(test.DurationMinutes)*time.Minute + s.lateGrace

	key := config.CacheKey.AttemptStartKey(test.ID.String(), userID)
	startMilli, err := s.rdb.Get(ctx, key).Int64()
	if err == nil {
		started := time.UnixMilli(startMilli)
		if now.Sub(started) > limit {
			return ErrLateSubmission
		}
		return nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Str("test_id", test.ID.String()).Int("user_id", userID).
			Msg("attempt start lookup failed")
	}

	if test.EndAt != nil && now.After(test.EndAt.Add(s.lateGrace)) {
		return ErrLateSubmission
	}
	if err == nil || errors.Is(err, redis.Nil) {
		s.logger.Warn().
			Str("test_id", test.ID.String()).
			Int("user_id", userID).
			Msg("no attempt start stamp, accepting submission on window check alone")
	}
	return nil
}

func (s *AttemptService) clearStart(ctx context.Context, testID uuid.UUID, userID int) {
	key := config.CacheKey.AttemptStartKey(testID.String(), userID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to clear attempt start")
	}
}

// enqueueLeaderboard pushes the graded result onto the worker queue.
// Queue failures are logged, not surfaced: the result is already
// durable and the ranking can be rebuilt from the database.
func (s *AttemptService) enqueueLeaderboard(ctx context.Context, result *model.Result) {
	event := LeaderboardEvent{
		TestID:           result.TestID.String(),
		UserID:           result.UserID,
		ResultID:         result.ID.String(),
		Score:            result.Score,
		TimeTakenSeconds: result.TimeTakenSeconds,
		SubmittedAt:      result.SubmittedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal leaderboard event")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.LeaderboardQueue, payload).Err(); err != nil {
		s.logger.Error().Err(err).Str("result_id", result.ID.String()).
			Msg("failed to enqueue leaderboard event")
	}
}
