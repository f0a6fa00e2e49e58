package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/config"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Validation errors surfaced to the admin API.
var (
	ErrMissingAnswerKey = errors.New("question is missing the answer field its kind requires")
	ErrMissingOptions   = errors.New("choice question needs at least two options")
)

const paperCacheTTL = 6 * time.Hour

// TestService owns admin test CRUD plus the student-facing paper
// pipeline. Papers are stripped of answer keys, serialized once, and
// cached in Redis so a start request under load is a single GET.
type TestService struct {
	testRepo   *repository.TestRepository
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	logger     zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(testRepo *repository.TestRepository, resultRepo *repository.ResultRepository, rdb *redis.Client, logger zerolog.Logger) *TestService {
	return &TestService{
		testRepo:   testRepo,
		resultRepo: resultRepo,
		rdb:        rdb,
		logger:     logger.With().Str("component", "test_service").Logger(),
	}
}

// CreateTest validates and persists a new test with its questions.
// Question identifiers are assigned by the repository at save time and
// never change afterwards.
func (s *TestService) CreateTest(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	policy := model.ResultPolicyImmediate
	if req.ResultPolicy != "" {
		policy = model.ResultPolicy(req.ResultPolicy)
	}

	test := &model.Test{
		SeriesID:         req.SeriesID,
		Title:            req.Title,
		Subject:          req.Subject,
		Category:         model.Category(req.Category),
		DurationMinutes:  req.DurationMinutes,
		Visible:          req.Visible,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		ExpiresAt:        req.ExpiresAt,
		MaxAttempts:      req.MaxAttempts,
		ResultPolicy:     policy,
		ResultDeclaredAt: req.ResultDeclareAt,
		Questions:        questions,
	}

	if err := s.testRepo.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	return test, nil
}

// UpdateTest applies a partial update. Replacing questions after
// students have submitted weakens score comparability, so that case is
// logged loudly but not blocked.
func (s *TestService) UpdateTest(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	test, err := s.testRepo.GetWithQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load test: %w", err)
	}

	if req.Title != "" {
		test.Title = req.Title
	}
	if req.Subject != "" {
		test.Subject = req.Subject
	}
	if req.DurationMinutes > 0 {
		test.DurationMinutes = req.DurationMinutes
	}
	if req.Visible != nil {
		test.Visible = *req.Visible
	}
	if req.StartAt != nil {
		test.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		test.EndAt = req.EndAt
	}
	if req.ExpiresAt != nil {
		test.ExpiresAt = req.ExpiresAt
	}
	if req.MaxAttempts != nil {
		test.MaxAttempts = req.MaxAttempts
	}
	if req.ResultPolicy != "" {
		test.ResultPolicy = model.ResultPolicy(req.ResultPolicy)
	}
	if req.ResultDeclareAt != nil {
		test.ResultDeclaredAt = req.ResultDeclareAt
	}

	replaceQuestions := len(req.Questions) > 0
	if replaceQuestions {
		questions, err := buildQuestions(req.Questions)
		if err != nil {
			return nil, err
		}
		results, err := s.resultRepo.ListByTest(ctx, id)
		if err == nil && len(results) > 0 {
			s.logger.Warn().
				Str("test_id", id.String()).
				Int("existing_results", len(results)).
				Msg("replacing questions on a test that already has graded attempts")
		}
		test.Questions = questions
	}

	if err := s.testRepo.Update(ctx, test, replaceQuestions); err != nil {
		return nil, fmt.Errorf("update test: %w", err)
	}
	s.invalidatePaper(ctx, id)
	return test, nil
}

// DeleteTest removes a test and its questions. Results are kept.
func (s *TestService) DeleteTest(ctx context.Context, id uuid.UUID) error {
	if err := s.testRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	s.invalidatePaper(ctx, id)
	return nil
}

// GetTest loads one test with its questions (admin view, keys included).
func (s *TestService) GetTest(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetWithQuestions(ctx, id)
}

// ListTests returns a paginated admin listing.
func (s *TestService) ListTests(ctx context.Context, limit, offset int) ([]model.Test, int, error) {
	return s.testRepo.ListPaginated(ctx, limit, offset)
}

// ListForCategory returns the visible tests a student in the given
// category can see in their lobby.
func (s *TestService) ListForCategory(ctx context.Context, category model.Category) ([]model.Test, error) {
	return s.testRepo.ListVisibleByCategory(ctx, category)
}

// GetPaper returns the student-facing paper for a test. The non-review
// paper is served from Redis when warm; a miss falls through to the
// database and repopulates the cache. Review papers carry the correct
// answers and are built per request, never cached.
func (s *TestService) GetPaper(ctx context.Context, testID uuid.UUID, review bool) (*model.TestPaper, error) {
	if !review {
		if cached, err := s.rdb.Get(ctx, config.CacheKey.TestPaperKey(testID.String())).Bytes(); err == nil {
			var paper model.TestPaper
			if err := json.Unmarshal(cached, &paper); err == nil {
				return &paper, nil
			}
			s.logger.Warn().Str("test_id", testID.String()).Msg("corrupt cached paper, rebuilding")
		}
	}

	test, err := s.testRepo.GetWithQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("load test: %w", err)
	}

	paper := BuildPaper(test, review)
	if !review {
		s.cachePaper(ctx, paper)
	}
	return paper, nil
}

// WarmPaperCache pre-serializes the papers of all currently visible
// tests into Redis. Called at startup so the first wave of starts on a
// scheduled test does not stampede the database.
func (s *TestService) WarmPaperCache(ctx context.Context) {
	tests, _, err := s.testRepo.ListPaginated(ctx, 500, 0)
	if err != nil {
		s.logger.Error().Err(err).Msg("paper prewarm listing failed")
		return
	}

	warmed := 0
	for i := range tests {
		if !tests[i].Visible {
			continue
		}
		full, err := s.testRepo.GetWithQuestions(ctx, tests[i].ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("test_id", tests[i].ID.String()).Msg("skipping paper prewarm")
			continue
		}
		s.cachePaper(ctx, BuildPaper(full, false))
		warmed++
	}
	s.logger.Info().Int("papers", warmed).Msg("paper cache warmed")
}

func (s *TestService) cachePaper(ctx context.Context, paper *model.TestPaper) {
	payload, err := json.Marshal(paper)
	if err != nil {
		s.logger.Error().Err(err).Str("test_id", paper.TestID.String()).Msg("marshal paper for cache")
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.TestPaperKey(paper.TestID.String()), payload, paperCacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("test_id", paper.TestID.String()).Msg("cache paper")
	}
}

func (s *TestService) invalidatePaper(ctx context.Context, testID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.TestPaperKey(testID.String())).Err(); err != nil {
		s.logger.Warn().Err(err).Str("test_id", testID.String()).Msg("invalidate cached paper")
	}
}

// BuildPaper projects a test into its student-facing shape. Outside
// review mode every answer-key field is stripped before serialization,
// so a cached or in-flight paper can never leak a correct answer.
func BuildPaper(test *model.Test, review bool) *model.TestPaper {
	questions := make([]model.PaperQuestion, 0, len(test.Questions))
	for i := range test.Questions {
		q := &test.Questions[i]
		pq := model.PaperQuestion{
			ID:            q.ID,
			Position:      q.Position,
			Kind:          q.KeyKind,
			Prompt:        q.Prompt,
			Options:       q.Options,
			Marks:         q.Marks,
			NegativeMarks: q.NegativeMarks,
			Subject:       q.Subject,
			Topic:         q.Topic,
		}
		if review {
			switch key := q.Key.(type) {
			case model.SingleChoiceKey:
				pq.CorrectOption = key.Correct
			case model.MultiChoiceKey:
				pq.CorrectOptions = key.Correct
			case model.IntegerKey:
				pq.CorrectAnswer = key.Answer
			}
		}
		questions = append(questions, pq)
	}

	return &model.TestPaper{
		TestID:          test.ID,
		Title:           test.Title,
		Subject:         test.Subject,
		DurationMinutes: test.DurationMinutes,
		TotalMarks:      test.TotalMarks(),
		Review:          review,
		Questions:       questions,
	}
}

// BuildAdminTest projects a test into its admin-facing shape with the
// stored answer keys flattened back into readable fields.
func BuildAdminTest(test *model.Test) *model.AdminTest {
	questions := make([]model.AdminQuestion, 0, len(test.Questions))
	for i := range test.Questions {
		aq := model.AdminQuestion{Question: test.Questions[i]}
		switch key := test.Questions[i].Key.(type) {
		case model.SingleChoiceKey:
			aq.CorrectOption = key.Correct
		case model.MultiChoiceKey:
			aq.CorrectOptions = key.Correct
		case model.IntegerKey:
			aq.CorrectAnswer = key.Answer
		}
		questions = append(questions, aq)
	}
	return &model.AdminTest{Test: *test, Questions: questions}
}

// buildQuestions converts admin question inputs into typed questions,
// validating that each carries the answer field its kind requires.
func buildQuestions(inputs []model.QuestionInput) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(inputs))
	for i, in := range inputs {
		var key model.AnswerKey
		kind := model.QuestionKind(in.Kind)

		switch kind {
		case model.KindSingleChoice:
			if in.CorrectOption == "" {
				return nil, fmt.Errorf("question %d: %w", i+1, ErrMissingAnswerKey)
			}
			if len(in.Options) < 2 {
				return nil, fmt.Errorf("question %d: %w", i+1, ErrMissingOptions)
			}
			key = model.SingleChoiceKey{Correct: in.CorrectOption}
		case model.KindMultiChoice:
			if len(in.CorrectOptions) == 0 {
				return nil, fmt.Errorf("question %d: %w", i+1, ErrMissingAnswerKey)
			}
			if len(in.Options) < 2 {
				return nil, fmt.Errorf("question %d: %w", i+1, ErrMissingOptions)
			}
			key = model.MultiChoiceKey{Correct: in.CorrectOptions}
		case model.KindInteger:
			if in.CorrectAnswer == "" {
				return nil, fmt.Errorf("question %d: %w", i+1, ErrMissingAnswerKey)
			}
			key = model.IntegerKey{Answer: in.CorrectAnswer}
		default:
			return nil, fmt.Errorf("question %d: unknown kind %q", i+1, in.Kind)
		}

		questions = append(questions, model.Question{
			Position:      i,
			Prompt:        in.Prompt,
			Options:       in.Options,
			Marks:         in.Marks,
			NegativeMarks: in.NegativeMarks,
			Subject:       in.Subject,
			Topic:         in.Topic,
			Key:           key,
			KeyKind:       kind,
		})
	}
	return questions, nil
}
