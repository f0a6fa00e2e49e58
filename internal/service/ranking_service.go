package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/rs/zerolog"
)

// RankedEntry is one row of a test's ranking.
type RankedEntry struct {
	Rank             int       `json:"rank"`
	UserID           int       `json:"user_id"`
	Name             string    `json:"name,omitempty"`
	Score            float64   `json:"score"`
	Accuracy         float64   `json:"accuracy"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	AttemptNumber    int       `json:"attempt_number"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// FeedbackEntry pairs a rating with the user who gave it (admin view).
type FeedbackEntry struct {
	UserID  int    `json:"user_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// TestAnalytics is the ranking and aggregate view of one test. The
// Entries slice is privacy-filtered per requester before it leaves the
// service: a student sees aggregates plus their own row only.
type TestAnalytics struct {
	TestID       uuid.UUID       `json:"test_id"`
	Participants int             `json:"participants"`
	AverageScore float64         `json:"average_score"`
	TopScore     float64         `json:"top_score"`
	Entries      []RankedEntry   `json:"entries"`
	MyRank       *RankedEntry    `json:"my_rank,omitempty"`
	Feedbacks    []FeedbackEntry `json:"feedbacks,omitempty"`
}

// BuildAnalytics ranks results and filters them for the requester. It
// is pure over its inputs so the ranking rules are testable without a
// database.
//
// Ranking rules: one entry per user, their latest attempt; ordered by
// score descending, then time taken ascending, then submission time
// ascending, so equal (score, time) pairs rank in submission order;
// ranks are 1-based. Non-admin requesters get aggregates, their own row
// in Entries, and no feedback; names of other users never reach them.
func BuildAnalytics(testID uuid.UUID, results []model.Result, requester *model.User) TestAnalytics {
	latest := make(map[int]model.Result, len(results))
	for _, r := range results {
		if prev, ok := latest[r.UserID]; !ok || r.AttemptNumber > prev.AttemptNumber {
			latest[r.UserID] = r
		}
	}

	ranked := make([]model.Result, 0, len(latest))
	for _, r := range latest {
		ranked = append(ranked, r)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].TimeTakenSeconds != ranked[j].TimeTakenSeconds {
			return ranked[i].TimeTakenSeconds < ranked[j].TimeTakenSeconds
		}
		return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
	})

	analytics := TestAnalytics{
		TestID:       testID,
		Participants: len(ranked),
		Entries:      make([]RankedEntry, 0, len(ranked)),
	}

	var total float64
	for i, r := range ranked {
		entry := RankedEntry{
			Rank:             i + 1,
			UserID:           r.UserID,
			Score:            r.Score,
			Accuracy:         r.Accuracy,
			TimeTakenSeconds: r.TimeTakenSeconds,
			AttemptNumber:    r.AttemptNumber,
			SubmittedAt:      r.SubmittedAt,
		}
		total += r.Score
		if i == 0 {
			analytics.TopScore = r.Score
		}
		if r.UserID == requester.ID {
			own := entry
			analytics.MyRank = &own
		}
		analytics.Entries = append(analytics.Entries, entry)
	}
	if len(ranked) > 0 {
		analytics.AverageScore = total / float64(len(ranked))
	}

	if requester.IsAdmin() {
		for _, r := range ranked {
			if r.Feedback != nil {
				analytics.Feedbacks = append(analytics.Feedbacks, FeedbackEntry{
					UserID:  r.UserID,
					Rating:  r.Feedback.Rating,
					Comment: r.Feedback.Comment,
				})
			}
		}
		return analytics
	}

	if analytics.MyRank != nil {
		analytics.Entries = []RankedEntry{*analytics.MyRank}
	} else {
		analytics.Entries = nil
	}
	return analytics
}

// RankingService loads a test's results, builds privacy-filtered
// analytics, and best-effort enriches the visible rows with names.
type RankingService struct {
	resultRepo *repository.ResultRepository
	userRepo   *repository.UserRepository
	logger     zerolog.Logger
}

// NewRankingService creates a new RankingService.
func NewRankingService(resultRepo *repository.ResultRepository, userRepo *repository.UserRepository, logger zerolog.Logger) *RankingService {
	return &RankingService{
		resultRepo: resultRepo,
		userRepo:   userRepo,
		logger:     logger.With().Str("component", "ranking_service").Logger(),
	}
}

// GetAnalytics returns the requester-appropriate ranking view of a test.
func (s *RankingService) GetAnalytics(ctx context.Context, requester *model.User, testID uuid.UUID) (*TestAnalytics, error) {
	results, err := s.resultRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	analytics := BuildAnalytics(testID, results, requester)
	s.enrichNames(ctx, &analytics)
	return &analytics, nil
}

// enrichNames fills display names on the rows the requester is allowed
// to see. A lookup failure leaves names blank rather than failing the
// whole analytics request.
func (s *RankingService) enrichNames(ctx context.Context, analytics *TestAnalytics) {
	ids := make([]int, 0, len(analytics.Entries))
	for _, e := range analytics.Entries {
		ids = append(ids, e.UserID)
	}
	if len(ids) == 0 {
		return
	}

	names, err := s.userRepo.NamesByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Msg("name enrichment failed")
		return
	}
	for i := range analytics.Entries {
		analytics.Entries[i].Name = names[analytics.Entries[i].UserID]
	}
	if analytics.MyRank != nil {
		analytics.MyRank.Name = names[analytics.MyRank.UserID]
	}
}
