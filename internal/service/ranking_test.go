package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rankBase = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func result(userID int, attempt int, score float64, timeTaken int, offset time.Duration) model.Result {
	return model.Result{
		ID:               uuid.New(),
		UserID:           userID,
		AttemptNumber:    attempt,
		Score:            score,
		TimeTakenSeconds: timeTaken,
		SubmittedAt:      rankBase.Add(offset),
	}
}

func TestRankingOrderAndTieBreak(t *testing.T) {
	testID := uuid.New()
	admin := &model.User{ID: 99, Role: model.RoleAdmin}
	results := []model.Result{
		result(1, 1, 80, 3000, 0),
		result(2, 1, 90, 3500, time.Minute),
		result(3, 1, 80, 2500, 2*time.Minute), // same score as user 1, faster
	}

	a := BuildAnalytics(testID, results, admin)

	require.Len(t, a.Entries, 3)
	assert.Equal(t, []int{2, 3, 1}, []int{a.Entries[0].UserID, a.Entries[1].UserID, a.Entries[2].UserID})
	assert.Equal(t, 1, a.Entries[0].Rank)
	assert.Equal(t, 2, a.Entries[1].Rank)
	assert.Equal(t, 3, a.Entries[2].Rank)
	assert.Equal(t, 90.0, a.TopScore)
	assert.InDelta(t, (80.0+90.0+80.0)/3, a.AverageScore, 1e-9)
}

func TestRankingUsesLatestAttemptPerUser(t *testing.T) {
	testID := uuid.New()
	admin := &model.User{ID: 99, Role: model.RoleAdmin}
	results := []model.Result{
		result(1, 1, 95, 3000, 0), // first attempt scored higher
		result(1, 2, 60, 3000, time.Hour),
		result(2, 1, 70, 3000, 0),
	}

	a := BuildAnalytics(testID, results, admin)

	require.Len(t, a.Entries, 2)
	// The latest attempt counts, even when an earlier one scored better.
	assert.Equal(t, 2, a.Entries[0].UserID)
	assert.Equal(t, 70.0, a.Entries[0].Score)
	assert.Equal(t, 1, a.Entries[1].UserID)
	assert.Equal(t, 60.0, a.Entries[1].Score)
}

func TestRankingEqualScoreAndTimeKeepsSubmissionOrder(t *testing.T) {
	testID := uuid.New()
	admin := &model.User{ID: 99, Role: model.RoleAdmin}
	results := []model.Result{
		result(1, 1, 80, 3000, 0),
		result(2, 1, 80, 3000, time.Minute),
	}

	a := BuildAnalytics(testID, results, admin)

	require.Len(t, a.Entries, 2)
	assert.Equal(t, 1, a.Entries[0].UserID)
	assert.Equal(t, 2, a.Entries[1].UserID)
}

func TestRankingStudentSeesOnlyOwnRow(t *testing.T) {
	testID := uuid.New()
	requester := &model.User{ID: 3, Role: model.RoleStudent}
	fb := &model.Feedback{Rating: 2, Comment: "too hard"}
	results := []model.Result{
		result(1, 1, 90, 3000, 0),
		result(2, 1, 85, 3000, 0),
		result(3, 1, 80, 3000, 0),
	}
	results[0].Feedback = fb

	a := BuildAnalytics(testID, results, requester)

	assert.Equal(t, 3, a.Participants)
	assert.Equal(t, 90.0, a.TopScore)
	require.NotNil(t, a.MyRank)
	assert.Equal(t, 3, a.MyRank.Rank)
	// Only the requester's own row, and no one's feedback.
	require.Len(t, a.Entries, 1)
	assert.Equal(t, 3, a.Entries[0].UserID)
	assert.Empty(t, a.Feedbacks)
}

func TestRankingStudentWithoutResult(t *testing.T) {
	testID := uuid.New()
	requester := &model.User{ID: 42, Role: model.RoleStudent}
	results := []model.Result{result(1, 1, 90, 3000, 0)}

	a := BuildAnalytics(testID, results, requester)

	assert.Equal(t, 1, a.Participants)
	assert.Nil(t, a.MyRank)
	assert.Empty(t, a.Entries)
}

func TestRankingAdminSeesFeedback(t *testing.T) {
	testID := uuid.New()
	admin := &model.User{ID: 99, Role: model.RoleAdmin}
	results := []model.Result{
		result(1, 1, 90, 3000, 0),
		result(2, 1, 85, 3000, 0),
	}
	results[1].Feedback = &model.Feedback{Rating: 5, Comment: "great"}

	a := BuildAnalytics(testID, results, admin)

	require.Len(t, a.Feedbacks, 1)
	assert.Equal(t, 2, a.Feedbacks[0].UserID)
	assert.Equal(t, 5, a.Feedbacks[0].Rating)
}

func TestRankingEmptyResults(t *testing.T) {
	a := BuildAnalytics(uuid.New(), nil, &model.User{ID: 1, Role: model.RoleStudent})

	assert.Equal(t, 0, a.Participants)
	assert.Equal(t, 0.0, a.AverageScore)
	assert.Empty(t, a.Entries)
	assert.Nil(t, a.MyRank)
}
