package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/preplane/preplane-backend/internal/model"
)

// ResultRepository handles result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const resultColumns = `id, test_id, user_id, attempt_number, test_title, test_subject,
	total_marks, score, accuracy, correct_count, wrong_count, total_questions,
	time_taken_seconds, submitted_at, attempts, feedback_rating, feedback_comment`

func scanResult(row pgx.Row) (*model.Result, error) {
	res := &model.Result{}
	var attempts []byte
	var rating *int
	var comment *string
	err := row.Scan(&res.ID, &res.TestID, &res.UserID, &res.AttemptNumber,
		&res.TestTitle, &res.TestSubject, &res.TotalMarks, &res.Score, &res.Accuracy,
		&res.CorrectCount, &res.WrongCount, &res.TotalQuestions,
		&res.TimeTakenSeconds, &res.SubmittedAt, &attempts, &rating, &comment)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attempts, &res.Attempts); err != nil {
		return nil, fmt.Errorf("unmarshal attempts: %w", err)
	}
	if rating != nil {
		fb := &model.Feedback{Rating: *rating}
		if comment != nil {
			fb.Comment = *comment
		}
		res.Feedback = fb
	}
	return res, nil
}

// Create inserts a result conditionally: at most one row may exist per
// (test, user, attempt) tuple. A concurrent duplicate submission loses
// the conditional insert and surfaces as pgx.ErrNoRows.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	attempts, err := json.Marshal(res.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}

	var rating *int
	var comment *string
	if res.Feedback != nil {
		rating = &res.Feedback.Rating
		if res.Feedback.Comment != "" {
			comment = &res.Feedback.Comment
		}
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO results (test_id, user_id, attempt_number, test_title, test_subject,
		                      total_marks, score, accuracy, correct_count, wrong_count,
		                      total_questions, time_taken_seconds, attempts,
		                      feedback_rating, feedback_comment)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (test_id, user_id, attempt_number) DO NOTHING
		 RETURNING id, submitted_at`,
		res.TestID, res.UserID, res.AttemptNumber, res.TestTitle, res.TestSubject,
		res.TotalMarks, res.Score, res.Accuracy, res.CorrectCount, res.WrongCount,
		res.TotalQuestions, res.TimeTakenSeconds, attempts, rating, comment,
	).Scan(&res.ID, &res.SubmittedAt)
}

// GetByID retrieves a single result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = $1`, id))
}

// GetLatestByTestAndUser retrieves the most recent attempt for a
// (test, user) pair.
func (r *ResultRepository) GetLatestByTestAndUser(ctx context.Context, testID uuid.UUID, userID int) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE test_id = $1 AND user_id = $2
		 ORDER BY attempt_number DESC
		 LIMIT 1`, testID, userID))
}

// CountByTestAndUser returns how many attempts a user has made at a test.
func (r *ResultRepository) CountByTestAndUser(ctx context.Context, testID uuid.UUID, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM results WHERE test_id = $1 AND user_id = $2`,
		testID, userID).Scan(&n)
	return n, err
}

// ListByTest retrieves all results for a test in submission order,
// full rows included: the admin results table needs the per-question
// attempt detail alongside the aggregates ranking uses.
func (r *ResultRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE test_id = $1
		 ORDER BY submitted_at ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectResults(rows)
}

// ListByUser retrieves all results owned by a user, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID int) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectResults(rows)
}

func collectResults(rows pgx.Rows) ([]model.Result, error) {
	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// AttachFeedback records the one-shot feedback on the most recent
// attempt for a (test, user) pair. It only succeeds when no feedback
// was recorded yet; pgx.ErrNoRows signals it was already given.
func (r *ResultRepository) AttachFeedback(ctx context.Context, testID uuid.UUID, userID int, fb model.Feedback) error {
	var id uuid.UUID
	return r.pool.QueryRow(ctx,
		`UPDATE results SET feedback_rating = $1, feedback_comment = $2
		 WHERE id = (
		     SELECT id FROM results
		     WHERE test_id = $3 AND user_id = $4
		     ORDER BY attempt_number DESC
		     LIMIT 1
		 ) AND feedback_rating IS NULL
		 RETURNING id`,
		fb.Rating, fb.Comment, testID, userID,
	).Scan(&id)
}
