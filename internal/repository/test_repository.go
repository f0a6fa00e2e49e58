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

// TestRepository handles test and question data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, series_id, title, subject, category, duration_minutes, visible,
	start_at, end_at, expires_at, max_attempts, result_policy, result_declared_at,
	created_at, updated_at`

func scanTest(row pgx.Row) (*model.Test, error) {
	t := &model.Test{}
	err := row.Scan(&t.ID, &t.SeriesID, &t.Title, &t.Subject, &t.Category, &t.DurationMinutes,
		&t.Visible, &t.StartAt, &t.EndAt, &t.ExpiresAt, &t.MaxAttempts,
		&t.ResultPolicy, &t.ResultDeclaredAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a test without its questions.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// GetWithQuestions retrieves a test including its ordered question list.
func (r *TestRepository) GetWithQuestions(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	questions, err := r.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Questions = questions
	return t, nil
}

// ListVisibleByCategory retrieves visible tests matching a category
// (case-insensitive), newest first. Pass an empty category for all.
func (r *TestRepository) ListVisibleByCategory(ctx context.Context, category model.Category) ([]model.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests WHERE visible = TRUE`
	var args []interface{}
	if category != "" {
		query += ` AND UPPER(category) = UPPER($1)`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTests(rows)
}

// ListPaginated retrieves all tests for the admin console.
func (r *TestRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Test, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tests, err := collectTests(rows)
	if err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}

func collectTests(rows pgx.Rows) ([]model.Test, error) {
	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// Create inserts a new test and its questions in one transaction.
// Question IDs must already be arena-assigned by the caller.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO tests (series_id, title, subject, category, duration_minutes, visible,
		                    start_at, end_at, expires_at, max_attempts, result_policy, result_declared_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		t.SeriesID, t.Title, t.Subject, t.Category, t.DurationMinutes, t.Visible,
		t.StartAt, t.EndAt, t.ExpiresAt, t.MaxAttempts, t.ResultPolicy, t.ResultDeclaredAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}

	// IDs depend on the generated test UUID, so they are assigned here
	// — once — and persisted with the first save.
	for i := range t.Questions {
		t.Questions[i].TestID = t.ID
		t.Questions[i].Position = i
		if t.Questions[i].ID == "" {
			t.Questions[i].ID = model.QuestionID(t.ID, i)
		}
	}

	if err := insertQuestions(ctx, tx, t.Questions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update modifies a test's metadata and, when questions is non-nil,
// replaces its question list inside the same transaction.
func (r *TestRepository) Update(ctx context.Context, t *model.Test, replaceQuestions bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE tests
		 SET title = $1, subject = $2, duration_minutes = $3, visible = $4,
		     start_at = $5, end_at = $6, expires_at = $7, max_attempts = $8,
		     result_policy = $9, result_declared_at = $10, updated_at = NOW()
		 WHERE id = $11`,
		t.Title, t.Subject, t.DurationMinutes, t.Visible,
		t.StartAt, t.EndAt, t.ExpiresAt, t.MaxAttempts,
		t.ResultPolicy, t.ResultDeclaredAt, t.ID)
	if err != nil {
		return err
	}

	if replaceQuestions {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, t.ID); err != nil {
			return err
		}
		for i := range t.Questions {
			t.Questions[i].TestID = t.ID
			t.Questions[i].Position = i
			t.Questions[i].ID = model.QuestionID(t.ID, i)
		}
		if err := insertQuestions(ctx, tx, t.Questions); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Delete removes a test; its questions cascade. Results referencing it
// survive as orphans and keep their frozen metadata.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}

func insertQuestions(ctx context.Context, tx pgx.Tx, questions []model.Question) error {
	for i := range questions {
		q := &questions[i]

		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		key, err := json.Marshal(q.Key)
		if err != nil {
			return fmt.Errorf("marshal answer key: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO questions (id, test_id, position, prompt, options, kind, answer_key,
			                        marks, negative_marks, subject, topic)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			q.ID, q.TestID, q.Position, q.Prompt, options, q.KeyKind, key,
			q.Marks, q.NegativeMarks, q.Subject, q.Topic)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *TestRepository) listQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, position, prompt, options, kind, answer_key,
		        marks, negative_marks, subject, topic
		 FROM questions WHERE test_id = $1
		 ORDER BY position ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options, rawKey []byte
		if err := rows.Scan(&q.ID, &q.TestID, &q.Position, &q.Prompt, &options, &q.KeyKind, &rawKey,
			&q.Marks, &q.NegativeMarks, &q.Subject, &q.Topic); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		key, err := decodeAnswerKey(q.KeyKind, rawKey)
		if err != nil {
			return nil, fmt.Errorf("decode answer key for %s: %w", q.ID, err)
		}
		q.Key = key
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// decodeAnswerKey rebuilds the typed grading rule from its stored kind
// and JSON body.
func decodeAnswerKey(kind model.QuestionKind, raw []byte) (model.AnswerKey, error) {
	switch kind {
	case model.KindSingleChoice:
		var k model.SingleChoiceKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	case model.KindMultiChoice:
		var k model.MultiChoiceKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	case model.KindInteger:
		var k model.IntegerKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	default:
		return nil, fmt.Errorf("unknown question kind %q", kind)
	}
}
