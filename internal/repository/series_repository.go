package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/preplane/preplane-backend/internal/model"
)

// SeriesRepository handles test series data access.
type SeriesRepository struct {
	pool *pgxpool.Pool
}

// NewSeriesRepository creates a new SeriesRepository.
func NewSeriesRepository(pool *pgxpool.Pool) *SeriesRepository {
	return &SeriesRepository{pool: pool}
}

// GetByID retrieves a series by its UUID.
func (r *SeriesRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Series, error) {
	s := &model.Series{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, category, price_paise, created_at, updated_at
		 FROM series WHERE id = $1`, id,
	).Scan(&s.ID, &s.Title, &s.Category, &s.PricePaise, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new series.
func (r *SeriesRepository) Create(ctx context.Context, s *model.Series) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO series (title, category, price_paise)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		s.Title, s.Category, s.PricePaise,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// ListByCategory retrieves series for a category, newest first.
// Pass an empty category to list all.
func (r *SeriesRepository) ListByCategory(ctx context.Context, category model.Category) ([]model.Series, error) {
	query := `SELECT id, title, category, price_paise, created_at, updated_at FROM series`
	var args []interface{}
	if category != "" {
		query += ` WHERE UPPER(category) = UPPER($1)`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Series
	for rows.Next() {
		var s model.Series
		if err := rows.Scan(&s.ID, &s.Title, &s.Category, &s.PricePaise, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
