package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/preplane/preplane-backend/internal/model"
)

// PurchaseRepository handles enrollment record data access.
type PurchaseRepository struct {
	pool *pgxpool.Pool
}

// NewPurchaseRepository creates a new PurchaseRepository.
func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

// GetByUserAndSeries retrieves the enrollment record for a (user, series)
// pair, if any.
func (r *PurchaseRepository) GetByUserAndSeries(ctx context.Context, userID int, seriesID uuid.UUID) (*model.Purchase, error) {
	p := &model.Purchase{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, series_id, amount_paise, order_id, payment_id, status, created_at
		 FROM purchases
		 WHERE user_id = $1 AND series_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`, userID, seriesID,
	).Scan(&p.ID, &p.UserID, &p.SeriesID, &p.AmountPaise, &p.OrderID, &p.PaymentID, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts an enrollment record idempotently per gateway order.
// Two concurrent verifications of the same order produce exactly one
// row; the conditional insert returns pgx.ErrNoRows on the losing call.
func (r *PurchaseRepository) Create(ctx context.Context, p *model.Purchase) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO purchases (user_id, series_id, amount_paise, order_id, payment_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (order_id) DO NOTHING
		 RETURNING id, created_at`,
		p.UserID, p.SeriesID, p.AmountPaise, p.OrderID, p.PaymentID, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
}

// CreatePendingOrder records a gateway order together with the user,
// series, and amount it was created for.
func (r *PurchaseRepository) CreatePendingOrder(ctx context.Context, o *model.PendingOrder) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO payment_orders (order_id, user_id, series_id, amount_paise)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		o.OrderID, o.UserID, o.SeriesID, o.AmountPaise,
	).Scan(&o.CreatedAt)
}

// GetPendingOrder retrieves the recorded order, or pgx.ErrNoRows for an
// order this service never created.
func (r *PurchaseRepository) GetPendingOrder(ctx context.Context, orderID string) (*model.PendingOrder, error) {
	o := &model.PendingOrder{}
	err := r.pool.QueryRow(ctx,
		`SELECT order_id, user_id, series_id, amount_paise, created_at
		 FROM payment_orders WHERE order_id = $1`, orderID,
	).Scan(&o.OrderID, &o.UserID, &o.SeriesID, &o.AmountPaise, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser retrieves all enrollments for a user, newest first.
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID int) ([]model.Purchase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, series_id, amount_paise, order_id, payment_id, status, created_at
		 FROM purchases WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.SeriesID, &p.AmountPaise, &p.OrderID, &p.PaymentID, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
