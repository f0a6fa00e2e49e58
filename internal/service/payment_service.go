package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/preplane/preplane-backend/internal/payment"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Payment errors.
var (
	ErrSignatureMismatch = errors.New("payment signature verification failed")
	ErrSeriesNotPaid     = errors.New("series does not require payment")
	ErrSeriesIsPaid      = errors.New("series requires payment")
	ErrOrderMismatch     = errors.New("order was not created for this user and series")
)

// PaymentOrder is what the client needs to open the provider checkout.
type PaymentOrder struct {
	OrderID     string    `json:"order_id"`
	SeriesID    uuid.UUID `json:"series_id"`
	AmountPaise int64     `json:"amount_paise"`
	Currency    string    `json:"currency"`
	KeyID       string    `json:"key_id"`
}

// PaymentService handles the series checkout flow: order creation with
// the gateway, callback signature verification, and idempotent
// enrollment. Free series enroll directly without touching the gateway.
type PaymentService struct {
	seriesRepo   *repository.SeriesRepository
	purchaseRepo *repository.PurchaseRepository
	gateway      payment.Gateway
	keyID        string
	keySecret    string
	logger       zerolog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	seriesRepo *repository.SeriesRepository,
	purchaseRepo *repository.PurchaseRepository,
	gateway payment.Gateway,
	keyID, keySecret string,
	logger zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		seriesRepo:   seriesRepo,
		purchaseRepo: purchaseRepo,
		gateway:      gateway,
		keyID:        keyID,
		keySecret:    keySecret,
		logger:       logger.With().Str("component", "payment_service").Logger(),
	}
}

// CreateOrder registers a gateway order for a paid series.
func (s *PaymentService) CreateOrder(ctx context.Context, userID int, seriesID uuid.UUID) (*PaymentOrder, error) {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	if !series.IsPaid() {
		return nil, ErrSeriesNotPaid
	}

	receipt := fmt.Sprintf("u%d-%s", userID, seriesID)
	orderID, err := s.gateway.CreateOrder(ctx, series.PricePaise, receipt)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	// Record what this order was created for; verification refuses any
	// callback that names a different user or series.
	pending := &model.PendingOrder{
		OrderID:     orderID,
		UserID:      userID,
		SeriesID:    seriesID,
		AmountPaise: series.PricePaise,
	}
	if err := s.purchaseRepo.CreatePendingOrder(ctx, pending); err != nil {
		return nil, fmt.Errorf("store pending order: %w", err)
	}

	s.logger.Info().
		Int("user_id", userID).
		Str("series_id", seriesID.String()).
		Str("order_id", orderID).
		Int64("amount_paise", series.PricePaise).
		Msg("payment order created")

	return &PaymentOrder{
		OrderID:     orderID,
		SeriesID:    seriesID,
		AmountPaise: series.PricePaise,
		Currency:    "INR",
		KeyID:       s.keyID,
	}, nil
}

// MatchPendingOrder checks a verified callback against the recorded
// order. The signature only proves the gateway saw (orderID, paymentID);
// it says nothing about which series the client claims to have paid for,
// so the binding recorded at order creation is the authority.
func MatchPendingOrder(order *model.PendingOrder, userID int, seriesID uuid.UUID) error {
	if order.UserID != userID || order.SeriesID != seriesID {
		return ErrOrderMismatch
	}
	return nil
}

// VerifyPayment checks the gateway callback signature, matches the
// callback against the pending order recorded at creation, and records
// the enrollment. The purchase insert is keyed on the order ID, so
// replaying the same verified callback enrolls exactly once and
// returns the original purchase.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID int, req *model.VerifyPaymentRequest) (*model.Purchase, error) {
	if !payment.VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.keySecret) {
		s.logger.Warn().
			Int("user_id", userID).
			Str("order_id", req.OrderID).
			Msg("payment signature verification failed")
		return nil, ErrSignatureMismatch
	}

	order, err := s.purchaseRepo.GetPendingOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A signed callback for an order this service never created.
			s.logger.Warn().
				Int("user_id", userID).
				Str("order_id", req.OrderID).
				Msg("verified callback for unknown order")
			return nil, ErrOrderMismatch
		}
		return nil, fmt.Errorf("load pending order: %w", err)
	}
	if err := MatchPendingOrder(order, userID, req.SeriesID); err != nil {
		s.logger.Warn().
			Int("user_id", userID).
			Str("order_id", req.OrderID).
			Str("claimed_series_id", req.SeriesID.String()).
			Str("order_series_id", order.SeriesID.String()).
			Msg("callback does not match the recorded order")
		return nil, err
	}

	purchase := &model.Purchase{
		UserID:      order.UserID,
		SeriesID:    order.SeriesID,
		AmountPaise: order.AmountPaise,
		OrderID:     order.OrderID,
		PaymentID:   req.PaymentID,
		Status:      model.PurchaseStatusEnrolled,
	}
	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Replayed callback; the original enrollment stands.
			existing, gerr := s.purchaseRepo.GetByUserAndSeries(ctx, userID, order.SeriesID)
			if gerr != nil {
				return nil, fmt.Errorf("load existing purchase: %w", gerr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("store purchase: %w", err)
	}

	s.logger.Info().
		Int("user_id", userID).
		Str("series_id", order.SeriesID.String()).
		Str("order_id", order.OrderID).
		Msg("enrollment recorded")
	return purchase, nil
}

// EnrollFree records an enrollment for a free series without any
// gateway round trip. The synthetic order ID keeps enrollment
// idempotent per (user, series).
func (s *PaymentService) EnrollFree(ctx context.Context, userID int, seriesID uuid.UUID) (*model.Purchase, error) {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	if series.IsPaid() {
		return nil, ErrSeriesIsPaid
	}

	purchase := &model.Purchase{
		UserID:   userID,
		SeriesID: series.ID,
		OrderID:  fmt.Sprintf("free-u%d-%s", userID, series.ID),
		Status:   model.PurchaseStatusEnrolled,
	}
	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, gerr := s.purchaseRepo.GetByUserAndSeries(ctx, userID, series.ID)
			if gerr != nil {
				return nil, fmt.Errorf("load existing enrollment: %w", gerr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("store enrollment: %w", err)
	}
	return purchase, nil
}

// ListEnrollments returns a user's enrollment history.
func (s *PaymentService) ListEnrollments(ctx context.Context, userID int) ([]model.Purchase, error) {
	return s.purchaseRepo.ListByUser(ctx, userID)
}
