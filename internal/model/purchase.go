package model

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseStatus enumerates enrollment record states.
type PurchaseStatus string

const (
	PurchaseStatusEnrolled PurchaseStatus = "enrolled"
)

// Purchase is an enrollment record granting a user access to a series.
// Created once per successful free enroll or verified paid transaction,
// keyed idempotently on the gateway order ID. Never mutated after
// creation except status corrections.
type Purchase struct {
	ID          uuid.UUID      `json:"id"`
	UserID      int            `json:"user_id"`
	SeriesID    uuid.UUID      `json:"series_id"`
	AmountPaise int64          `json:"amount_paise"`
	OrderID     string         `json:"order_id"`
	PaymentID   string         `json:"payment_id,omitempty"`
	Status      PurchaseStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IsEnrolled reports whether this record currently grants series
// access. Status corrections (refunds, chargebacks) leave the row in
// place but revoke the grant.
func (p *Purchase) IsEnrolled() bool {
	return p.Status == PurchaseStatusEnrolled
}

// PendingOrder binds a gateway order to the user, series, and amount it
// was created for. Verification must match the callback against this
// record before an enrollment is written.
type PendingOrder struct {
	OrderID     string    `json:"order_id"`
	UserID      int       `json:"user_id"`
	SeriesID    uuid.UUID `json:"series_id"`
	AmountPaise int64     `json:"amount_paise"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateOrderRequest is the payload for starting a series checkout.
type CreateOrderRequest struct {
	SeriesID uuid.UUID `json:"series_id" binding:"required"`
}

// VerifyPaymentRequest carries the gateway callback triple. The
// signature is an HMAC over (orderID, paymentID) with the shared secret.
type VerifyPaymentRequest struct {
	SeriesID  uuid.UUID `json:"series_id" binding:"required"`
	OrderID   string    `json:"order_id" binding:"required"`
	PaymentID string    `json:"payment_id" binding:"required"`
	Signature string    `json:"signature" binding:"required"`
}
