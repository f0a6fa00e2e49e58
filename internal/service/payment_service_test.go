package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestMatchPendingOrder(t *testing.T) {
	seriesID := uuid.New()
	order := &model.PendingOrder{
		OrderID:     "order_abc",
		UserID:      7,
		SeriesID:    seriesID,
		AmountPaise: 49900,
	}

	assert.NoError(t, MatchPendingOrder(order, 7, seriesID))
}

func TestMatchPendingOrderRejectsForeignSeries(t *testing.T) {
	// A valid signature over a cheap order must not enroll the caller
	// into whatever series the callback body names.
	order := &model.PendingOrder{
		OrderID:     "order_abc",
		UserID:      7,
		SeriesID:    uuid.New(),
		AmountPaise: 9900,
	}

	err := MatchPendingOrder(order, 7, uuid.New())
	assert.ErrorIs(t, err, ErrOrderMismatch)
}

func TestMatchPendingOrderRejectsForeignUser(t *testing.T) {
	seriesID := uuid.New()
	order := &model.PendingOrder{
		OrderID:     "order_abc",
		UserID:      7,
		SeriesID:    seriesID,
		AmountPaise: 49900,
	}

	err := MatchPendingOrder(order, 8, seriesID)
	assert.ErrorIs(t, err, ErrOrderMismatch)
}
