package model

import (
	"time"

	"github.com/google/uuid"
)

// Series is a named bundle of tests sold or enrolled into as a unit.
// A series with PricePaise == 0 is free: any eligible student may start
// its tests without an enrollment record.
type Series struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Category   Category  `json:"category"`
	PricePaise int64     `json:"price_paise"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsPaid reports whether starting tests in this series requires an enrollment.
func (s *Series) IsPaid() bool {
	return s.PricePaise > 0
}

// CreateSeriesRequest is the payload for creating a test series.
type CreateSeriesRequest struct {
	Title      string `json:"title" binding:"required,min=3,max=255"`
	Category   string `json:"category" binding:"required,oneof=JEE NEET GATE CAT UPSC BANKING"`
	PricePaise int64  `json:"price_paise" binding:"min=0"`
}
