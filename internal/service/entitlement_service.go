package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/rs/zerolog"
)

// DenyReason explains why a start request was refused. The zero value
// means access is granted.
type DenyReason string

const (
	DenyNone             DenyReason = ""
	DenyCategoryMismatch DenyReason = "category_mismatch"
	DenyHidden           DenyReason = "hidden"
	DenyNotAvailable     DenyReason = "not_available"
	DenyRequiresPurchase DenyReason = "requires_purchase"
	DenyAttemptLimit     DenyReason = "attempt_limit"
)

// DeniedError carries a failed entitlement through an error return so
// services that re-check access at submit time can surface the reason.
type DeniedError struct {
	Reason   DenyReason
	SeriesID *uuid.UUID
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("entitlement denied: %s", e.Reason)
}

// Entitlement is the outcome of an access evaluation. Review reports
// the effective mode: it is true only when the grant rests on an
// existing result, never on what the caller asked for. When access is
// denied because the test is paid, SeriesID points the client at the
// series to purchase.
type Entitlement struct {
	Allowed  bool
	Review   bool
	Reason   DenyReason
	SeriesID *uuid.UUID
}

// EvaluateEntitlement decides whether a student may start a test. It is
// a pure function over already-loaded state so the decision order is
// auditable: category, visibility, availability window, payment, then
// attempt limit. A nil series means the test is standalone and free.
// The review flag must only be set when the student already holds a
// result for this test; it grants access outright, skipping every
// check: a student who already attempted can always revisit their own
// paper, even if visibility, category, or enrollment changed since.
func EvaluateEntitlement(user *model.User, test *model.Test, series *model.Series, purchase *model.Purchase, attemptCount int, review bool, now time.Time) Entitlement {
	deny := func(reason DenyReason) Entitlement {
		e := Entitlement{Reason: reason}
		if test.SeriesID != nil {
			e.SeriesID = test.SeriesID
		}
		return e
	}

	if user.IsAdmin() {
		return Entitlement{Allowed: true, Review: review}
	}
	if review {
		return Entitlement{Allowed: true, Review: true}
	}

	if !test.Category.EqualsFold(user.TargetCategory) {
		return deny(DenyCategoryMismatch)
	}
	if !test.Visible {
		return deny(DenyHidden)
	}
	if !test.AvailableAt(now) {
		return deny(DenyNotAvailable)
	}
	if series != nil && series.IsPaid() && (purchase == nil || !purchase.IsEnrolled()) {
		return deny(DenyRequiresPurchase)
	}
	if test.MaxAttempts != nil && attemptCount >= *test.MaxAttempts {
		return deny(DenyAttemptLimit)
	}
	return Entitlement{Allowed: true}
}

// EntitlementService loads the state an entitlement decision needs and
// evaluates it. Any lookup failure denies access: an infrastructure
// error must never grant a paid test for free.
type EntitlementService struct {
	testRepo     *repository.TestRepository
	seriesRepo   *repository.SeriesRepository
	purchaseRepo *repository.PurchaseRepository
	resultRepo   *repository.ResultRepository
	logger       zerolog.Logger
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(
	testRepo *repository.TestRepository,
	seriesRepo *repository.SeriesRepository,
	purchaseRepo *repository.PurchaseRepository,
	resultRepo *repository.ResultRepository,
	logger zerolog.Logger,
) *EntitlementService {
	return &EntitlementService{
		testRepo:     testRepo,
		seriesRepo:   seriesRepo,
		purchaseRepo: purchaseRepo,
		resultRepo:   resultRepo,
		logger:       logger.With().Str("component", "entitlement_service").Logger(),
	}
}

// Check evaluates whether user may start (review=false) or revisit
// (review=true) the given test. Review is granted only against an
// actual stored result; callers must trust the returned
// Entitlement.Review, not the flag they passed in. The loaded test is
// returned so callers do not fetch it twice.
func (s *EntitlementService) Check(ctx context.Context, user *model.User, testID uuid.UUID, review bool) (*model.Test, Entitlement, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, Entitlement{}, fmt.Errorf("load test: %w", err)
	}

	attemptCount := 0
	if !user.IsAdmin() {
		attemptCount, err = s.resultRepo.CountByTestAndUser(ctx, testID, user.ID)
		if err != nil {
			return nil, Entitlement{}, fmt.Errorf("count attempts: %w", err)
		}
	}
	if review && attemptCount == 0 {
		// No result to review; fall back to the stricter fresh-attempt rules.
		review = false
	}

	// Review access rests solely on the existing result; the series and
	// enrollment lookups only matter on the fresh-attempt path.
	var series *model.Series
	var purchase *model.Purchase
	if !review {
		if test.SeriesID != nil {
			series, err = s.seriesRepo.GetByID(ctx, *test.SeriesID)
			if err != nil {
				// A dangling series reference on a paid path denies access.
				return nil, Entitlement{}, fmt.Errorf("load series: %w", err)
			}
		}
		if series != nil && series.IsPaid() && !user.IsAdmin() {
			purchase, err = s.purchaseRepo.GetByUserAndSeries(ctx, user.ID, series.ID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				s.logger.Error().Err(err).
					Int("user_id", user.ID).
					Str("series_id", series.ID.String()).
					Msg("purchase lookup failed, denying access")
				return nil, Entitlement{}, fmt.Errorf("load purchase: %w", err)
			}
		}
	}

	ent := EvaluateEntitlement(user, test, series, purchase, attemptCount, review, time.Now())
	return test, ent, nil
}
