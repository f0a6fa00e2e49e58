package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

var entNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func student(category model.Category) *model.User {
	return &model.User{ID: 7, Role: model.RoleStudent, TargetCategory: category}
}

func visibleTest(category model.Category) *model.Test {
	return &model.Test{ID: uuid.New(), Category: category, Visible: true}
}

func TestEntitlementFreeStandaloneTest(t *testing.T) {
	ent := EvaluateEntitlement(student(model.CategoryJEE), visibleTest(model.CategoryJEE), nil, nil, 0, false, entNow)
	assert.True(t, ent.Allowed)
	assert.Equal(t, DenyNone, ent.Reason)
}

func TestEntitlementCategoryMismatch(t *testing.T) {
	ent := EvaluateEntitlement(student(model.CategoryNEET), visibleTest(model.CategoryJEE), nil, nil, 0, false, entNow)
	assert.False(t, ent.Allowed)
	assert.Equal(t, DenyCategoryMismatch, ent.Reason)
}

func TestEntitlementCategoryCaseInsensitive(t *testing.T) {
	ent := EvaluateEntitlement(student("jee"), visibleTest(model.CategoryJEE), nil, nil, 0, false, entNow)
	assert.True(t, ent.Allowed)
}

func TestEntitlementHiddenTest(t *testing.T) {
	test := visibleTest(model.CategoryJEE)
	test.Visible = false

	ent := EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 0, false, entNow)
	assert.Equal(t, DenyHidden, ent.Reason)
}

func TestEntitlementAvailabilityWindow(t *testing.T) {
	test := visibleTest(model.CategoryJEE)
	start := entNow.Add(time.Hour)
	test.StartAt = &start

	ent := EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 0, false, entNow)
	assert.Equal(t, DenyNotAvailable, ent.Reason)

	// Review of an existing result bypasses the window.
	ent = EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 1, true, entNow)
	assert.True(t, ent.Allowed)
}

func TestEntitlementExpiredTest(t *testing.T) {
	test := visibleTest(model.CategoryJEE)
	expired := entNow.Add(-time.Hour)
	test.ExpiresAt = &expired

	ent := EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 0, false, entNow)
	assert.Equal(t, DenyNotAvailable, ent.Reason)
}

func TestEntitlementPaidSeriesRequiresPurchase(t *testing.T) {
	series := &model.Series{ID: uuid.New(), Category: model.CategoryJEE, PricePaise: 49900}
	test := visibleTest(model.CategoryJEE)
	test.SeriesID = &series.ID

	ent := EvaluateEntitlement(student(model.CategoryJEE), test, series, nil, 0, false, entNow)
	assert.Equal(t, DenyRequiresPurchase, ent.Reason)
	assert.Equal(t, &series.ID, ent.SeriesID)

	purchase := &model.Purchase{UserID: 7, SeriesID: series.ID, Status: model.PurchaseStatusEnrolled}
	ent = EvaluateEntitlement(student(model.CategoryJEE), test, series, purchase, 0, false, entNow)
	assert.True(t, ent.Allowed)
}

func TestEntitlementFreeSeriesNeedsNoPurchase(t *testing.T) {
	series := &model.Series{ID: uuid.New(), Category: model.CategoryJEE, PricePaise: 0}
	test := visibleTest(model.CategoryJEE)
	test.SeriesID = &series.ID

	ent := EvaluateEntitlement(student(model.CategoryJEE), test, series, nil, 0, false, entNow)
	assert.True(t, ent.Allowed)
}

func TestEntitlementAttemptLimit(t *testing.T) {
	test := visibleTest(model.CategoryJEE)
	limit := 2
	test.MaxAttempts = &limit

	ent := EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 2, false, entNow)
	assert.Equal(t, DenyAttemptLimit, ent.Reason)

	// Review of a completed attempt is still allowed.
	ent = EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 2, true, entNow)
	assert.True(t, ent.Allowed)

	ent = EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 1, false, entNow)
	assert.True(t, ent.Allowed)
}

func TestEntitlementRefundedPurchaseDenies(t *testing.T) {
	series := &model.Series{ID: uuid.New(), Category: model.CategoryJEE, PricePaise: 49900}
	test := visibleTest(model.CategoryJEE)
	test.SeriesID = &series.ID

	// Only a record still in enrolled status grants access; a
	// status-corrected row does not.
	purchase := &model.Purchase{UserID: 7, SeriesID: series.ID, Status: "refunded"}
	ent := EvaluateEntitlement(student(model.CategoryJEE), test, series, purchase, 0, false, entNow)
	assert.False(t, ent.Allowed)
	assert.Equal(t, DenyRequiresPurchase, ent.Reason)
	assert.Equal(t, &series.ID, ent.SeriesID)
}

func TestEntitlementReviewBypassesEveryCheck(t *testing.T) {
	// A student who already attempted keeps review access even after
	// the test was hidden, the category changed, and enrollment lapsed.
	series := &model.Series{ID: uuid.New(), Category: model.CategoryJEE, PricePaise: 49900}
	test := visibleTest(model.CategoryJEE)
	test.Visible = false
	test.SeriesID = &series.ID

	ent := EvaluateEntitlement(student(model.CategoryNEET), test, series, nil, 1, true, entNow)
	assert.True(t, ent.Allowed)
	assert.True(t, ent.Review)
	assert.Equal(t, DenyNone, ent.Reason)
}

func TestEntitlementReviewOnHiddenTest(t *testing.T) {
	test := visibleTest(model.CategoryJEE)
	test.Visible = false

	ent := EvaluateEntitlement(student(model.CategoryJEE), test, nil, nil, 1, true, entNow)
	assert.True(t, ent.Allowed)
	assert.True(t, ent.Review)
}

func TestEntitlementFreshAttemptNeverGrantsReview(t *testing.T) {
	// The review paper carries answer keys, so a grant evaluated under
	// fresh-attempt rules must never come back flagged as review.
	ent := EvaluateEntitlement(student(model.CategoryJEE), visibleTest(model.CategoryJEE), nil, nil, 0, false, entNow)
	assert.True(t, ent.Allowed)
	assert.False(t, ent.Review)
}

func TestEntitlementAdminBypass(t *testing.T) {
	admin := &model.User{ID: 1, Role: model.RoleAdmin, TargetCategory: model.CategoryGATE}
	series := &model.Series{ID: uuid.New(), Category: model.CategoryJEE, PricePaise: 49900}
	test := visibleTest(model.CategoryJEE)
	test.Visible = false
	test.SeriesID = &series.ID

	ent := EvaluateEntitlement(admin, test, series, nil, 0, false, entNow)
	assert.True(t, ent.Allowed)
}

func TestEntitlementDecisionOrder(t *testing.T) {
	// Category mismatch wins over every later check.
	series := &model.Series{ID: uuid.New(), Category: model.CategoryJEE, PricePaise: 49900}
	test := visibleTest(model.CategoryJEE)
	test.Visible = false
	test.SeriesID = &series.ID

	ent := EvaluateEntitlement(student(model.CategoryNEET), test, series, nil, 5, false, entNow)
	assert.Equal(t, DenyCategoryMismatch, ent.Reason)
}
