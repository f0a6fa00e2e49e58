package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/preplane/preplane-backend/internal/middleware"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/preplane/preplane-backend/internal/response"
	"github.com/preplane/preplane-backend/internal/service"
	"github.com/preplane/preplane-backend/internal/validator"
)

// StudentPortalHandler serves the student-facing test lifecycle: lobby
// listing, start, submit, results, and feedback.
type StudentPortalHandler struct {
	userRepo       *repository.UserRepository
	resultRepo     *repository.ResultRepository
	testService    *service.TestService
	entitlement    *service.EntitlementService
	attemptService *service.AttemptService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	userRepo *repository.UserRepository,
	resultRepo *repository.ResultRepository,
	testService *service.TestService,
	entitlement *service.EntitlementService,
	attemptService *service.AttemptService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		userRepo:       userRepo,
		resultRepo:     resultRepo,
		testService:    testService,
		entitlement:    entitlement,
		attemptService: attemptService,
	}
}

// lobbyEntry is one test row in the student lobby, overlaid with the
// student's own attempt history.
type lobbyEntry struct {
	Test        model.Test `json:"test"`
	Attempts    int        `json:"attempts"`
	LatestScore *float64   `json:"latest_score,omitempty"`
	Available   bool       `json:"available"`
}

// ListTests godoc
// GET /api/v1/student/tests
// Lists visible tests in the student's category, with attempt overlay.
func (h *StudentPortalHandler) ListTests(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	tests, err := h.testService.ListForCategory(c.Request.Context(), user.TargetCategory)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	myResults, err := h.resultRepo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	type overlay struct {
		attempts int
		latest   *model.Result
	}
	byTest := make(map[uuid.UUID]*overlay, len(myResults))
	for i := range myResults {
		r := &myResults[i]
		o := byTest[r.TestID]
		if o == nil {
			o = &overlay{}
			byTest[r.TestID] = o
		}
		o.attempts++
		if o.latest == nil || r.AttemptNumber > o.latest.AttemptNumber {
			o.latest = r
		}
	}

	now := time.Now()
	entries := make([]lobbyEntry, 0, len(tests))
	for _, t := range tests {
		entry := lobbyEntry{Test: t, Available: t.AvailableAt(now)}
		if o := byTest[t.ID]; o != nil {
			entry.Attempts = o.attempts
			score := o.latest.Score
			entry.LatestScore = &score
		}
		entries = append(entries, entry)
	}

	response.Success(c, http.StatusOK, gin.H{"tests": entries})
}

// StartTest godoc
// GET /api/v1/student/tests/:id/paper
// Evaluates the entitlement gate and, on success, returns the paper.
// ?review=true revisits an already-attempted test; the correct answers
// are included only once the test's result policy declares them.
func (h *StudentPortalHandler) StartTest(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	review := c.Query("review") == "true"
	test, ent, err := h.entitlement.Check(c.Request.Context(), user, testID, review)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !ent.Allowed {
		failEntitlement(c, ent)
		return
	}

	// ent.Review is the effective mode: the gate demotes a review
	// request from a student with no stored result to a fresh attempt.
	// Only the effective mode may ever reveal correct answers.
	withAnswers := ent.Review && answersVisible(test, time.Now())
	paper, err := h.testService.GetPaper(c.Request.Context(), testID, withAnswers)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if ent.Review {
		paper.Review = true
	}

	if !ent.Review {
		duration := time.Duration(test.DurationMinutes) * time.Minute
		h.attemptService.MarkStarted(c.Request.Context(), testID, user.ID, duration)
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// SubmitTest godoc
// POST /api/v1/student/tests/:id/submit
// Grades and durably stores the attempt, returning the full result.
func (h *StudentPortalHandler) SubmitTest(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.SubmitTest(c.Request.Context(), user, testID, &req)
	if err != nil {
		var denied *service.DeniedError
		switch {
		case errors.As(err, &denied):
			failEntitlement(c, service.Entitlement{Reason: denied.Reason, SeriesID: denied.SeriesID})
		case errors.Is(err, service.ErrLateSubmission):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrLateSubmission)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrSubmitNotDurable)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ListMyResults godoc
// GET /api/v1/student/results
// Lists the student's results across all tests, newest first.
func (h *StudentPortalHandler) ListMyResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.resultRepo.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// GetResult godoc
// GET /api/v1/student/results/:id
// Returns one owned result in full detail. A result whose test has since
// been deleted is still served: its metadata was frozen at submission.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.resultRepo.GetByID(c.Request.Context(), resultID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if result.UserID != claims.UserID {
		// Do not leak existence of someone else's result.
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// SubmitFeedback godoc
// POST /api/v1/student/tests/:id/feedback
// Attaches the one-shot rating to the student's latest attempt.
func (h *StudentPortalHandler) SubmitFeedback(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.FeedbackRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err = h.attemptService.AttachFeedback(c.Request.Context(), claims.UserID, testID, model.Feedback{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoResult):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrFeedbackRepeated):
			response.Fail(c, http.StatusConflict, response.ErrFeedbackSubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// currentUser loads the authenticated user for entitlement decisions.
// Claims alone are not enough: category or role may have changed since
// the token was issued, and access checks use current state.
func (h *StudentPortalHandler) currentUser(c *gin.Context) (*model.User, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return nil, false
	}
	return user, true
}

// failEntitlement maps a deny reason onto the API error vocabulary. A
// payment denial carries the series to purchase.
func failEntitlement(c *gin.Context, ent service.Entitlement) {
	switch ent.Reason {
	case service.DenyCategoryMismatch:
		response.Fail(c, http.StatusForbidden, response.ErrCategoryMismatch)
	case service.DenyHidden:
		response.Fail(c, http.StatusForbidden, response.ErrTestHidden)
	case service.DenyNotAvailable:
		response.Fail(c, http.StatusForbidden, response.ErrTestNotAvailable)
	case service.DenyRequiresPurchase:
		var fields map[string]string
		if ent.SeriesID != nil {
			fields = map[string]string{"series_id": ent.SeriesID.String()}
		}
		response.FailWithFields(c, http.StatusPaymentRequired, response.ErrRequiresPurchase, fields)
	case service.DenyAttemptLimit:
		response.Fail(c, http.StatusForbidden, response.ErrAttemptLimit)
	default:
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	}
}

// answersVisible reports whether the test's result policy currently
// permits revealing correct answers on the review paper.
func answersVisible(test *model.Test, now time.Time) bool {
	if test.ResultPolicy != model.ResultPolicyScheduled {
		return true
	}
	return test.ResultDeclaredAt != nil && !now.Before(*test.ResultDeclaredAt)
}
