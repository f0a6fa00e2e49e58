package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/preplane/preplane-backend/internal/middleware"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/preplane/preplane-backend/internal/response"
	"github.com/preplane/preplane-backend/internal/service"
)

// AnalyticsHandler serves the ranking and aggregate views of a test.
type AnalyticsHandler struct {
	userRepo       *repository.UserRepository
	testRepo       *repository.TestRepository
	rankingService *service.RankingService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(userRepo *repository.UserRepository, testRepo *repository.TestRepository, rankingService *service.RankingService) *AnalyticsHandler {
	return &AnalyticsHandler{
		userRepo:       userRepo,
		testRepo:       testRepo,
		rankingService: rankingService,
	}
}

// GetTestAnalytics godoc
// GET /api/v1/tests/:id/analytics
// Returns the requester-appropriate ranking view. Students get
// aggregates plus their own rank; admins get the full table and
// feedback. A scheduled result policy holds ranks back from students
// until declaration time.
func (h *AnalyticsHandler) GetTestAnalytics(c *gin.Context) {
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

	user, err := h.userRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	test, err := h.testRepo.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if !user.IsAdmin() && !answersVisible(test, time.Now()) {
		response.Fail(c, http.StatusForbidden, response.ErrTestNotAvailable)
		return
	}

	analytics, err := h.rankingService.GetAnalytics(c.Request.Context(), user, testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"analytics": analytics})
}
