package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/preplane/preplane-backend/internal/model"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/preplane/preplane-backend/internal/response"
	"github.com/preplane/preplane-backend/internal/service"
	"github.com/preplane/preplane-backend/internal/validator"
)

// AdminTestHandler serves test and series management plus the admin
// results table.
type AdminTestHandler struct {
	testService *service.TestService
	seriesRepo  *repository.SeriesRepository
	resultRepo  *repository.ResultRepository
}

// NewAdminTestHandler creates a new AdminTestHandler.
func NewAdminTestHandler(testService *service.TestService, seriesRepo *repository.SeriesRepository, resultRepo *repository.ResultRepository) *AdminTestHandler {
	return &AdminTestHandler{
		testService: testService,
		seriesRepo:  seriesRepo,
		resultRepo:  resultRepo,
	}
}

// CreateTest godoc
// POST /api/v1/admin/tests
func (h *AdminTestHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.CreateTest(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrMissingAnswerKey) || errors.Is(err, service.ErrMissingOptions) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"questions": err.Error()})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": service.BuildAdminTest(test)})
}

// ListTests godoc
// GET /api/v1/admin/tests?page=&per_page=
func (h *AdminTestHandler) ListTests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	tests, total, err := h.testService.ListTests(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// GetTest godoc
// GET /api/v1/admin/tests/:id
// Full test including answer keys.
func (h *AdminTestHandler) GetTest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.testService.GetTest(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": service.BuildAdminTest(test)})
}

// UpdateTest godoc
// PUT /api/v1/admin/tests/:id
func (h *AdminTestHandler) UpdateTest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.UpdateTest(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrMissingAnswerKey) || errors.Is(err, service.ErrMissingOptions):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"questions": err.Error()})
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": service.BuildAdminTest(test)})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:id
// Removes a test and its questions. Graded results survive: their
// metadata was frozen at submission time.
func (h *AdminTestHandler) DeleteTest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.DeleteTest(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// CreateSeries godoc
// POST /api/v1/admin/series
func (h *AdminTestHandler) CreateSeries(c *gin.Context) {
	var req model.CreateSeriesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	series := &model.Series{
		Title:      req.Title,
		Category:   model.Category(req.Category),
		PricePaise: req.PricePaise,
	}
	if err := h.seriesRepo.Create(c.Request.Context(), series); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"series": series})
}

// ListTestResults godoc
// GET /api/v1/admin/tests/:id/results
// Every stored result of a test, all attempts included.
func (h *AdminTestHandler) ListTestResults(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.resultRepo.ListByTest(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}
