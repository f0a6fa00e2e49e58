package handler

import (
	"errors"
	"net/http"

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

// PaymentHandler serves the series catalog and checkout flow.
type PaymentHandler struct {
	userRepo       *repository.UserRepository
	seriesRepo     *repository.SeriesRepository
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(userRepo *repository.UserRepository, seriesRepo *repository.SeriesRepository, paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		userRepo:       userRepo,
		seriesRepo:     seriesRepo,
		paymentService: paymentService,
	}
}

// ListSeries godoc
// GET /api/v1/student/series
// Lists the series catalog for the student's exam category.
func (h *PaymentHandler) ListSeries(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	series, err := h.seriesRepo.ListByCategory(c.Request.Context(), user.TargetCategory)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"series": series})
}

// CreateOrder godoc
// POST /api/v1/student/payments/orders
// Registers a gateway order for a paid series checkout.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateOrderRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	order, err := h.paymentService.CreateOrder(c.Request.Context(), claims.UserID, req.SeriesID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrSeriesNotPaid):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		default:
			response.Fail(c, http.StatusBadGateway, response.ErrOrderCreation)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"order": order})
}

// VerifyPayment godoc
// POST /api/v1/student/payments/verify
// Verifies the checkout callback signature and records the enrollment.
// Replays of an already-verified callback return the original purchase.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.VerifyPaymentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	purchase, err := h.paymentService.VerifyPayment(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureMismatch):
			response.Fail(c, http.StatusBadRequest, response.ErrPaymentVerification)
		case errors.Is(err, service.ErrOrderMismatch):
			response.Fail(c, http.StatusBadRequest, response.ErrPaymentVerification)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"purchase": purchase})
}

// EnrollFree godoc
// POST /api/v1/student/series/:id/enroll
// Enrolls the student into a free series.
func (h *PaymentHandler) EnrollFree(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	seriesID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	purchase, err := h.paymentService.EnrollFree(c.Request.Context(), claims.UserID, seriesID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSeriesIsPaid):
			response.Fail(c, http.StatusPaymentRequired, response.ErrRequiresPurchase)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"purchase": purchase})
}

// ListEnrollments godoc
// GET /api/v1/student/payments
// Lists the student's enrollment history.
func (h *PaymentHandler) ListEnrollments(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	purchases, err := h.paymentService.ListEnrollments(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"purchases": purchases})
}
