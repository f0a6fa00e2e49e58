package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/preplane/preplane-backend/internal/config"
	"github.com/preplane/preplane-backend/internal/handler"
	"github.com/preplane/preplane-backend/internal/middleware"
	"github.com/preplane/preplane-backend/internal/response"
	"github.com/preplane/preplane-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Analytics     *handler.AnalyticsHandler
	Payment       *handler.PaymentHandler
	AdminTest     *handler.AdminTestHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Group (Student JWT) ────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.GET("/tests", handlers.StudentPortal.ListTests)
		studentAPI.GET("/tests/:id/paper", handlers.StudentPortal.StartTest)
		studentAPI.POST("/tests/:id/submit", handlers.StudentPortal.SubmitTest)
		studentAPI.POST("/tests/:id/feedback", handlers.StudentPortal.SubmitFeedback)
		studentAPI.GET("/results", handlers.StudentPortal.ListMyResults)
		studentAPI.GET("/results/:id", handlers.StudentPortal.GetResult)

		studentAPI.GET("/series", handlers.Payment.ListSeries)
		studentAPI.POST("/series/:id/enroll", handlers.Payment.EnrollFree)
		studentAPI.GET("/payments", handlers.Payment.ListEnrollments)
		studentAPI.POST("/payments/orders", handlers.Payment.CreateOrder)
		studentAPI.POST("/payments/verify", handlers.Payment.VerifyPayment)
	}

	// ─── 3. Shared Analytics (Any JWT) ─────────────────────────────────
	// Ranking is privacy-filtered per requester inside the service, so
	// students and admins share the route.
	analyticsAPI := router.Group("/api/v1/tests")
	analyticsAPI.Use(middleware.RequireJWT(authService))
	{
		analyticsAPI.GET("/:id/analytics", handlers.Analytics.GetTestAnalytics)
	}

	// ─── 4. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/results", handlers.WS.ResultsStream)
	}

	// ─── 5. Admin Group (Admin JWT) ────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/tests", handlers.AdminTest.ListTests)
		adminAPI.POST("/tests", handlers.AdminTest.CreateTest)
		adminAPI.GET("/tests/:id", handlers.AdminTest.GetTest)
		adminAPI.PUT("/tests/:id", handlers.AdminTest.UpdateTest)
		adminAPI.DELETE("/tests/:id", handlers.AdminTest.DeleteTest)
		adminAPI.GET("/tests/:id/results", handlers.AdminTest.ListTestResults)

		adminAPI.POST("/series", handlers.AdminTest.CreateSeries)
	}

	return router
}
