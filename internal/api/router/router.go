package router

import (
	"github.com/cuongbtq/pi-work/internal/api/handler"
	"github.com/cuongbtq/pi-work/internal/config"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, rateLimit config.RateLimitConfig) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	if rateLimit.Enabled {
		r.Use(RateLimitMiddleware(rateLimit.RequestsPerSecond, rateLimit.Burst, deps.Logger))
	}

	r.GET("/health", handler.HealthHandler(deps))

	jobHandler := handler.NewJobHandler(deps)
	swipeHandler := handler.NewSwipeHandler(deps)
	paymentHandler := handler.NewPaymentHandler(deps)

	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - Open jobs, optionally filtered by category
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Job details
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		v1.GET("/categories", jobHandler.ListCategories)

		// POST /api/v1/swipes - Record an accept/reject decision
		v1.POST("/swipes", swipeHandler.RecordSwipe)

		payments := v1.Group("/payments")
		{
			// POST /api/v1/payments/:payment_id/approve - Server-side approval
			payments.POST("/:payment_id/approve", paymentHandler.ApprovePayment)

			// POST /api/v1/payments/:payment_id/complete - Server-side completion
			payments.POST("/:payment_id/complete", paymentHandler.CompletePayment)
		}
	}

	return r
}
