package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/model"
	"github.com/cuongbtq/pi-work/internal/api/storage"
	"github.com/cuongbtq/pi-work/internal/pi"
	"github.com/gin-gonic/gin"
)

// publishTimeout bounds how long a request waits on the broker
const publishTimeout = 5 * time.Second

// JobStore is the persistence the handlers need
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
	ListCategories(ctx context.Context) ([]string, error)
	RecordSwipe(ctx context.Context, swipe *model.Swipe) error
	UpsertPayment(ctx context.Context, payment *model.Payment) error
}

// EventPublisher sends domain events to the worker
type EventPublisher interface {
	PublishWithRetry(ctx context.Context, messageID, eventType string, body []byte) error
}

// PaymentPlatform approves and completes Pi payments server-side
type PaymentPlatform interface {
	Approve(ctx context.Context, paymentID string) (*pi.Payment, error)
	Complete(ctx context.Context, paymentID, txID string) (*pi.Payment, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckers is healthy only when every checker is
type HealthCheckers []HealthChecker

func (hc HealthCheckers) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, c := range hc {
		if err := c.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dependencies holds all dependencies needed by handlers.
// Payments is nil when no Pi API key is configured.
type Dependencies struct {
	Logger      *slog.Logger
	Store       JobStore
	Publisher   EventPublisher
	Payments    PaymentPlatform
	Health      HealthChecker
	ServiceName string
	Now         func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// JobHandler serves the job queue and categories
type JobHandler struct {
	logger *slog.Logger
	store  JobStore
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}

// HealthHandler handles GET /health
func HealthHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health.HealthCheck(c.Request.Context()); err != nil {
				deps.Logger.Error("Health check failed", slog.String("error", err.Error()))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": deps.ServiceName,
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
		})
	}
}
