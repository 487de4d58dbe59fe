package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/api/dto"
	"github.com/cuongbtq/pi-work/internal/api/model"
	"github.com/cuongbtq/pi-work/internal/events"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SwipeHandler records accept/reject decisions
type SwipeHandler struct {
	deps *Dependencies
}

func NewSwipeHandler(deps *Dependencies) *SwipeHandler {
	return &SwipeHandler{deps: deps}
}

// RecordSwipe handles POST /api/v1/swipes
func (h *SwipeHandler) RecordSwipe(c *gin.Context) {
	logger := h.deps.Logger

	var req dto.SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid swipe request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	action, err := domain.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	swipe := model.Swipe{
		SwipeID:   uuid.New().String(),
		JobID:     req.JobID,
		UserID:    req.UserID,
		Action:    string(action),
		CreatedAt: h.deps.now(),
	}

	if err := h.deps.Store.RecordSwipe(ctx, &swipe); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			logger.Warn("Swipe for unknown job", slog.String("job_id", req.JobID))
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		logger.Error("Failed to record swipe",
			slog.String("job_id", req.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error processing swipe",
		})
		return
	}

	logger.Info("Swipe recorded",
		slog.String("swipe_id", swipe.SwipeID),
		slog.String("job_id", swipe.JobID),
		slog.String("user_id", swipe.UserID),
		slog.String("action", swipe.Action),
	)

	h.publishSwipe(ctx, &swipe)

	outcome := domain.OutcomeFor(action)
	c.JSON(http.StatusOK, dto.SwipeResponse{
		SwipeID: swipe.SwipeID,
		Message: outcome.Message,
		Match:   outcome.Match,
	})
}

// publishSwipe is fire-and-forget: the swipe is already stored
func (h *SwipeHandler) publishSwipe(ctx context.Context, swipe *model.Swipe) {
	env, err := events.New(events.TypeSwipeRecorded, events.SwipeRecorded{
		SwipeID: swipe.SwipeID,
		JobID:   swipe.JobID,
		UserID:  swipe.UserID,
		Action:  swipe.Action,
	}, swipe.CreatedAt)
	if err == nil {
		err = publish(ctx, h.deps.Publisher, env)
	}
	if err != nil {
		h.deps.Logger.Error("Failed to publish swipe event",
			slog.String("swipe_id", swipe.SwipeID),
			slog.String("error", err.Error()),
		)
	}
}

func publish(ctx context.Context, publisher EventPublisher, env events.Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return publisher.PublishWithRetry(ctx, env.ID, env.Type, body)
}
