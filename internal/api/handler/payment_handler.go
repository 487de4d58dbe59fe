package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/api/dto"
	"github.com/cuongbtq/pi-work/internal/api/model"
	"github.com/cuongbtq/pi-work/internal/events"
	"github.com/cuongbtq/pi-work/internal/pi"
	"github.com/gin-gonic/gin"
)

// PaymentHandler runs the server side of the Pi payment handshake
type PaymentHandler struct {
	deps *Dependencies
}

func NewPaymentHandler(deps *Dependencies) *PaymentHandler {
	return &PaymentHandler{deps: deps}
}

// ApprovePayment handles POST /api/v1/payments/:payment_id/approve
func (h *PaymentHandler) ApprovePayment(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	paymentID := c.Param("payment_id")
	ctx := c.Request.Context()

	payment, err := h.deps.Payments.Approve(ctx, paymentID)
	if err != nil {
		h.platformError(c, "approve", paymentID, err)
		return
	}

	record := paymentRecord(paymentID, payment, domain.PaymentStatusApproved, "", h.deps.now())
	if err := h.deps.Store.UpsertPayment(ctx, record); err != nil {
		h.deps.Logger.Error("Failed to store approved payment",
			slog.String("payment_id", paymentID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store payment",
		})
		return
	}

	h.deps.Logger.Info("Payment approved",
		slog.String("payment_id", paymentID),
		slog.String("job_id", record.JobID.String),
		slog.String("amount", record.Amount.String()),
	)

	c.JSON(http.StatusOK, dto.PaymentResponse{
		PaymentID: paymentID,
		JobID:     record.JobID.String,
		Status:    domain.PaymentStatusApproved,
		Message:   "Payment approved",
	})
}

// CompletePayment handles POST /api/v1/payments/:payment_id/complete
func (h *PaymentHandler) CompletePayment(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	paymentID := c.Param("payment_id")
	ctx := c.Request.Context()

	var req dto.CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "txid is required",
		})
		return
	}

	payment, err := h.deps.Payments.Complete(ctx, paymentID, req.TxID)
	if err != nil {
		h.platformError(c, "complete", paymentID, err)
		return
	}

	record := paymentRecord(paymentID, payment, domain.PaymentStatusCompleted, req.TxID, h.deps.now())
	if err := h.deps.Store.UpsertPayment(ctx, record); err != nil {
		h.deps.Logger.Error("Failed to store completed payment",
			slog.String("payment_id", paymentID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store payment",
		})
		return
	}

	h.deps.Logger.Info("Payment completed",
		slog.String("payment_id", paymentID),
		slog.String("job_id", record.JobID.String),
		slog.String("txid", req.TxID),
	)

	if record.JobID.Valid {
		env, err := events.New(events.TypePaymentCompleted, events.PaymentCompleted{
			PaymentID: paymentID,
			JobID:     record.JobID.String,
			TxID:      req.TxID,
			Amount:    record.Amount,
		}, record.UpdatedAt)
		if err == nil {
			err = publish(ctx, h.deps.Publisher, env)
		}
		if err != nil {
			h.deps.Logger.Error("Failed to publish payment event",
				slog.String("payment_id", paymentID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.JSON(http.StatusOK, dto.PaymentResponse{
		PaymentID: paymentID,
		JobID:     record.JobID.String,
		Status:    domain.PaymentStatusCompleted,
		TxID:      req.TxID,
		Message:   "Payment completed",
	})
}

func (h *PaymentHandler) enabled(c *gin.Context) bool {
	if h.deps.Payments != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": domain.ErrPaymentsDisabled.Error(),
	})
	return false
}

func (h *PaymentHandler) platformError(c *gin.Context, op, paymentID string, err error) {
	h.deps.Logger.Error("Pi platform call failed",
		slog.String("op", op),
		slog.String("payment_id", paymentID),
		slog.String("error", err.Error()),
	)

	var apiErr *pi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{
			"error": domain.ErrPaymentNotFound.Error(),
		})
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{
		"error": "Failed to " + op + " payment",
	})
}

func paymentRecord(paymentID string, payment *pi.Payment, status, txID string, now time.Time) *model.Payment {
	record := &model.Payment{
		PaymentID: paymentID,
		UserUID:   payment.UserUID,
		Amount:    payment.Amount,
		Memo:      payment.Memo,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if jobID := payment.MetadataString(domain.MetadataJobID); jobID != "" {
		record.JobID = sql.NullString{String: jobID, Valid: true}
	}
	if txID != "" {
		record.TxID = sql.NullString{String: txID, Valid: true}
	}

	return record
}
