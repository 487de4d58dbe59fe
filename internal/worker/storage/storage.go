package storage

import (
	"context"
	"fmt"
	"log/slog"

	apidomain "github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ApplySwipe marks a swipe processed and bumps the matching counter on its job.
// It reports false without touching the job when the swipe was already processed.
func (s *Storage) ApplySwipe(ctx context.Context, swipeID, jobID string, action apidomain.Action) (bool, error) {
	counter := "reject_count"
	if action == apidomain.ActionAccept {
		counter = "accept_count"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE swipes
		SET processed_at = NOW()
		WHERE swipe_id = $1 AND processed_at IS NULL
	`, swipeID)
	if err != nil {
		return false, fmt.Errorf("failed to mark swipe processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM swipes WHERE swipe_id = $1)`, swipeID); err != nil {
			return false, fmt.Errorf("failed to look up swipe: %w", err)
		}
		if !exists {
			return false, domain.ErrSwipeNotFound
		}

		s.logger.Info("Swipe already processed, skipping",
			slog.String("swipe_id", swipeID),
		)
		return false, nil
	}

	query := fmt.Sprintf(`
		UPDATE jobs
		SET %[1]s = %[1]s + 1,
		    updated_at = NOW()
		WHERE job_id = $1
	`, counter)
	if _, err := tx.ExecContext(ctx, query, jobID); err != nil {
		return false, fmt.Errorf("failed to update %s: %w", counter, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit swipe: %w", err)
	}

	s.logger.Info("Swipe applied",
		slog.String("swipe_id", swipeID),
		slog.String("job_id", jobID),
		slog.String("action", string(action)),
	)

	return true, nil
}

// MarkJobFilled closes an open job once it has been paid for.
// It reports false when the job was not open.
func (s *Storage) MarkJobFilled(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE job_id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, apidomain.JobStatusFilled, jobID, apidomain.JobStatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed to mark job filled: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Job not filled - not found or not open",
			slog.String("job_id", jobID),
		)
		return false, nil
	}

	s.logger.Info("Job filled",
		slog.String("job_id", jobID),
	)

	return true, nil
}
