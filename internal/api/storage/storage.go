package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/api/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Migrations holds the schema migrations applied by the API service and the admin CLI
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files
const MigrationsDir = "migrations"

const jobColumns = `
	job_id, title, description, payment, location, employer,
	employer_rating, category, image_url, deadline, status,
	accept_count, reject_count, created_at, updated_at
`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	return createJob(ctx, s.db, job)
}

func createJob(ctx context.Context, ext sqlx.ExtContext, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, title, description, payment, location, employer,
			employer_rating, category, image_url, deadline, status,
			accept_count, reject_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15
		)
	`

	_, err := ext.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Title,
		job.Description,
		job.Payment,
		job.Location,
		job.Employer,
		job.EmployerRating,
		job.Category,
		job.ImageURL,
		job.Deadline,
		job.Status,
		job.AcceptCount,
		job.RejectCount,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

type JobFilter struct {
	Category string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns open jobs newest first.
// One row more than PageSize is fetched so the caller can tell whether another page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1`
	args := []interface{}{domain.JobStatusOpen}
	argIdx := 2

	if !domain.IsWildcardCategory(filter.Category) {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filter.Category)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// ListCategories returns the distinct categories of open jobs in alphabetical order
func (s *Storage) ListCategories(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT category FROM jobs WHERE status = $1 ORDER BY category`

	categories := []string{}
	if err := s.db.SelectContext(ctx, &categories, query, domain.JobStatusOpen); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return categories, nil
}

func (s *Storage) CountJobs(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM jobs`); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// SeedJobs inserts jobs when the table is empty and reports how many were written
func (s *Storage) SeedJobs(ctx context.Context, jobs []model.Job) (int, error) {
	count, err := s.CountJobs(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i := range jobs {
		if err := createJob(ctx, tx, &jobs[i]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	return len(jobs), nil
}

func (s *Storage) RecordSwipe(ctx context.Context, swipe *model.Swipe) error {
	query := `
		INSERT INTO swipes (swipe_id, job_id, user_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query, swipe.SwipeID, swipe.JobID, swipe.UserID, swipe.Action, swipe.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrJobNotFound
		}
		return fmt.Errorf("failed to record swipe: %w", err)
	}

	return nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation"
}

// UpsertPayment stores the latest known state of a Pi payment
func (s *Storage) UpsertPayment(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			payment_id, job_id, user_uid, amount, memo,
			status, txid, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $8
		)
		ON CONFLICT (payment_id) DO UPDATE SET
			status = EXCLUDED.status,
			txid = COALESCE(EXCLUDED.txid, payments.txid),
			job_id = COALESCE(payments.job_id, EXCLUDED.job_id),
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		payment.PaymentID,
		payment.JobID,
		payment.UserUID,
		payment.Amount,
		payment.Memo,
		payment.Status,
		payment.TxID,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}

	return nil
}
