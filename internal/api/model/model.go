package model

import (
	"database/sql"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/shopspring/decimal"
)

type Job struct {
	JobID          string          `db:"job_id"`
	Title          string          `db:"title"`
	Description    string          `db:"description"`
	Payment        decimal.Decimal `db:"payment"`
	Location       string          `db:"location"`
	Employer       string          `db:"employer"`
	EmployerRating float64         `db:"employer_rating"`
	Category       string          `db:"category"`
	ImageURL       string          `db:"image_url"`
	Deadline       time.Time       `db:"deadline"`
	Status         string          `db:"status"`
	AcceptCount    int             `db:"accept_count"`
	RejectCount    int             `db:"reject_count"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// ToDomain converts the row into the domain representation
func (j Job) ToDomain() domain.Job {
	return domain.Job{
		ID:             j.JobID,
		Title:          j.Title,
		Description:    j.Description,
		Payment:        j.Payment,
		Location:       j.Location,
		Employer:       j.Employer,
		EmployerRating: j.EmployerRating,
		Category:       j.Category,
		ImageURL:       j.ImageURL,
		Deadline:       j.Deadline,
		CreatedAt:      j.CreatedAt,
		Status:         j.Status,
		AcceptCount:    j.AcceptCount,
		RejectCount:    j.RejectCount,
	}
}

// JobFromDomain builds a row for insertion
func JobFromDomain(j domain.Job) Job {
	return Job{
		JobID:          j.ID,
		Title:          j.Title,
		Description:    j.Description,
		Payment:        j.Payment,
		Location:       j.Location,
		Employer:       j.Employer,
		EmployerRating: j.EmployerRating,
		Category:       j.Category,
		ImageURL:       j.ImageURL,
		Deadline:       j.Deadline,
		Status:         j.Status,
		AcceptCount:    j.AcceptCount,
		RejectCount:    j.RejectCount,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.CreatedAt,
	}
}

type Swipe struct {
	SwipeID     string       `db:"swipe_id"`
	JobID       string       `db:"job_id"`
	UserID      string       `db:"user_id"`
	Action      string       `db:"action"`
	CreatedAt   time.Time    `db:"created_at"`
	ProcessedAt sql.NullTime `db:"processed_at"`
}

type Payment struct {
	PaymentID string          `db:"payment_id"`
	JobID     sql.NullString  `db:"job_id"`
	UserUID   string          `db:"user_uid"`
	Amount    decimal.Decimal `db:"amount"`
	Memo      string          `db:"memo"`
	Status    string          `db:"status"`
	TxID      sql.NullString  `db:"txid"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
