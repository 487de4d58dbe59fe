package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	JobStatusOpen   = "OPEN"
	JobStatusFilled = "FILLED"
)

// AllCategories is the wildcard category that matches every job
const AllCategories = "All"

// MaxEmployerRating is the upper bound of an employer rating
const MaxEmployerRating = 5.0

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrInvalidJob       = errors.New("invalid job")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrInvalidSwipe     = errors.New("invalid swipe action")
	ErrPaymentsDisabled = errors.New("payments are not configured")
)

// Job is a single posting in the marketplace queue
type Job struct {
	ID             string
	Title          string
	Description    string
	Payment        decimal.Decimal
	Location       string
	Employer       string
	EmployerRating float64
	Category       string
	ImageURL       string
	Deadline       time.Time
	CreatedAt      time.Time
	Status         string
	AcceptCount    int
	RejectCount    int
}

// Validate checks the invariants a job must hold before it is stored
func (j *Job) Validate() error {
	switch {
	case j.Title == "":
		return errors.Join(ErrInvalidJob, errors.New("title is required"))
	case j.Category == "":
		return errors.Join(ErrInvalidJob, errors.New("category is required"))
	case j.Payment.IsNegative():
		return errors.Join(ErrInvalidJob, errors.New("payment must not be negative"))
	case j.EmployerRating < 0 || j.EmployerRating > MaxEmployerRating:
		return errors.Join(ErrInvalidJob, errors.New("employer rating must be between 0 and 5"))
	}
	return nil
}

// IsWildcardCategory reports whether category selects every job
func IsWildcardCategory(category string) bool {
	return category == "" || category == AllCategories
}
