package dto

import (
	"fmt"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/shopspring/decimal"
)

// DeadlineLayout is the wire format of a job deadline
const DeadlineLayout = time.DateOnly

type ListJobsRequest struct {
	Category string `form:"category"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Payment        decimal.Decimal `json:"payment"`
	Location       string          `json:"location"`
	Employer       string          `json:"employer"`
	EmployerRating float64         `json:"employer_rating"`
	Category       string          `json:"category"`
	ImageURL       string          `json:"image_url,omitempty"`
	Deadline       string          `json:"deadline"`
	CreatedAt      string          `json:"created_at"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// JobToDTO renders a job for the wire
func JobToDTO(job domain.Job) JobDTO {
	return JobDTO{
		ID:             job.ID,
		Title:          job.Title,
		Description:    job.Description,
		Payment:        job.Payment,
		Location:       job.Location,
		Employer:       job.Employer,
		EmployerRating: job.EmployerRating,
		Category:       job.Category,
		ImageURL:       job.ImageURL,
		Deadline:       job.Deadline.Format(DeadlineLayout),
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
	}
}

// ToDomain parses a wire job back into the domain type
func (j JobDTO) ToDomain() (domain.Job, error) {
	job := domain.Job{
		ID:             j.ID,
		Title:          j.Title,
		Description:    j.Description,
		Payment:        j.Payment,
		Location:       j.Location,
		Employer:       j.Employer,
		EmployerRating: j.EmployerRating,
		Category:       j.Category,
		ImageURL:       j.ImageURL,
		Status:         domain.JobStatusOpen,
	}

	if j.Deadline != "" {
		deadline, err := time.Parse(DeadlineLayout, j.Deadline)
		if err != nil {
			return domain.Job{}, fmt.Errorf("invalid deadline %q for job %s: %w", j.Deadline, j.ID, err)
		}
		job.Deadline = deadline
	}

	if j.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, j.CreatedAt)
		if err != nil {
			return domain.Job{}, fmt.Errorf("invalid created_at %q for job %s: %w", j.CreatedAt, j.ID, err)
		}
		job.CreatedAt = createdAt
	}

	return job, nil
}
