package storage

import (
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/api/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type sampleJob struct {
	title, description, location, employer, category, imageURL string
	payment                                                    int64
	rating                                                     float64
	ageDays, deadlineDays                                      int
}

var sampleJobs = []sampleJob{
	{
		title:        "Chop Firewood",
		description:  "Need someone to chop firewood for winter. Urgently need assistance! Must be physically fit and have experience with axes.",
		payment:      50,
		location:     "Tallinn, Estonia",
		employer:     "John Smith",
		rating:       4.8,
		category:     "Manual Labor",
		imageURL:     "https://images.unsplash.com/photo-1675134768072-d700f38ceef0",
		ageDays:      0,
		deadlineDays: 5,
	},
	{
		title:        "Office Cleaning",
		description:  "Looking for reliable cleaner for small office space. Daily cleaning required, flexible hours available.",
		payment:      35,
		location:     "Riga, Latvia",
		employer:     "Clean Solutions Ltd",
		rating:       4.6,
		category:     "Cleaning",
		imageURL:     "https://images.unsplash.com/photo-1741543821138-471a53f147f2",
		ageDays:      1,
		deadlineDays: 10,
	},
	{
		title:        "Website Development",
		description:  "Need a simple website for my restaurant. Looking for someone with React and modern web development skills.",
		payment:      120,
		location:     "Helsinki, Finland",
		employer:     "Maria Andersson",
		rating:       4.9,
		category:     "Technology",
		imageURL:     "https://images.unsplash.com/photo-1504384308090-c894fdcc538d",
		ageDays:      2,
		deadlineDays: 15,
	},
	{
		title:        "Document Translation",
		description:  "Need someone to translate business documents from English to Estonian. Must have professional translation experience.",
		payment:      80,
		location:     "Tartu, Estonia",
		employer:     "Baltic Business Corp",
		rating:       4.7,
		category:     "Professional Services",
		imageURL:     "https://images.unsplash.com/photo-1562564055-71e051d33c19",
		ageDays:      3,
		deadlineDays: 7,
	},
	{
		title:        "Marketing Consultation",
		description:  "Small startup needs marketing strategy consultation. Looking for someone with digital marketing experience.",
		payment:      95,
		location:     "Stockholm, Sweden",
		employer:     "Nordic Innovations",
		rating:       4.5,
		category:     "Consulting",
		imageURL:     "https://images.unsplash.com/photo-1517048676732-d65bc937f952",
		ageDays:      4,
		deadlineDays: 13,
	},
}

// SampleJobs returns the starter job board, dated relative to now
func SampleJobs(now time.Time) []model.Job {
	today := now.UTC().Truncate(24 * time.Hour)

	jobs := make([]model.Job, 0, len(sampleJobs))
	for _, s := range sampleJobs {
		createdAt := now.UTC().AddDate(0, 0, -s.ageDays)
		jobs = append(jobs, model.Job{
			JobID:          uuid.New().String(),
			Title:          s.title,
			Description:    s.description,
			Payment:        decimal.NewFromInt(s.payment),
			Location:       s.location,
			Employer:       s.employer,
			EmployerRating: s.rating,
			Category:       s.category,
			ImageURL:       s.imageURL,
			Deadline:       today.AddDate(0, 0, s.deadlineDays),
			Status:         domain.JobStatusOpen,
			CreatedAt:      createdAt,
			UpdatedAt:      createdAt,
		})
	}

	return jobs
}
