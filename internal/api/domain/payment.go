package domain

const (
	PaymentStatusApproved  = "APPROVED"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusCancelled = "CANCELLED"
)

// Metadata keys attached to a payment by the swipe client
const (
	MetadataJobID    = "job_id"
	MetadataEmployer = "employer"
)
