package domain

import "time"

// IngestJobStatus represents the status of a background ingestion job
type IngestJobStatus string

const (
	IngestJobStatusPending    IngestJobStatus = "pending"
	IngestJobStatusProcessing IngestJobStatus = "processing"
	IngestJobStatusCompleted  IngestJobStatus = "completed"
	IngestJobStatusFailed     IngestJobStatus = "failed"
)

// IngestJob queues a document for background ingestion.
type IngestJob struct {
	ID          string
	DocumentID  string
	TenantID    string
	ActorID     string
	Status      IngestJobStatus
	Retries     int
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
