package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/service"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// IngestJobRepository defines the interface for ingest job persistence
type IngestJobRepository interface {
	// ClaimPending retrieves and claims pending ingest jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// UpdateStatus updates the status of an ingest job
	UpdateStatus(ctx context.Context, jobID string, status domain.IngestJobStatus, errMsg string) error

	// RequeueForRetry returns a claimed job to pending and bumps its retry count
	RequeueForRetry(ctx context.Context, jobID string, errMsg string) error
}

// Ingester runs the ingestion pipeline for one document.
type Ingester interface {
	Ingest(ctx context.Context, tenantID, actorID, documentID string) service.IngestResult
}

// IngestWorker processes queued document ingestion jobs
type IngestWorker struct {
	repo      IngestJobRepository
	ingester  Ingester
	batchSize int
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(repo IngestJobRepository, ingester Ingester) *IngestWorker {
	return &IngestWorker{
		repo:      repo,
		ingester:  ingester,
		batchSize: 100,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)

	result := w.ingester.Ingest(ctx, job.TenantID, job.ActorID, job.DocumentID)
	if result.Err != nil {
		return w.handleJobFailure(ctx, job, result.Err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: document %s embedded with %d chunks", job.ID, result.DocumentID, result.ChunksCount)
	return nil
}

// handleJobFailure decides between retry and permanent failure. A domain
// error means the pipeline itself rejected the document and has already
// marked it failed, so re-running the job cannot succeed. Anything else is
// an infrastructure fault worth retrying.
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	var de *domain.DomainError
	if errors.As(jobErr, &de) {
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, jobErr.Error()); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.RequeueForRetry(ctx, job.ID, errMsg); err != nil {
		return fmt.Errorf("failed to requeue job for retry: %w", err)
	}

	return nil
}
