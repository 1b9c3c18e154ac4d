package service

import (
	"context"
	"log"
	"time"

	"github.com/loomnote/loomnote/internal/domain"
)

// DocumentStateRepository persists a document's processing state. The update
// covers status plus every derived and audit field in one statement so a
// transition is never partially visible.
type DocumentStateRepository interface {
	UpdateProcessingState(ctx context.Context, d *domain.Document) error
}

// StatusManager governs the document processing state machine:
// uploaded -> extracted -> embedded, with failed reachable from the two
// non-terminal states. Illegal transitions are a no-op returning false,
// never an error; callers that care must check the result.
type StatusManager struct {
	repo DocumentStateRepository
	now  func() time.Time
}

// NewStatusManager creates a new StatusManager instance
func NewStatusManager(repo DocumentStateRepository) *StatusManager {
	return &StatusManager{repo: repo, now: time.Now}
}

// Transition moves doc to target if the state machine allows it and persists
// the change. Returns false without touching the document when the
// transition is not allowed.
func (m *StatusManager) Transition(ctx context.Context, doc *domain.Document, target domain.DocumentStatus, actorID string) (bool, error) {
	if !domain.CanTransition(doc.Status, target) {
		log.Printf("rejected document status transition %s -> %s for %s", doc.Status, target, doc.ID)
		return false, nil
	}

	prev := doc.Status
	doc.Status = target
	m.stamp(doc, actorID)
	if target == domain.DocumentStatusEmbedded || target == domain.DocumentStatusFailed {
		at := m.now().UTC()
		doc.ProcessedAt = &at
	}

	if err := m.repo.UpdateProcessingState(ctx, doc); err != nil {
		doc.Status = prev
		return false, err
	}
	return true, nil
}

// MarkExtracted marks the document's text content as available.
func (m *StatusManager) MarkExtracted(ctx context.Context, doc *domain.Document, actorID string) (bool, error) {
	return m.Transition(ctx, doc, domain.DocumentStatusExtracted, actorID)
}

// MarkEmbedded records a successful ingestion: terminal embedded status,
// chunk statistics, the embedding model used, and the processing timestamp.
func (m *StatusManager) MarkEmbedded(ctx context.Context, doc *domain.Document, chunkCount int, embeddingModel, actorID string) (bool, error) {
	if !domain.CanTransition(doc.Status, domain.DocumentStatusEmbedded) {
		log.Printf("rejected document status transition %s -> %s for %s", doc.Status, domain.DocumentStatusEmbedded, doc.ID)
		return false, nil
	}

	prev := doc.Status
	prevCount := doc.ChunkCount
	doc.Status = domain.DocumentStatusEmbedded
	doc.ChunkCount = chunkCount
	if embeddingModel != "" {
		doc.EmbeddingModel = embeddingModel
	}
	at := m.now().UTC()
	doc.ProcessedAt = &at
	m.stamp(doc, actorID)

	if err := m.repo.UpdateProcessingState(ctx, doc); err != nil {
		doc.Status = prev
		doc.ChunkCount = prevCount
		return false, err
	}
	return true, nil
}

// MarkFailed records a failed ingestion run and resets the chunk count.
func (m *StatusManager) MarkFailed(ctx context.Context, doc *domain.Document, actorID string) (bool, error) {
	if !domain.CanTransition(doc.Status, domain.DocumentStatusFailed) {
		log.Printf("rejected document status transition %s -> %s for %s", doc.Status, domain.DocumentStatusFailed, doc.ID)
		return false, nil
	}

	prev := doc.Status
	prevCount := doc.ChunkCount
	doc.Status = domain.DocumentStatusFailed
	doc.ChunkCount = 0
	at := m.now().UTC()
	doc.ProcessedAt = &at
	m.stamp(doc, actorID)

	if err := m.repo.UpdateProcessingState(ctx, doc); err != nil {
		doc.Status = prev
		doc.ChunkCount = prevCount
		return false, err
	}
	return true, nil
}

func (m *StatusManager) stamp(doc *domain.Document, actorID string) {
	doc.UpdatedAt = m.now().UTC()
	if actorID != "" {
		doc.UpdatedBy = actorID
	}
}
