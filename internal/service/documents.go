package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/pagination"
)

// UUIDGenerator abstracts id generation for deterministic tests.
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator generates random UUIDs.
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DocumentRepositoryInterface is the metadata store for documents.
type DocumentRepositoryInterface interface {
	DocumentReader
	DocumentStateRepository
	Create(ctx context.Context, d *domain.Document) error
	ListByKnowledgeBase(ctx context.Context, tenantID, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// IngestJobRepositoryInterface enqueues background ingestion jobs.
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// ArchiveRemover deletes a document's archived text copy from object
// storage.
type ArchiveRemover interface {
	DeleteDocumentText(ctx context.Context, tenantID, documentID string) error
}

// ChunkReader fetches a single stored chunk by id, tenant-scoped.
type ChunkReader interface {
	GetChunk(ctx context.Context, tenantID, chunkID string) (*domain.Chunk, error)
}

// TxRepositories exposes repositories bound to one transaction.
type TxRepositories interface {
	Documents() DocumentRepositoryInterface
	IngestJobs() IngestJobRepositoryInterface
}

// TxRunner runs a function within a single database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// DocumentPageResult is one page of a document listing.
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// UploadDocumentInput carries an already-extracted text document into the
// pipeline. Exactly one of KnowledgeBaseID or ConversationID must be set.
type UploadDocumentInput struct {
	TenantID        string
	ActorID         string
	KnowledgeBaseID string
	ConversationID  string
	Title           string
	Content         string
	FileType        string
	ExtractionTool  string
}

// DocumentService owns the document rows whose lifecycle the ingestion
// pipeline drives: upload, listing, deletion (with vector purge), and chunk
// lookup. Knowledge bases and conversations are read-only collaborators.
type DocumentService struct {
	tx       TxRunner
	docs     DocumentRepositoryInterface
	chunks   ChunkReader
	store    VectorStore
	resolver *CollectionResolver
	status   *StatusManager
	uuidGen  UUIDGenerator
	archive  ArchiveRemover
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(tx TxRunner, docs DocumentRepositoryInterface, chunks ChunkReader, store VectorStore, resolver *CollectionResolver, status *StatusManager, uuidGen UUIDGenerator) *DocumentService {
	return &DocumentService{
		tx:       tx,
		docs:     docs,
		chunks:   chunks,
		store:    store,
		resolver: resolver,
		status:   status,
		uuidGen:  uuidGen,
	}
}

// WithArchiveRemover enables best-effort removal of the archived text copy
// when a document is deleted.
func (s *DocumentService) WithArchiveRemover(archive ArchiveRemover) *DocumentService {
	s.archive = archive
	return s
}

// Upload creates the document row in status uploaded and enqueues a
// background ingestion job, both in one transaction so a crash cannot leave
// an orphaned row that no worker will ever pick up. Inline content marks the
// document extracted immediately.
func (s *DocumentService) Upload(ctx context.Context, input UploadDocumentInput) (*domain.Document, error) {
	now := time.Now().UTC()
	content := strings.TrimSpace(input.Content)

	doc := &domain.Document{
		ID:              s.uuidGen.NewString(),
		TenantID:        input.TenantID,
		KnowledgeBaseID: input.KnowledgeBaseID,
		ConversationID:  input.ConversationID,
		Title:           strings.TrimSpace(input.Title),
		Content:         content,
		FileType:        input.FileType,
		Size:            int64(len(content)),
		Status:          domain.DocumentStatusUploaded,
		ExtractionTool:  input.ExtractionTool,
		CreatedAt:       now,
		CreatedBy:       input.ActorID,
		UpdatedAt:       now,
		UpdatedBy:       input.ActorID,
	}
	if content != "" {
		sum := sha256.Sum256([]byte(content))
		doc.SHA256 = hex.EncodeToString(sum[:])
	}

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	// Owning entity must exist before we accept the upload; ingestion would
	// only discover the dangling ref later and burn the document to failed.
	if _, _, err := s.resolver.Resolve(ctx, doc); err != nil {
		return nil, err
	}

	job := &domain.IngestJob{
		ID:         s.uuidGen.NewString(),
		DocumentID: doc.ID,
		TenantID:   input.TenantID,
		ActorID:    input.ActorID,
		Status:     domain.IngestJobStatusPending,
		CreatedAt:  now,
	}

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	if content != "" {
		if _, err := s.status.MarkExtracted(ctx, doc, input.ActorID); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// Get returns one document.
func (s *DocumentService) Get(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, tenantID, id)
}

// List returns a page of a knowledge base's documents, newest first.
func (s *DocumentService) List(ctx context.Context, tenantID, knowledgeBaseID, cursorToken string, limit int) (*DocumentPageResult, error) {
	cursor, err := pagination.Decode(cursorToken)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.docs.ListByKnowledgeBase(ctx, tenantID, knowledgeBaseID, cursor, limit)
}

// Delete removes the document row after purging its vectors from the owning
// collection, upholding the invariant that a deleted document leaves no
// searchable chunks behind. The purge comes first: a half-deleted document
// must err on the side of missing metadata, never ghost search hits.
func (s *DocumentService) Delete(ctx context.Context, tenantID, id string) error {
	doc, err := s.docs.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	collectionID, _, err := doc.OwningRef()
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, collectionID, ChunkFilter{DocumentID: doc.ID}); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to purge document vectors", err)
	}

	if err := s.docs.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	// The archive copy must not outlive the document. Best effort: the
	// document is already gone, so a failed removal is only logged.
	if s.archive != nil {
		if err := s.archive.DeleteDocumentText(ctx, tenantID, id); err != nil {
			log.Printf("failed to remove archived content for document %s: %v", id, err)
		}
	}

	return nil
}

// GetChunk returns stored chunk detail by id.
func (s *DocumentService) GetChunk(ctx context.Context, tenantID, chunkID string) (*domain.Chunk, error) {
	return s.chunks.GetChunk(ctx, tenantID, chunkID)
}
