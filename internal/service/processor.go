package service

import (
	"context"
	"log"
	"strings"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/telemetry"
)

// DocumentReader loads documents from the metadata store, tenant-scoped.
type DocumentReader interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
}

// ContentArchiver optionally archives the extracted text of an ingested
// document to object storage.
type ContentArchiver interface {
	PutDocumentText(ctx context.Context, tenantID, documentID, content string) error
}

// IngestResult reports the outcome of one ingestion run. Expected failure
// classes are captured in Err and Success=false; Process never panics or
// propagates them.
type IngestResult struct {
	Success     bool
	DocumentID  string
	ChunksCount int
	StoredIDs   []string
	Err         error
}

// ProcessorConfig controls ingestion chunking and model attribution.
type ProcessorConfig struct {
	Chunk          ChunkConfig
	EmbeddingModel string
}

// DocumentProcessor orchestrates one document's ingestion: chunk the text,
// resolve the target collection, replace the document's vectors, and drive
// the status state machine. Each run is sequential and not resumable; a
// failure anywhere aborts the run and marks the document failed.
type DocumentProcessor struct {
	docs     DocumentReader
	resolver *CollectionResolver
	store    VectorStore
	status   *StatusManager
	archive  ContentArchiver
	cfg      ProcessorConfig
}

// NewDocumentProcessor creates a new DocumentProcessor instance
func NewDocumentProcessor(docs DocumentReader, resolver *CollectionResolver, store VectorStore, status *StatusManager, cfg ProcessorConfig) *DocumentProcessor {
	if cfg.Chunk.ChunkSize <= 0 {
		cfg.Chunk = DefaultChunkConfig()
	}
	return &DocumentProcessor{
		docs:     docs,
		resolver: resolver,
		store:    store,
		status:   status,
		cfg:      cfg,
	}
}

// WithArchiver enables best-effort archival of document text after a
// successful run.
func (p *DocumentProcessor) WithArchiver(archive ContentArchiver) *DocumentProcessor {
	p.archive = archive
	return p
}

// Ingest loads the document and processes it. Load failures leave the
// document untouched.
func (p *DocumentProcessor) Ingest(ctx context.Context, tenantID, actorID, documentID string) IngestResult {
	doc, err := p.docs.GetByID(ctx, tenantID, documentID)
	if err != nil {
		return IngestResult{DocumentID: documentID, Err: err}
	}
	return p.Process(ctx, actorID, doc)
}

// Process runs the ingestion pipeline for one document.
func (p *DocumentProcessor) Process(ctx context.Context, actorID string, doc *domain.Document) IngestResult {
	ctx, span := telemetry.StartSpan(ctx, "DocumentProcessor.Process", telemetry.SpanAttributes{
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	result := p.process(ctx, actorID, doc)
	if result.Err != nil {
		span.SetError(result.Err)
	}
	return result
}

func (p *DocumentProcessor) process(ctx context.Context, actorID string, doc *domain.Document) IngestResult {
	log.Printf("processing document %s (%s)", doc.ID, doc.Title)

	// Empty content is caller misuse, not a processing failure: the status
	// machine is left alone so the document can be re-uploaded with content.
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return IngestResult{DocumentID: doc.ID, Err: domain.ErrEmptyContent}
	}

	if doc.Status == domain.DocumentStatusUploaded {
		if ok, err := p.status.MarkExtracted(ctx, doc, actorID); err != nil || !ok {
			return p.fail(ctx, actorID, doc, domain.NewDomainErrorWithCause(
				domain.ErrCodeInternalError, "failed to mark document extracted", err))
		}
	}

	texts, err := SplitText(content, p.cfg.Chunk)
	if err != nil {
		return p.fail(ctx, actorID, doc, err)
	}

	collectionID, meta, err := p.resolver.Resolve(ctx, doc)
	if err != nil {
		return p.fail(ctx, actorID, doc, err)
	}

	chunks := p.buildChunks(doc, collectionID, texts)

	// Purge the document's previous chunk set before adding the new one:
	// chunk ids are stable per (document, position), so without the purge a
	// re-ingestion that produces fewer chunks would leave stale tails behind.
	if err := p.store.Delete(ctx, collectionID, ChunkFilter{DocumentID: doc.ID}); err != nil {
		return p.fail(ctx, actorID, doc, domain.NewDomainErrorWithCause(
			domain.ErrCodeInternalError, "failed to purge previous chunks", err))
	}

	storedIDs, err := p.store.Add(ctx, collectionID, meta, chunks)
	if err != nil {
		return p.fail(ctx, actorID, doc, domain.NewDomainErrorWithCause(
			domain.ErrCodeInternalError, "failed to add chunks to vector store", err))
	}

	ok, err := p.status.MarkEmbedded(ctx, doc, len(chunks), p.cfg.EmbeddingModel, actorID)
	if err != nil {
		return IngestResult{DocumentID: doc.ID, Err: domain.NewDomainErrorWithCause(
			domain.ErrCodeInternalError, "failed to update document status", err)}
	}
	if !ok {
		return IngestResult{DocumentID: doc.ID, Err: domain.NewDomainError(
			domain.ErrCodeInvalidOperation, "document processed but status update rejected")}
	}

	if p.archive != nil {
		if err := p.archive.PutDocumentText(ctx, doc.TenantID, doc.ID, content); err != nil {
			log.Printf("failed to archive content for document %s: %v", doc.ID, err)
		}
	}

	log.Printf("document %s embedded with %d chunks", doc.ID, len(chunks))
	return IngestResult{
		Success:     true,
		DocumentID:  doc.ID,
		ChunksCount: len(chunks),
		StoredIDs:   storedIDs,
	}
}

func (p *DocumentProcessor) buildChunks(doc *domain.Document, collectionID string, texts []string) []domain.Chunk {
	ownerKey := "knowledge_base_id"
	if doc.ConversationID != "" {
		ownerKey = "conversation_id"
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    text,
			Position:   i,
			TokenCount: estimateTokens(text),
			Attributes: map[string]string{
				"document_id": doc.ID,
				"tenant_id":   doc.TenantID,
				ownerKey:      collectionID,
			},
		})
	}
	return chunks
}

// fail marks the document failed and wraps the cause into the result. The
// failed transition itself is best effort: if it cannot be persisted there
// is nothing further to do but report the original error.
func (p *DocumentProcessor) fail(ctx context.Context, actorID string, doc *domain.Document, cause error) IngestResult {
	log.Printf("document %s processing failed: %v", doc.ID, cause)
	if _, err := p.status.MarkFailed(ctx, doc, actorID); err != nil {
		log.Printf("failed to mark document %s failed: %v", doc.ID, err)
	}
	return IngestResult{DocumentID: doc.ID, Err: cause}
}
