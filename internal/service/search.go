package service

import (
	"context"
	"errors"
	"strings"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/telemetry"
)

const (
	// DefaultSearchLimit is used when a caller passes k <= 0.
	DefaultSearchLimit = 10
	// DefaultSimilarityThreshold drops weakly related candidates.
	DefaultSimilarityThreshold = 0.3

	// candidateMultiplier over-fetches so threshold filtering still fills k.
	candidateMultiplier = 2
)

// VectorSearchService answers similarity queries against one collection.
type VectorSearchService struct {
	store VectorStore
	kbs   KnowledgeBaseRepository
	docs  DocumentReader
}

// NewVectorSearchService creates a new VectorSearchService instance
func NewVectorSearchService(store VectorStore, kbs KnowledgeBaseRepository, docs DocumentReader) *VectorSearchService {
	return &VectorSearchService{store: store, kbs: kbs, docs: docs}
}

// SearchSimilar runs a similarity query against the knowledge base's
// collection. Candidates below threshold are dropped (>= passes) and the
// remainder is truncated to k. A missing knowledge base is "no data yet",
// not an error: the result is empty.
func (s *VectorSearchService) SearchSimilar(ctx context.Context, tenantID, query, knowledgeBaseID string, k int, threshold float64) (domain.SearchResults, error) {
	ctx, span := telemetry.StartSpan(ctx, "VectorSearchService.SearchSimilar", telemetry.SpanAttributes{
		TenantID:     tenantID,
		CollectionID: knowledgeBaseID,
		Operation:    "search",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultSearchLimit
	}

	kb, err := s.kbs.GetByID(ctx, tenantID, knowledgeBaseID)
	if err != nil {
		if errors.Is(err, domain.ErrKnowledgeBaseNotFound) {
			return domain.SearchResults{}, nil
		}
		span.SetError(err)
		return nil, markTransient(err)
	}

	candidates, err := s.store.Search(ctx, kb.ID, query, k*candidateMultiplier, ChunkFilter{})
	if err != nil {
		span.SetError(err)
		return nil, markTransient(err)
	}

	results := make(domain.SearchResults, 0, k)
	for _, r := range candidates {
		if r.SimilarityScore >= threshold {
			results = append(results, r)
		}
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// SearchWithinDocument runs a similarity query restricted to one document's
// chunks. The underlying collection spans the whole owning knowledge base or
// conversation; the document_id attribute filter narrows it. No threshold is
// applied. A missing or purged document yields an empty result.
func (s *VectorSearchService) SearchWithinDocument(ctx context.Context, tenantID, documentID, query string, k int) (domain.SearchResults, error) {
	ctx, span := telemetry.StartSpan(ctx, "VectorSearchService.SearchWithinDocument", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: documentID,
		Operation:  "search",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultSearchLimit
	}

	doc, err := s.docs.GetByID(ctx, tenantID, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domain.SearchResults{}, nil
		}
		span.SetError(err)
		return nil, markTransient(err)
	}

	collectionID, _, err := doc.OwningRef()
	if err != nil {
		return nil, err
	}

	results, err := s.store.Search(ctx, collectionID, query, k, ChunkFilter{DocumentID: documentID})
	if err != nil {
		span.SetError(err)
		return nil, markTransient(err)
	}
	return results, nil
}

// markTransient classifies a backend fault so the API layer can degrade the
// search to an empty answer instead of failing the request. Errors already
// carrying a domain code keep their classification.
func markTransient(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeTransient, "search backend unavailable", err)
}
