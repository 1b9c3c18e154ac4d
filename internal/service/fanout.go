package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/telemetry"
)

// DefaultFanoutConcurrency bounds concurrent per-collection searches; the
// vector store shares one connection pool, so the fan-out must not be
// allowed to drain it.
const DefaultFanoutConcurrency = 4

// CollectionSearcher is the single-collection search the fan-out builds on.
type CollectionSearcher interface {
	SearchSimilar(ctx context.Context, tenantID, query, knowledgeBaseID string, k int, threshold float64) (domain.SearchResults, error)
}

// RetrievalService fans a query out across many knowledge bases and merges
// the per-collection results into one globally ranked list.
type RetrievalService struct {
	searcher      CollectionSearcher
	kbs           KnowledgeBaseRepository
	maxConcurrent int
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(searcher CollectionSearcher, kbs KnowledgeBaseRepository, maxConcurrent int) *RetrievalService {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultFanoutConcurrency
	}
	return &RetrievalService{searcher: searcher, kbs: kbs, maxConcurrent: maxConcurrent}
}

// SearchAcross queries each knowledge base independently with
// kPerCollection and threshold, then merges everything into one list sorted
// by similarity descending (ties: original collection order, then chunk
// position). One collection's failure is logged and skipped; the other
// collections still answer. The merged list is NOT re-truncated; callers
// wanting a global cap apply SearchResults.Limit on top.
//
// An empty knowledgeBaseIDs fans out to every knowledge base of the tenant,
// which costs one backend call per knowledge base; latency-sensitive callers
// should pass an explicit list.
func (s *RetrievalService) SearchAcross(ctx context.Context, tenantID, query string, knowledgeBaseIDs []string, kPerCollection int, threshold float64) (domain.SearchResults, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.SearchAcross", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "search_across",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if tenantID == "" {
		return nil, domain.ErrMissingTenant
	}

	if len(knowledgeBaseIDs) == 0 {
		ids, err := s.kbs.ListIDsByTenant(ctx, tenantID)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		knowledgeBaseIDs = ids
	}
	if len(knowledgeBaseIDs) == 0 {
		return domain.SearchResults{}, nil
	}

	perCollection := make([]domain.SearchResults, len(knowledgeBaseIDs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrent)
	for i, kbID := range knowledgeBaseIDs {
		wg.Add(1)
		go func(idx int, kbID string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			results, err := s.searcher.SearchSimilar(ctx, tenantID, query, kbID, kPerCollection, threshold)
			if err != nil {
				log.Printf("fan-out search failed for knowledge base %s: %v", kbID, err)
				return
			}
			perCollection[idx] = results
		}(i, kbID)
	}
	wg.Wait()

	// Cancellation yields an error, never a truncated answer assembled from
	// whichever sub-calls happened to finish.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return mergeRanked(perCollection), nil
}

type rankedResult struct {
	domain.SearchResult
	collection int
}

func mergeRanked(perCollection []domain.SearchResults) domain.SearchResults {
	total := 0
	for _, list := range perCollection {
		total += len(list)
	}

	ranked := make([]rankedResult, 0, total)
	for i, list := range perCollection {
		for _, r := range list {
			ranked = append(ranked, rankedResult{SearchResult: r, collection: i})
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].SimilarityScore != ranked[b].SimilarityScore {
			return ranked[a].SimilarityScore > ranked[b].SimilarityScore
		}
		if ranked[a].collection != ranked[b].collection {
			return ranked[a].collection < ranked[b].collection
		}
		return ranked[a].Position < ranked[b].Position
	})

	merged := make(domain.SearchResults, 0, total)
	for _, r := range ranked {
		merged = append(merged, r.SearchResult)
	}
	return merged
}
