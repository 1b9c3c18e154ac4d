package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loomnote/loomnote/internal/domain"
)

func scoredResults(scores ...float64) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(scores))
	for i, s := range scores {
		out = append(out, domain.SearchResult{
			ChunkID:         domain.ChunkID("doc-1", i),
			DocumentID:      "doc-1",
			Content:         "chunk",
			Position:        i,
			SimilarityScore: s,
		})
	}
	return out
}

func TestVectorSearchService_SearchSimilar(t *testing.T) {
	ctx := context.Background()

	t.Run("filters by threshold and truncates to k", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		docs := new(MockDocumentRepository)
		svc := NewVectorSearchService(store, kbs, docs)

		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-1").Return(testKnowledgeBase(), nil)
		store.On("Search", mock.Anything, "kb-1", "query", 10, ChunkFilter{}).
			Return(scoredResults(0.9, 0.6, 0.4, 0.3), nil)

		results, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-1", 5, 0.5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 0.9, results[0].SimilarityScore)
		assert.Equal(t, 0.6, results[1].SimilarityScore)
		store.AssertExpectations(t)
	})

	t.Run("a score exactly at the threshold passes", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewVectorSearchService(store, kbs, new(MockDocumentRepository))

		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-1").Return(testKnowledgeBase(), nil)
		store.On("Search", mock.Anything, "kb-1", "query", 6, ChunkFilter{}).
			Return(scoredResults(0.5, 0.49), nil)

		results, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-1", 3, 0.5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 0.5, results[0].SimilarityScore)
	})

	t.Run("over-fetches so filtering still fills k", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewVectorSearchService(store, kbs, new(MockDocumentRepository))

		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-1").Return(testKnowledgeBase(), nil)
		store.On("Search", mock.Anything, "kb-1", "query", 4, ChunkFilter{}).
			Return(scoredResults(0.9, 0.2, 0.8, 0.7), nil)

		results, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-1", 2, 0.5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 0.9, results[0].SimilarityScore)
		assert.Equal(t, 0.8, results[1].SimilarityScore)
	})

	t.Run("non-positive k defaults to the standard limit", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewVectorSearchService(store, kbs, new(MockDocumentRepository))

		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-1").Return(testKnowledgeBase(), nil)
		store.On("Search", mock.Anything, "kb-1", "query", DefaultSearchLimit*candidateMultiplier, ChunkFilter{}).
			Return(scoredResults(0.9), nil)

		results, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-1", 0, 0.3)
		require.NoError(t, err)
		assert.Len(t, results, 1)
		store.AssertExpectations(t)
	})

	t.Run("missing knowledge base yields empty results", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewVectorSearchService(store, kbs, new(MockDocumentRepository))

		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-missing").Return(nil, domain.ErrKnowledgeBaseNotFound)

		results, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-missing", 5, 0.3)
		require.NoError(t, err)
		assert.Empty(t, results)
		store.AssertNotCalled(t, "Search")
	})

	t.Run("blank query is rejected", func(t *testing.T) {
		svc := NewVectorSearchService(new(MockVectorStore), new(MockKnowledgeBaseRepository), new(MockDocumentRepository))

		_, err := svc.SearchSimilar(ctx, "tenant-1", "   ", "kb-1", 5, 0.3)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	})

	t.Run("store failure is classified transient", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewVectorSearchService(store, kbs, new(MockDocumentRepository))

		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-1").Return(testKnowledgeBase(), nil)
		searchErr := errors.New("dial tcp: connection refused")
		store.On("Search", mock.Anything, "kb-1", "query", 10, ChunkFilter{}).Return(nil, searchErr)

		_, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-1", 5, 0.3)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTransient))
		assert.ErrorIs(t, err, searchErr)
	})

	t.Run("knowledge base lookup failure is classified transient", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewVectorSearchService(store, kbs, new(MockDocumentRepository))

		lookupErr := errors.New("connection pool exhausted")
		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-1").Return(nil, lookupErr)

		_, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-1", 5, 0.3)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTransient))
		store.AssertNotCalled(t, "Search")
	})

	t.Run("errors with a domain code keep their classification", func(t *testing.T) {
		store := new(MockVectorStore)
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewVectorSearchService(store, kbs, new(MockDocumentRepository))

		kbs.On("GetByID", mock.Anything, "tenant-1", "kb-1").Return(testKnowledgeBase(), nil)
		storeErr := domain.NewDomainError(domain.ErrCodeInternalError, "embedding dimension mismatch")
		store.On("Search", mock.Anything, "kb-1", "query", 10, ChunkFilter{}).Return(nil, storeErr)

		_, err := svc.SearchSimilar(ctx, "tenant-1", "query", "kb-1", 5, 0.3)
		require.Error(t, err)
		assert.False(t, domain.IsErrorCode(err, domain.ErrCodeTransient))
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInternalError))
	})
}

func TestVectorSearchService_SearchWithinDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("restricts the search to the document", func(t *testing.T) {
		store := new(MockVectorStore)
		docs := new(MockDocumentRepository)
		svc := NewVectorSearchService(store, new(MockKnowledgeBaseRepository), docs)

		doc := newTestDocument(domain.DocumentStatusEmbedded)
		docs.On("GetByID", mock.Anything, "tenant-1", "doc-1").Return(doc, nil)
		store.On("Search", mock.Anything, "kb-1", "query", 3, ChunkFilter{DocumentID: "doc-1"}).
			Return(scoredResults(0.8, 0.1), nil)

		results, err := svc.SearchWithinDocument(ctx, "tenant-1", "doc-1", "query", 3)
		require.NoError(t, err)
		// No threshold applies within a document.
		assert.Len(t, results, 2)
		store.AssertExpectations(t)
	})

	t.Run("missing document yields empty results", func(t *testing.T) {
		store := new(MockVectorStore)
		docs := new(MockDocumentRepository)
		svc := NewVectorSearchService(store, new(MockKnowledgeBaseRepository), docs)

		docs.On("GetByID", mock.Anything, "tenant-1", "doc-gone").Return(nil, domain.ErrDocumentNotFound)

		results, err := svc.SearchWithinDocument(ctx, "tenant-1", "doc-gone", "query", 3)
		require.NoError(t, err)
		assert.Empty(t, results)
		store.AssertNotCalled(t, "Search")
	})

	t.Run("conversation documents search the conversation collection", func(t *testing.T) {
		store := new(MockVectorStore)
		docs := new(MockDocumentRepository)
		svc := NewVectorSearchService(store, new(MockKnowledgeBaseRepository), docs)

		doc := newTestDocument(domain.DocumentStatusEmbedded)
		doc.KnowledgeBaseID = ""
		doc.ConversationID = "conv-1"
		docs.On("GetByID", mock.Anything, "tenant-1", "doc-1").Return(doc, nil)
		store.On("Search", mock.Anything, "conv-1", "query", DefaultSearchLimit, ChunkFilter{DocumentID: "doc-1"}).
			Return(scoredResults(0.7), nil)

		results, err := svc.SearchWithinDocument(ctx, "tenant-1", "doc-1", "query", 0)
		require.NoError(t, err)
		assert.Len(t, results, 1)
		store.AssertExpectations(t)
	})

	t.Run("blank query is rejected", func(t *testing.T) {
		svc := NewVectorSearchService(new(MockVectorStore), new(MockKnowledgeBaseRepository), new(MockDocumentRepository))

		_, err := svc.SearchWithinDocument(ctx, "tenant-1", "doc-1", "", 3)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	})

	t.Run("store failure is classified transient", func(t *testing.T) {
		store := new(MockVectorStore)
		docs := new(MockDocumentRepository)
		svc := NewVectorSearchService(store, new(MockKnowledgeBaseRepository), docs)

		doc := newTestDocument(domain.DocumentStatusEmbedded)
		docs.On("GetByID", mock.Anything, "tenant-1", "doc-1").Return(doc, nil)
		searchErr := errors.New("dial tcp: connection refused")
		store.On("Search", mock.Anything, "kb-1", "query", 3, ChunkFilter{DocumentID: "doc-1"}).
			Return(nil, searchErr)

		_, err := svc.SearchWithinDocument(ctx, "tenant-1", "doc-1", "query", 3)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTransient))
		assert.ErrorIs(t, err, searchErr)
	})
}
