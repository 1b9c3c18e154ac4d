package service

import (
	"context"

	"github.com/loomnote/loomnote/internal/domain"
)

// EmbeddingClient turns text into fixed-dimension vectors. The concrete
// client is a long-lived shared singleton constructed at startup.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ChunkFilter restricts vector-store operations by chunk attributes.
// The zero value matches every chunk in the collection.
type ChunkFilter struct {
	DocumentID string
}

// VectorStore is the pluggable adapter for chunk vectors. A collection is a
// named partition keyed by the owning knowledge base or conversation UUID,
// created implicitly on first Add. Embedding happens inside the adapter on
// both Add and Search.
type VectorStore interface {
	// Add embeds and upserts the chunk batch keyed by each chunk's stable
	// id. The batch is atomic: either every chunk is visible to subsequent
	// searches or none is.
	Add(ctx context.Context, collectionID string, meta domain.CollectionMetadata, chunks []domain.Chunk) ([]string, error)

	// Search embeds query and returns up to k nearest chunks, scored with
	// similarity = 1 - cosine distance, clamped to [0,1].
	Search(ctx context.Context, collectionID, query string, k int, filter ChunkFilter) ([]domain.SearchResult, error)

	// Delete removes chunks matching filter from the collection.
	Delete(ctx context.Context, collectionID string, filter ChunkFilter) error
}
