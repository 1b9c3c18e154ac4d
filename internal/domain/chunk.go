package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// chunkNamespace is the UUIDv5 namespace for deriving chunk ids.
var chunkNamespace = uuid.MustParse("9f2c1a4e-6b7d-4c2a-8f3e-5d1b0a9c8e71")

// ChunkID derives a stable chunk id from the owning document and position.
// Re-ingesting the same document yields the same ids, so vector-store writes
// upsert instead of duplicating.
func ChunkID(documentID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", documentID, position))).String()
}

// Chunk is a bounded slice of a document's text, the unit of embedding and
// retrieval. Chunks are immutable once written; re-ingestion replaces the
// whole set for a document.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Position   int
	TokenCount int
	Attributes map[string]string
}

// SearchResult is a transient similarity hit; it is never persisted.
type SearchResult struct {
	Content          string
	SimilarityScore  float64
	DocumentID       string
	ChunkID          string
	Position         int
	SourceCollection string
}

// SearchResults is an ordered result list (similarity descending).
type SearchResults []SearchResult

// Limit truncates the list to at most n results. n <= 0 leaves it unchanged;
// fan-out search returns the full merged list and lets callers cap it here.
func (r SearchResults) Limit(n int) SearchResults {
	if n <= 0 || len(r) <= n {
		return r
	}
	return r[:n]
}
