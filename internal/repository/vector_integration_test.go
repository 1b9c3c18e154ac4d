//go:build integration

package repository

import (
	"context"
	"hash/fnv"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/service"
	"github.com/loomnote/loomnote/internal/testutil"
)

// fakeEmbedder produces deterministic unit vectors from the text hash, so
// identical texts are identical vectors and similarity search has real
// geometry to work with.
type fakeEmbedder struct{}

func (fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, 1536)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed)) / math.MaxInt64
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func (f fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		e, err := f.GenerateEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (fakeEmbedder) Model() string { return "fake-embedder" }

func chunkBatch(documentID, tenantID string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(documentID, i),
			DocumentID: documentID,
			Content:    text,
			Position:   i,
			TokenCount: 2,
			Attributes: map[string]string{"tenant_id": tenantID, "document_id": documentID},
		})
	}
	return chunks
}

func TestVectorRepository_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, fakeEmbedder{})

	tenantID := uuid.NewString()
	collectionID := uuid.NewString()
	documentID := uuid.NewString()
	meta := domain.CollectionMetadata{TenantID: tenantID, DisplayName: "Handbook"}

	ids, err := repo.Add(ctx, collectionID, meta, chunkBatch(documentID, tenantID,
		"onboarding checklist", "expense policy", "vacation rules"))
	require.NoError(t, err)
	require.Len(t, ids, 3)

	results, err := repo.Search(ctx, collectionID, "onboarding checklist", 3, service.ChunkFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	// The identical text embeds to the identical vector: similarity 1.
	assert.Equal(t, "onboarding checklist", results[0].Content)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 0.01)
	assert.Equal(t, collectionID, results[0].SourceCollection)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.SimilarityScore, 0.0)
		assert.LessOrEqual(t, r.SimilarityScore, 1.0)
	}
}

func TestVectorRepository_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, fakeEmbedder{})

	tenantID := uuid.NewString()
	collectionID := uuid.NewString()
	documentID := uuid.NewString()
	meta := domain.CollectionMetadata{TenantID: tenantID, DisplayName: "Handbook"}

	_, err := repo.Add(ctx, collectionID, meta, chunkBatch(documentID, tenantID, "first version"))
	require.NoError(t, err)
	// Same chunk ids, new content: the upsert replaces instead of duplicating.
	_, err = repo.Add(ctx, collectionID, meta, chunkBatch(documentID, tenantID, "second version"))
	require.NoError(t, err)

	results, err := repo.Search(ctx, collectionID, "second version", 10, service.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second version", results[0].Content)
}

func TestVectorRepository_DocumentFilter(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, fakeEmbedder{})

	tenantID := uuid.NewString()
	collectionID := uuid.NewString()
	docA := uuid.NewString()
	docB := uuid.NewString()
	meta := domain.CollectionMetadata{TenantID: tenantID, DisplayName: "Handbook"}

	_, err := repo.Add(ctx, collectionID, meta, chunkBatch(docA, tenantID, "alpha text"))
	require.NoError(t, err)
	_, err = repo.Add(ctx, collectionID, meta, chunkBatch(docB, tenantID, "beta text"))
	require.NoError(t, err)

	results, err := repo.Search(ctx, collectionID, "alpha text", 10, service.ChunkFilter{DocumentID: docB})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, docB, results[0].DocumentID)
}

func TestVectorRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, fakeEmbedder{})

	tenantID := uuid.NewString()
	collectionID := uuid.NewString()
	docA := uuid.NewString()
	docB := uuid.NewString()
	meta := domain.CollectionMetadata{TenantID: tenantID, DisplayName: "Handbook"}

	_, err := repo.Add(ctx, collectionID, meta, chunkBatch(docA, tenantID, "alpha text"))
	require.NoError(t, err)
	_, err = repo.Add(ctx, collectionID, meta, chunkBatch(docB, tenantID, "beta text"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, collectionID, service.ChunkFilter{DocumentID: docA}))

	results, err := repo.Search(ctx, collectionID, "alpha text", 10, service.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, docB, results[0].DocumentID)

	require.NoError(t, repo.Delete(ctx, collectionID, service.ChunkFilter{}))
	results, err = repo.Search(ctx, collectionID, "beta text", 10, service.ChunkFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorRepository_GetChunk(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, fakeEmbedder{})

	tenantID := uuid.NewString()
	collectionID := uuid.NewString()
	documentID := uuid.NewString()
	meta := domain.CollectionMetadata{TenantID: tenantID, DisplayName: "Handbook"}

	chunks := chunkBatch(documentID, tenantID, "stored chunk text")
	_, err := repo.Add(ctx, collectionID, meta, chunks)
	require.NoError(t, err)

	stored, err := repo.GetChunk(ctx, tenantID, chunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "stored chunk text", stored.Content)
	assert.Equal(t, documentID, stored.DocumentID)
	assert.Equal(t, 0, stored.Position)
	assert.Equal(t, tenantID, stored.Attributes["tenant_id"])

	// Another tenant cannot read it.
	_, err = repo.GetChunk(ctx, uuid.NewString(), chunks[0].ID)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)

	_, err = repo.GetChunk(ctx, tenantID, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}
