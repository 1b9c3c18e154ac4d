package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/service"
)

// VectorRepository stores chunk embeddings in Postgres with pgvector. It
// embeds text itself on both write and query paths, so callers only ever
// deal in plain text.
type VectorRepository struct {
	pool     *pgxpool.Pool
	embedder service.EmbeddingClient
}

func NewVectorRepository(pool *pgxpool.Pool, embedder service.EmbeddingClient) *VectorRepository {
	return &VectorRepository{pool: pool, embedder: embedder}
}

// Add embeds the batch and upserts it inside one transaction. The owning
// collection row is created on first use.
func (r *VectorRepository) Add(ctx context.Context, collectionID string, meta domain.CollectionMetadata, chunks []domain.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := r.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(chunks) {
		return nil, errors.New("embedding count does not match chunk count")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO collections (id, tenant_id, display_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = EXCLUDED.updated_at`,
		collectionID, meta.TenantID, meta.DisplayName, now,
	)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks
				(id, collection_id, tenant_id, document_id, chunk_index, content, token_count, attributes, embedding, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			 ON CONFLICT (id) DO UPDATE SET
				collection_id = EXCLUDED.collection_id,
				content = EXCLUDED.content,
				token_count = EXCLUDED.token_count,
				attributes = EXCLUDED.attributes,
				embedding = EXCLUDED.embedding,
				updated_at = EXCLUDED.updated_at`,
			c.ID, collectionID, meta.TenantID, c.DocumentID, c.Position, c.Content, c.TokenCount,
			c.Attributes, pgvector.NewVector(embeddings[i]), now,
		)
		if err != nil {
			return nil, err
		}
		ids[i] = c.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// Search embeds query and returns the k nearest chunks by cosine distance.
func (r *VectorRepository) Search(ctx context.Context, collectionID, query string, k int, filter service.ChunkFilter) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	vec := pgvector.NewVector(embedding)

	var rows pgx.Rows
	if filter.DocumentID != "" {
		rows, err = r.pool.Query(ctx,
			`SELECT id, document_id, content, chunk_index, 1 - (embedding <=> $1) AS score
			 FROM document_chunks
			 WHERE collection_id = $2 AND document_id = $3
			 ORDER BY embedding <=> $1
			 LIMIT $4`,
			vec, collectionID, filter.DocumentID, k,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT id, document_id, content, chunk_index, 1 - (embedding <=> $1) AS score
			 FROM document_chunks
			 WHERE collection_id = $2
			 ORDER BY embedding <=> $1
			 LIMIT $3`,
			vec, collectionID, k,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, k)
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.ChunkID, &res.DocumentID, &res.Content, &res.Position, &res.SimilarityScore); err != nil {
			return nil, err
		}
		res.SourceCollection = collectionID
		res.SimilarityScore = clampScore(res.SimilarityScore)
		results = append(results, res)
	}
	return results, rows.Err()
}

// Delete removes chunks matching filter from the collection. An empty filter
// purges the whole collection.
func (r *VectorRepository) Delete(ctx context.Context, collectionID string, filter service.ChunkFilter) error {
	if filter.DocumentID != "" {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM document_chunks WHERE collection_id = $1 AND document_id = $2`,
			collectionID, filter.DocumentID,
		)
		return err
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM document_chunks WHERE collection_id = $1`,
		collectionID,
	)
	return err
}

// GetChunk returns a stored chunk by id, scoped to the tenant.
func (r *VectorRepository) GetChunk(ctx context.Context, tenantID, chunkID string) (*domain.Chunk, error) {
	var c domain.Chunk
	err := r.pool.QueryRow(ctx,
		`SELECT id, document_id, content, chunk_index, token_count, attributes
		 FROM document_chunks WHERE id = $1 AND tenant_id = $2`,
		chunkID, tenantID,
	).Scan(&c.ID, &c.DocumentID, &c.Content, &c.Position, &c.TokenCount, &c.Attributes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return &c, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
