package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/pagination"
	"github.com/loomnote/loomnote/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents
			(id, tenant_id, knowledge_base_id, conversation_id, title, content, sha256, file_type, size,
			 status, chunk_count, token_count, embedding_model, extraction_tool, processed_at,
			 created_at, created_by, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		d.ID, d.TenantID, nullableString(d.KnowledgeBaseID), nullableString(d.ConversationID),
		d.Title, nullableString(d.Content), nullableString(d.SHA256), nullableString(d.FileType), d.Size,
		d.Status, d.ChunkCount, d.TokenCount, nullableString(d.EmbeddingModel), nullableString(d.ExtractionTool), d.ProcessedAt,
		d.CreatedAt, d.CreatedBy, d.UpdatedAt, d.UpdatedBy,
	)
	return err
}

const documentColumns = `id, tenant_id, knowledge_base_id, conversation_id, title, content, sha256, file_type, size,
	 status, chunk_count, token_count, embedding_model, extraction_tool, processed_at,
	 created_at, created_by, updated_at, updated_by`

func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// UpdateProcessingState persists a status transition together with all
// derived and audit fields in a single statement.
func (r *DocumentRepository) UpdateProcessingState(ctx context.Context, d *domain.Document) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, chunk_count = $2, token_count = $3, embedding_model = $4,
		     processed_at = $5, updated_at = $6, updated_by = $7
		 WHERE id = $8 AND tenant_id = $9`,
		d.Status, d.ChunkCount, d.TokenCount, nullableString(d.EmbeddingModel),
		d.ProcessedAt, d.UpdatedAt, d.UpdatedBy, d.ID, d.TenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) ListByKnowledgeBase(ctx context.Context, tenantID, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE tenant_id = $1 AND knowledge_base_id = $2 AND (created_at, id) < ($3, $4)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $5`,
			tenantID, knowledgeBaseID, cursor.CreatedAt, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE tenant_id = $1 AND knowledge_base_id = $2
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			tenantID, knowledgeBaseID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.Cursor{LastID: last.ID, CreatedAt: last.CreatedAt}.Encode()
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var d domain.Document
	var kbID, convID, content, sha, fileType, model, tool *string
	var processedAt *time.Time
	err := row.Scan(
		&d.ID, &d.TenantID, &kbID, &convID, &d.Title, &content, &sha, &fileType, &d.Size,
		&d.Status, &d.ChunkCount, &d.TokenCount, &model, &tool, &processedAt,
		&d.CreatedAt, &d.CreatedBy, &d.UpdatedAt, &d.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if kbID != nil {
		d.KnowledgeBaseID = *kbID
	}
	if convID != nil {
		d.ConversationID = *convID
	}
	if content != nil {
		d.Content = *content
	}
	if sha != nil {
		d.SHA256 = *sha
	}
	if fileType != nil {
		d.FileType = *fileType
	}
	if model != nil {
		d.EmbeddingModel = *model
	}
	if tool != nil {
		d.ExtractionTool = *tool
	}
	d.ProcessedAt = processedAt
	return &d, nil
}
