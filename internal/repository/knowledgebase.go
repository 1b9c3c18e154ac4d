package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomnote/loomnote/internal/domain"
)

type KnowledgeBaseRepository struct {
	db dbtx
}

func NewKnowledgeBaseRepository(pool *pgxpool.Pool) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: pool}
}

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_bases (id, tenant_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		kb.ID, kb.TenantID, kb.Name, nullableString(kb.Description), kb.CreatedAt, kb.UpdatedAt,
	)
	return err
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	var desc *string
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, name, description, created_at, updated_at
		 FROM knowledge_bases WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&kb.ID, &kb.TenantID, &kb.Name, &desc, &kb.CreatedAt, &kb.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	if desc != nil {
		kb.Description = *desc
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, name, description, created_at, updated_at
		 FROM knowledge_bases WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kbs []*domain.KnowledgeBase
	for rows.Next() {
		var kb domain.KnowledgeBase
		var desc *string
		if err := rows.Scan(&kb.ID, &kb.TenantID, &kb.Name, &desc, &kb.CreatedAt, &kb.UpdatedAt); err != nil {
			return nil, err
		}
		if desc != nil {
			kb.Description = *desc
		}
		kbs = append(kbs, &kb)
	}
	return kbs, rows.Err()
}

func (r *KnowledgeBaseRepository) ListIDsByTenant(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM knowledge_bases WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
