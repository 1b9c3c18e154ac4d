package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomnote/loomnote/internal/domain"
)

type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, tenant_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.TenantID, nullableString(c.Title), c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	var title *string
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, title, created_at, updated_at
		 FROM conversations WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&c.ID, &c.TenantID, &title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	if title != nil {
		c.Title = *title
	}
	return &c, nil
}
