package service

import (
	"context"
	"strings"
	"time"

	"github.com/loomnote/loomnote/internal/domain"
)

// KnowledgeBaseAdminRepository extends the read-only view with the writes
// the management surface needs.
type KnowledgeBaseAdminRepository interface {
	KnowledgeBaseRepository
	Create(ctx context.Context, kb *domain.KnowledgeBase) error
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error)
}

// ConversationAdminRepository extends the read-only view with creation.
type ConversationAdminRepository interface {
	ConversationRepository
	Create(ctx context.Context, c *domain.Conversation) error
}

// WorkspaceService manages the entities documents attach to: knowledge
// bases and conversations. Deleting them is out of scope here; a knowledge
// base with live documents must not silently orphan its collection.
type WorkspaceService struct {
	kbs     KnowledgeBaseAdminRepository
	convs   ConversationAdminRepository
	uuidGen UUIDGenerator
}

// NewWorkspaceService creates a new WorkspaceService instance
func NewWorkspaceService(kbs KnowledgeBaseAdminRepository, convs ConversationAdminRepository, uuidGen UUIDGenerator) *WorkspaceService {
	return &WorkspaceService{kbs: kbs, convs: convs, uuidGen: uuidGen}
}

func (s *WorkspaceService) CreateKnowledgeBase(ctx context.Context, tenantID, name, description string) (*domain.KnowledgeBase, error) {
	if tenantID == "" {
		return nil, domain.ErrMissingTenant
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "knowledge base name is required")
	}

	now := time.Now().UTC()
	kb := &domain.KnowledgeBase{
		ID:          s.uuidGen.NewString(),
		TenantID:    tenantID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.kbs.Create(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

func (s *WorkspaceService) GetKnowledgeBase(ctx context.Context, tenantID, id string) (*domain.KnowledgeBase, error) {
	return s.kbs.GetByID(ctx, tenantID, id)
}

func (s *WorkspaceService) ListKnowledgeBases(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error) {
	if tenantID == "" {
		return nil, domain.ErrMissingTenant
	}
	return s.kbs.ListByTenant(ctx, tenantID)
}

func (s *WorkspaceService) CreateConversation(ctx context.Context, tenantID, title string) (*domain.Conversation, error) {
	if tenantID == "" {
		return nil, domain.ErrMissingTenant
	}

	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *WorkspaceService) GetConversation(ctx context.Context, tenantID, id string) (*domain.Conversation, error) {
	return s.convs.GetByID(ctx, tenantID, id)
}
