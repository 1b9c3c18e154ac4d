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

func TestWorkspaceService_CreateKnowledgeBase(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a knowledge base", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewWorkspaceService(kbs, new(MockConversationRepository), NewMockUUIDGenerator("kb-uuid"))

		kbs.On("Create", ctx, mock.MatchedBy(func(kb *domain.KnowledgeBase) bool {
			return kb.ID == "kb-uuid" && kb.TenantID == "tenant-1" && kb.Name == "Handbook"
		})).Return(nil)

		kb, err := svc.CreateKnowledgeBase(ctx, "tenant-1", "  Handbook  ", "company docs")
		require.NoError(t, err)
		assert.Equal(t, "kb-uuid", kb.ID)
		assert.Equal(t, "Handbook", kb.Name)
		assert.Equal(t, "company docs", kb.Description)
		kbs.AssertExpectations(t)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		svc := NewWorkspaceService(new(MockKnowledgeBaseRepository), new(MockConversationRepository), NewMockUUIDGenerator())

		_, err := svc.CreateKnowledgeBase(ctx, "", "Handbook", "")
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
	})

	t.Run("requires a name", func(t *testing.T) {
		svc := NewWorkspaceService(new(MockKnowledgeBaseRepository), new(MockConversationRepository), NewMockUUIDGenerator())

		_, err := svc.CreateKnowledgeBase(ctx, "tenant-1", "   ", "")
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewWorkspaceService(kbs, new(MockConversationRepository), NewMockUUIDGenerator("kb-uuid"))

		kbs.On("Create", ctx, mock.Anything).Return(errors.New("unique violation"))

		_, err := svc.CreateKnowledgeBase(ctx, "tenant-1", "Handbook", "")
		assert.Error(t, err)
	})
}

func TestWorkspaceService_ListKnowledgeBases(t *testing.T) {
	ctx := context.Background()

	t.Run("lists the tenant's knowledge bases", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		svc := NewWorkspaceService(kbs, new(MockConversationRepository), NewMockUUIDGenerator())

		kbs.On("ListByTenant", ctx, "tenant-1").Return([]*domain.KnowledgeBase{testKnowledgeBase()}, nil)

		list, err := svc.ListKnowledgeBases(ctx, "tenant-1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		svc := NewWorkspaceService(new(MockKnowledgeBaseRepository), new(MockConversationRepository), NewMockUUIDGenerator())

		_, err := svc.ListKnowledgeBases(ctx, "")
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
	})
}

func TestWorkspaceService_CreateConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a conversation", func(t *testing.T) {
		convs := new(MockConversationRepository)
		svc := NewWorkspaceService(new(MockKnowledgeBaseRepository), convs, NewMockUUIDGenerator("conv-uuid"))

		convs.On("Create", ctx, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.ID == "conv-uuid" && c.TenantID == "tenant-1" && c.Title == "Support chat"
		})).Return(nil)

		conv, err := svc.CreateConversation(ctx, "tenant-1", "Support chat")
		require.NoError(t, err)
		assert.Equal(t, "conv-uuid", conv.ID)
		convs.AssertExpectations(t)
	})

	t.Run("an untitled conversation is allowed", func(t *testing.T) {
		convs := new(MockConversationRepository)
		svc := NewWorkspaceService(new(MockKnowledgeBaseRepository), convs, NewMockUUIDGenerator("conv-uuid"))

		convs.On("Create", ctx, mock.Anything).Return(nil)

		conv, err := svc.CreateConversation(ctx, "tenant-1", "")
		require.NoError(t, err)
		assert.Empty(t, conv.Title)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		svc := NewWorkspaceService(new(MockKnowledgeBaseRepository), new(MockConversationRepository), NewMockUUIDGenerator())

		_, err := svc.CreateConversation(ctx, "", "Support chat")
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
	})
}
