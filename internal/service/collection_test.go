package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomnote/loomnote/internal/domain"
)

func TestCollectionResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("knowledge base document resolves to the knowledge base id", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		convs := new(MockConversationRepository)
		resolver := NewCollectionResolver(kbs, convs)

		kbs.On("GetByID", ctx, "tenant-1", "kb-1").Return(testKnowledgeBase(), nil)

		doc := newTestDocument(domain.DocumentStatusUploaded)
		collectionID, meta, err := resolver.Resolve(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, "kb-1", collectionID)
		assert.Equal(t, domain.CollectionMetadata{TenantID: "tenant-1", DisplayName: "Handbook"}, meta)
		convs.AssertNotCalled(t, "GetByID")
	})

	t.Run("conversation document resolves to the conversation id", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		convs := new(MockConversationRepository)
		resolver := NewCollectionResolver(kbs, convs)

		convs.On("GetByID", ctx, "tenant-1", "conv-1").Return(&domain.Conversation{
			ID: "conv-1", TenantID: "tenant-1", Title: "Support chat",
		}, nil)

		doc := newTestDocument(domain.DocumentStatusUploaded)
		doc.KnowledgeBaseID = ""
		doc.ConversationID = "conv-1"

		collectionID, meta, err := resolver.Resolve(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, "conv-1", collectionID)
		assert.Equal(t, "Support chat", meta.DisplayName)
		kbs.AssertNotCalled(t, "GetByID")
	})

	t.Run("untitled conversation gets a fallback display name", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		convs := new(MockConversationRepository)
		resolver := NewCollectionResolver(kbs, convs)

		convs.On("GetByID", ctx, "tenant-1", "conv-1").Return(&domain.Conversation{
			ID: "conv-1", TenantID: "tenant-1",
		}, nil)

		doc := newTestDocument(domain.DocumentStatusUploaded)
		doc.KnowledgeBaseID = ""
		doc.ConversationID = "conv-1"

		_, meta, err := resolver.Resolve(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, "conversation conv-1", meta.DisplayName)
	})

	t.Run("document owned by both is invalid", func(t *testing.T) {
		resolver := NewCollectionResolver(new(MockKnowledgeBaseRepository), new(MockConversationRepository))

		doc := newTestDocument(domain.DocumentStatusUploaded)
		doc.ConversationID = "conv-1"

		_, _, err := resolver.Resolve(ctx, doc)
		assert.ErrorIs(t, err, domain.ErrOwningEntityMissing)
	})

	t.Run("document owned by neither is invalid", func(t *testing.T) {
		resolver := NewCollectionResolver(new(MockKnowledgeBaseRepository), new(MockConversationRepository))

		doc := newTestDocument(domain.DocumentStatusUploaded)
		doc.KnowledgeBaseID = ""

		_, _, err := resolver.Resolve(ctx, doc)
		assert.ErrorIs(t, err, domain.ErrOwningEntityMissing)
	})

	t.Run("missing knowledge base is reported as not found", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		resolver := NewCollectionResolver(kbs, new(MockConversationRepository))

		kbs.On("GetByID", ctx, "tenant-1", "kb-1").Return(nil, domain.ErrKnowledgeBaseNotFound)

		doc := newTestDocument(domain.DocumentStatusUploaded)
		_, _, err := resolver.Resolve(ctx, doc)
		assert.ErrorIs(t, err, domain.ErrOwningEntityNotFound)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeNotFound))
	})

	t.Run("missing conversation is reported as not found", func(t *testing.T) {
		convs := new(MockConversationRepository)
		resolver := NewCollectionResolver(new(MockKnowledgeBaseRepository), convs)

		convs.On("GetByID", ctx, "tenant-1", "conv-1").Return(nil, domain.ErrConversationNotFound)

		doc := newTestDocument(domain.DocumentStatusUploaded)
		doc.KnowledgeBaseID = ""
		doc.ConversationID = "conv-1"

		_, _, err := resolver.Resolve(ctx, doc)
		assert.ErrorIs(t, err, domain.ErrOwningEntityNotFound)
	})

	t.Run("repository infrastructure errors pass through", func(t *testing.T) {
		kbs := new(MockKnowledgeBaseRepository)
		resolver := NewCollectionResolver(kbs, new(MockConversationRepository))

		infraErr := errors.New("connection refused")
		kbs.On("GetByID", ctx, "tenant-1", "kb-1").Return(nil, infraErr)

		doc := newTestDocument(domain.DocumentStatusUploaded)
		_, _, err := resolver.Resolve(ctx, doc)
		assert.ErrorIs(t, err, infraErr)
	})
}
