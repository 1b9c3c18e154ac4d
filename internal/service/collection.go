package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomnote/loomnote/internal/domain"
)

// KnowledgeBaseRepository is the metadata-store view of knowledge bases.
// All lookups are tenant-scoped; a row belonging to another tenant is
// indistinguishable from a missing row.
type KnowledgeBaseRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.KnowledgeBase, error)
	ListIDsByTenant(ctx context.Context, tenantID string) ([]string, error)
}

// ConversationRepository is the metadata-store view of conversations.
type ConversationRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Conversation, error)
}

// CollectionResolver maps a document's owning entity to its vector
// collection. The collection id is the owning entity's UUID, never its
// display name, so renames leave vectors where they are.
type CollectionResolver struct {
	kbs   KnowledgeBaseRepository
	convs ConversationRepository
}

// NewCollectionResolver creates a new CollectionResolver instance
func NewCollectionResolver(kbs KnowledgeBaseRepository, convs ConversationRepository) *CollectionResolver {
	return &CollectionResolver{kbs: kbs, convs: convs}
}

// Resolve returns the collection id and metadata for the document's owning
// knowledge base or conversation. A document with neither or both refs set
// violates the Document invariant; that is reported as OwningEntityMissing
// rather than assumed away.
func (r *CollectionResolver) Resolve(ctx context.Context, doc *domain.Document) (string, domain.CollectionMetadata, error) {
	ref, isKB, err := doc.OwningRef()
	if err != nil {
		return "", domain.CollectionMetadata{}, err
	}

	if isKB {
		kb, err := r.kbs.GetByID(ctx, doc.TenantID, ref)
		if err != nil {
			if errors.Is(err, domain.ErrKnowledgeBaseNotFound) {
				return "", domain.CollectionMetadata{}, domain.NewDomainErrorWithCause(
					domain.ErrCodeNotFound, fmt.Sprintf("knowledge base %s not found", ref), domain.ErrOwningEntityNotFound)
			}
			return "", domain.CollectionMetadata{}, err
		}
		return kb.ID, domain.CollectionMetadata{TenantID: kb.TenantID, DisplayName: kb.Name}, nil
	}

	conv, err := r.convs.GetByID(ctx, doc.TenantID, ref)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return "", domain.CollectionMetadata{}, domain.NewDomainErrorWithCause(
				domain.ErrCodeNotFound, fmt.Sprintf("conversation %s not found", ref), domain.ErrOwningEntityNotFound)
		}
		return "", domain.CollectionMetadata{}, err
	}

	name := conv.Title
	if name == "" {
		name = "conversation " + conv.ID
	}
	return conv.ID, domain.CollectionMetadata{TenantID: conv.TenantID, DisplayName: name}, nil
}
