package domain

import (
	"time"
)

// DocumentStatus represents a document's processing lifecycle state
type DocumentStatus string

const (
	DocumentStatusUploaded  DocumentStatus = "uploaded"
	DocumentStatusExtracted DocumentStatus = "extracted"
	DocumentStatusEmbedded  DocumentStatus = "embedded"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// statusFlow defines the legal transitions between document statuses.
// embedded and failed are terminal.
var statusFlow = map[DocumentStatus][]DocumentStatus{
	DocumentStatusUploaded:  {DocumentStatusExtracted, DocumentStatusFailed},
	DocumentStatusExtracted: {DocumentStatusEmbedded, DocumentStatusFailed},
	DocumentStatusEmbedded:  {},
	DocumentStatusFailed:    {},
}

// CanTransition reports whether a document may move from current to target.
func CanTransition(current, target DocumentStatus) bool {
	for _, allowed := range statusFlow[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from current.
func NextStatuses(current DocumentStatus) []DocumentStatus {
	return statusFlow[current]
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusExtracted, DocumentStatusEmbedded, DocumentStatusFailed:
		return true
	}
	return false
}

// Document represents an ingested document scoped to a tenant.
// Exactly one of KnowledgeBaseID or ConversationID must be set.
type Document struct {
	ID              string
	TenantID        string
	KnowledgeBaseID string
	ConversationID  string
	Title           string
	Content         string
	SHA256          string
	FileType        string
	Size            int64
	Status          DocumentStatus
	ChunkCount      int
	TokenCount      int
	EmbeddingModel  string
	ExtractionTool  string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	CreatedBy       string
	UpdatedAt       time.Time
	UpdatedBy       string
}

// OwningRef returns the id of the owning entity and whether it is a
// knowledge base (as opposed to a conversation).
func (d *Document) OwningRef() (id string, isKnowledgeBase bool, err error) {
	hasKB := d.KnowledgeBaseID != ""
	hasConv := d.ConversationID != ""
	if hasKB == hasConv {
		return "", false, ErrOwningEntityMissing
	}
	if hasKB {
		return d.KnowledgeBaseID, true, nil
	}
	return d.ConversationID, false, nil
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return NewDomainError(ErrCodeValidation, "document cannot be nil")
	}
	if d.ID == "" {
		return NewDomainError(ErrCodeValidation, "document ID is required")
	}
	if d.TenantID == "" {
		return ErrMissingTenant
	}
	if d.Title == "" {
		return NewDomainError(ErrCodeValidation, "document title is required")
	}
	if !isValidDocumentStatus(d.Status) {
		return ErrInvalidDocStatus
	}
	if _, _, err := d.OwningRef(); err != nil {
		return err
	}
	return nil
}
