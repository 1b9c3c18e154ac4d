package domain

import "time"

// KnowledgeBase is a tenant-owned library of documents. Its UUID doubles as
// the vector collection id, so renaming a knowledge base never moves vectors.
type KnowledgeBase struct {
	ID          string
	TenantID    string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Conversation is a chat session whose uploaded documents form a
// scratch-space collection keyed by the conversation UUID.
type Conversation struct {
	ID        string
	TenantID  string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CollectionMetadata is attached to a vector collection when it is
// implicitly created on first write.
type CollectionMetadata struct {
	TenantID    string
	DisplayName string
}
