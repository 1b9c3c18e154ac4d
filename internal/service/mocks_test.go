package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/pagination"
)

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateProcessingState(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) ListByKnowledgeBase(ctx context.Context, tenantID, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, tenantID, knowledgeBaseID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockDocumentStateRepository is a mock implementation of DocumentStateRepository
type MockDocumentStateRepository struct {
	mock.Mock
}

func (m *MockDocumentStateRepository) UpdateProcessingState(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockKnowledgeBaseRepository is a mock implementation of KnowledgeBaseAdminRepository
type MockKnowledgeBaseRepository struct {
	mock.Mock
}

func (m *MockKnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	args := m.Called(ctx, kb)
	return args.Error(0)
}

func (m *MockKnowledgeBaseRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.KnowledgeBase, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBase), args.Error(1)
}

func (m *MockKnowledgeBaseRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeBase), args.Error(1)
}

func (m *MockKnowledgeBaseRepository) ListIDsByTenant(ctx context.Context, tenantID string) ([]string, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockConversationRepository is a mock implementation of ConversationAdminRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

// MockVectorStore is a mock implementation of VectorStore
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Add(ctx context.Context, collectionID string, meta domain.CollectionMetadata, chunks []domain.Chunk) ([]string, error) {
	args := m.Called(ctx, collectionID, meta, chunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockVectorStore) Search(ctx context.Context, collectionID, query string, k int, filter ChunkFilter) ([]domain.SearchResult, error) {
	args := m.Called(ctx, collectionID, query, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockVectorStore) Delete(ctx context.Context, collectionID string, filter ChunkFilter) error {
	args := m.Called(ctx, collectionID, filter)
	return args.Error(0)
}

// MockChunkReader is a mock implementation of ChunkReader
type MockChunkReader struct {
	mock.Mock
}

func (m *MockChunkReader) GetChunk(ctx context.Context, tenantID, chunkID string) (*domain.Chunk, error) {
	args := m.Called(ctx, tenantID, chunkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

// MockIngestJobCreator is a mock implementation of IngestJobRepositoryInterface
type MockIngestJobCreator struct {
	mock.Mock
}

func (m *MockIngestJobCreator) Create(ctx context.Context, job *domain.IngestJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockContentArchiver is a mock implementation of ContentArchiver and
// ArchiveRemover
type MockContentArchiver struct {
	mock.Mock
}

func (m *MockContentArchiver) PutDocumentText(ctx context.Context, tenantID, documentID, content string) error {
	args := m.Called(ctx, tenantID, documentID, content)
	return args.Error(0)
}

func (m *MockContentArchiver) DeleteDocumentText(ctx context.Context, tenantID, documentID string) error {
	args := m.Called(ctx, tenantID, documentID)
	return args.Error(0)
}

// MockCollectionSearcher is a mock implementation of CollectionSearcher
type MockCollectionSearcher struct {
	mock.Mock
}

func (m *MockCollectionSearcher) SearchSimilar(ctx context.Context, tenantID, query, knowledgeBaseID string, k int, threshold float64) (domain.SearchResults, error) {
	args := m.Called(ctx, tenantID, query, knowledgeBaseID, k, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.SearchResults), args.Error(1)
}

// stubTxRepositories hands out the transaction-scoped repository mocks.
type stubTxRepositories struct {
	docs *MockDocumentRepository
	jobs *MockIngestJobCreator
}

func (s *stubTxRepositories) Documents() DocumentRepositoryInterface  { return s.docs }
func (s *stubTxRepositories) IngestJobs() IngestJobRepositoryInterface { return s.jobs }

// stubTxRunner executes the transaction body against the stub repositories,
// or fails the whole transaction with err.
type stubTxRunner struct {
	repos *stubTxRepositories
	err   error
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(s.repos)
}

// MockUUIDGenerator returns a preset sequence of ids.
type MockUUIDGenerator struct {
	uuids []string
	index int
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (g *MockUUIDGenerator) NewString() string {
	if g.index >= len(g.uuids) {
		return "default-uuid"
	}
	id := g.uuids[g.index]
	g.index++
	return id
}
