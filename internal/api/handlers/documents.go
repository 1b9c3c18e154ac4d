package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loomnote/loomnote/internal/api"
	"github.com/loomnote/loomnote/internal/api/middleware"
	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/service"
)

type DocumentsService interface {
	Upload(ctx context.Context, input service.UploadDocumentInput) (*domain.Document, error)
	Get(ctx context.Context, tenantID, id string) (*domain.Document, error)
	List(ctx context.Context, tenantID, knowledgeBaseID, cursorToken string, limit int) (*service.DocumentPageResult, error)
	Delete(ctx context.Context, tenantID, id string) error
	GetChunk(ctx context.Context, tenantID, chunkID string) (*domain.Chunk, error)
}

// DocumentIngester runs the ingestion pipeline synchronously for one document.
type DocumentIngester interface {
	Ingest(ctx context.Context, tenantID, actorID, documentID string) service.IngestResult
}

type DocumentHandler struct {
	svc      DocumentsService
	ingester DocumentIngester
}

func NewDocumentHandler(svc DocumentsService, ingester DocumentIngester) *DocumentHandler {
	return &DocumentHandler{svc: svc, ingester: ingester}
}

type UploadDocumentRequest struct {
	KnowledgeBaseID string `json:"knowledge_base_id"`
	ConversationID  string `json:"conversation_id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	FileType        string `json:"file_type"`
	ExtractionTool  string `json:"extraction_tool"`
}

type DocumentResponse struct {
	ID              string `json:"id"`
	TenantID        string `json:"tenant_id"`
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`
	ConversationID  string `json:"conversation_id,omitempty"`
	Title           string `json:"title"`
	SHA256          string `json:"sha256,omitempty"`
	FileType        string `json:"file_type,omitempty"`
	Size            int64  `json:"size"`
	Status          string `json:"status"`
	ChunkCount      int    `json:"chunk_count"`
	TokenCount      int    `json:"token_count"`
	EmbeddingModel  string `json:"embedding_model,omitempty"`
	ProcessedAt     string `json:"processed_at,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type DocumentListResponse struct {
	Items      []*DocumentResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

type ChunkResponse struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Position   int               `json:"position"`
	TokenCount int               `json:"token_count"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type IngestResponse struct {
	Success     bool   `json:"success"`
	DocumentID  string `json:"document_id"`
	ChunksCount int    `json:"chunks_count"`
	Error       string `json:"error,omitempty"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:              d.ID,
		TenantID:        d.TenantID,
		KnowledgeBaseID: d.KnowledgeBaseID,
		ConversationID:  d.ConversationID,
		Title:           d.Title,
		SHA256:          d.SHA256,
		FileType:        d.FileType,
		Size:            d.Size,
		Status:          string(d.Status),
		ChunkCount:      d.ChunkCount,
		TokenCount:      d.TokenCount,
		EmbeddingModel:  d.EmbeddingModel,
		CreatedAt:       d.CreatedAt.Format(timeFormat),
		UpdatedAt:       d.UpdatedAt.Format(timeFormat),
	}
	if d.ProcessedAt != nil {
		resp.ProcessedAt = d.ProcessedAt.Format(timeFormat)
	}
	return resp
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	doc, err := h.svc.Upload(r.Context(), service.UploadDocumentInput{
		TenantID:        tenantID,
		ActorID:         middleware.GetActorID(r.Context()),
		KnowledgeBaseID: req.KnowledgeBaseID,
		ConversationID:  req.ConversationID,
		Title:           req.Title,
		Content:         req.Content,
		FileType:        req.FileType,
		ExtractionTool:  req.ExtractionTool,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	doc, err := h.svc.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	knowledgeBaseID := r.URL.Query().Get("knowledge_base_id")
	if knowledgeBaseID == "" {
		api.Error(w, http.StatusBadRequest, "knowledge_base_id is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.List(r.Context(), tenantID, knowledgeBaseID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, 0, len(page.Items))
	for _, d := range page.Items {
		items = append(items, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.Delete(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

// Ingest runs the pipeline synchronously for one document. The background
// worker covers the normal path; this endpoint exists for reprocessing after
// a change to chunking settings or a failed run's cause has been fixed.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result := h.ingester.Ingest(r.Context(), tenantID, middleware.GetActorID(r.Context()), chi.URLParam(r, "id"))

	resp := IngestResponse{
		Success:     result.Success,
		DocumentID:  result.DocumentID,
		ChunksCount: result.ChunksCount,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
		api.JSON(w, api.DomainErrorToHTTP(result.Err), resp)
		return
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *DocumentHandler) GetChunk(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	chunk, err := h.svc.GetChunk(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChunkResponse{
		ID:         chunk.ID,
		DocumentID: chunk.DocumentID,
		Content:    chunk.Content,
		Position:   chunk.Position,
		TokenCount: chunk.TokenCount,
		Attributes: chunk.Attributes,
	})
}
