package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loomnote/loomnote/internal/api"
	"github.com/loomnote/loomnote/internal/api/middleware"
	"github.com/loomnote/loomnote/internal/domain"
)

type WorkspaceManager interface {
	CreateKnowledgeBase(ctx context.Context, tenantID, name, description string) (*domain.KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, tenantID, id string) (*domain.KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error)
	CreateConversation(ctx context.Context, tenantID, title string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, tenantID, id string) (*domain.Conversation, error)
}

type WorkspaceHandler struct {
	svc WorkspaceManager
}

func NewWorkspaceHandler(svc WorkspaceManager) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc}
}

type CreateKnowledgeBaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type KnowledgeBaseResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ConversationResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func knowledgeBaseToResponse(kb *domain.KnowledgeBase) *KnowledgeBaseResponse {
	return &KnowledgeBaseResponse{
		ID:          kb.ID,
		TenantID:    kb.TenantID,
		Name:        kb.Name,
		Description: kb.Description,
		CreatedAt:   kb.CreatedAt.Format(timeFormat),
		UpdatedAt:   kb.UpdatedAt.Format(timeFormat),
	}
}

func conversationToResponse(c *domain.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:        c.ID,
		TenantID:  c.TenantID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.Format(timeFormat),
		UpdatedAt: c.UpdatedAt.Format(timeFormat),
	}
}

func (h *WorkspaceHandler) CreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateKnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kb, err := h.svc.CreateKnowledgeBase(r.Context(), tenantID, req.Name, req.Description)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, knowledgeBaseToResponse(kb))
}

func (h *WorkspaceHandler) GetKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kb, err := h.svc.GetKnowledgeBase(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeBaseToResponse(kb))
}

func (h *WorkspaceHandler) ListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kbs, err := h.svc.ListKnowledgeBases(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*KnowledgeBaseResponse, 0, len(kbs))
	for _, kb := range kbs {
		out = append(out, knowledgeBaseToResponse(kb))
	}
	api.Success(w, http.StatusOK, out)
}

func (h *WorkspaceHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.svc.CreateConversation(r.Context(), tenantID, req.Title)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, conversationToResponse(conv))
}

func (h *WorkspaceHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conv, err := h.svc.GetConversation(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, conversationToResponse(conv))
}
