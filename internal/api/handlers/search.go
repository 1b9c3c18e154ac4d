package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/loomnote/loomnote/internal/api"
	"github.com/loomnote/loomnote/internal/api/middleware"
	"github.com/loomnote/loomnote/internal/domain"
	"github.com/loomnote/loomnote/internal/service"
)

type SearchService interface {
	SearchSimilar(ctx context.Context, tenantID, query, knowledgeBaseID string, k int, threshold float64) (domain.SearchResults, error)
	SearchWithinDocument(ctx context.Context, tenantID, documentID, query string, k int) (domain.SearchResults, error)
}

type RetrievalFanout interface {
	SearchAcross(ctx context.Context, tenantID, query string, knowledgeBaseIDs []string, kPerCollection int, threshold float64) (domain.SearchResults, error)
}

type SearchHandler struct {
	search    SearchService
	retrieval RetrievalFanout
}

func NewSearchHandler(search SearchService, retrieval RetrievalFanout) *SearchHandler {
	return &SearchHandler{search: search, retrieval: retrieval}
}

type SearchRequest struct {
	Query           string   `json:"query"`
	KnowledgeBaseID string   `json:"knowledge_base_id"`
	DocumentID      string   `json:"document_id"`
	K               int      `json:"k"`
	Threshold       *float64 `json:"threshold"`
}

type SearchAcrossRequest struct {
	Query            string   `json:"query"`
	KnowledgeBaseIDs []string `json:"knowledge_base_ids"`
	KPerCollection   int      `json:"k_per_collection"`
	Threshold        *float64 `json:"threshold"`
	Limit            int      `json:"limit"`
}

type SearchResultResponse struct {
	Content          string  `json:"content"`
	SimilarityScore  float64 `json:"similarity_score"`
	DocumentID       string  `json:"document_id"`
	ChunkID          string  `json:"chunk_id"`
	Position         int     `json:"position"`
	SourceCollection string  `json:"source_collection,omitempty"`
}

type SearchResponse struct {
	Results []SearchResultResponse `json:"results"`
}

func resultsToResponse(results domain.SearchResults) SearchResponse {
	out := make([]SearchResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResultResponse{
			Content:          r.Content,
			SimilarityScore:  r.SimilarityScore,
			DocumentID:       r.DocumentID,
			ChunkID:          r.ChunkID,
			Position:         r.Position,
			SourceCollection: r.SourceCollection,
		})
	}
	return SearchResponse{Results: out}
}

// Search answers a similarity query against one knowledge base, or against a
// single document when document_id is set.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	var results domain.SearchResults
	var err error
	switch {
	case req.DocumentID != "":
		results, err = h.search.SearchWithinDocument(r.Context(), tenantID, req.DocumentID, req.Query, req.K)
	case req.KnowledgeBaseID != "":
		threshold := service.DefaultSimilarityThreshold
		if req.Threshold != nil {
			threshold = *req.Threshold
		}
		results, err = h.search.SearchSimilar(r.Context(), tenantID, req.Query, req.KnowledgeBaseID, req.K, threshold)
	default:
		api.Error(w, http.StatusBadRequest, "knowledge_base_id or document_id is required")
		return
	}
	if err != nil {
		// A transient backend fault degrades retrieval to an empty answer;
		// search is advisory and the caller can proceed without context.
		if domain.IsErrorCode(err, domain.ErrCodeTransient) {
			log.Printf("search degraded to empty results: %v", err)
			api.Success(w, http.StatusOK, resultsToResponse(nil))
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}

// SearchAcross fans a query out over several knowledge bases and returns one
// merged ranked list.
func (h *SearchHandler) SearchAcross(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchAcrossRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	threshold := service.DefaultSimilarityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	results, err := h.retrieval.SearchAcross(r.Context(), tenantID, req.Query, req.KnowledgeBaseIDs, req.KPerCollection, threshold)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if req.Limit > 0 {
		results = results.Limit(req.Limit)
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}
