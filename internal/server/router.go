package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loomnote/loomnote/internal/api"
	"github.com/loomnote/loomnote/internal/api/handlers"
	"github.com/loomnote/loomnote/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler  *handlers.DocumentHandler
	SearchHandler    *handlers.SearchHandler
	WorkspaceHandler *handlers.WorkspaceHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 10 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.TenantContext)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/ingest", cfg.DocumentHandler.Ingest)
		})

		r.Get("/chunks/{id}", cfg.DocumentHandler.GetChunk)

		r.Post("/search", cfg.SearchHandler.Search)
		r.Post("/search/across", cfg.SearchHandler.SearchAcross)

		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Post("/", cfg.WorkspaceHandler.CreateKnowledgeBase)
			r.Get("/", cfg.WorkspaceHandler.ListKnowledgeBases)
			r.Get("/{id}", cfg.WorkspaceHandler.GetKnowledgeBase)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", cfg.WorkspaceHandler.CreateConversation)
			r.Get("/{id}", cfg.WorkspaceHandler.GetConversation)
		})
	})

	return r
}
