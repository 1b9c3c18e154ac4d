package middleware

import (
	"context"
	"net/http"

	"github.com/loomnote/loomnote/internal/api"
)

type contextKey string

const (
	TenantIDKey contextKey = "tenant_id"
	ActorIDKey  contextKey = "actor_id"
)

// TenantContext extracts tenant and actor identity from request headers.
// Every data-plane route is tenant-scoped, so a missing tenant header is
// rejected before the handler runs. The actor is optional and only used for
// audit attribution.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			api.Error(w, http.StatusUnauthorized, "missing tenant header")
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
		if actorID := r.Header.Get("X-Actor-ID"); actorID != "" {
			ctx = context.WithValue(ctx, ActorIDKey, actorID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTenantID returns the tenant ID from context.
func GetTenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}

// GetActorID returns the actor ID from context.
func GetActorID(ctx context.Context) string {
	actorID, _ := ctx.Value(ActorIDKey).(string)
	return actorID
}
