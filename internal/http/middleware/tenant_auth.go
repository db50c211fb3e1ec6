package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tavolo/reservations/internal/http/response"
	"github.com/tavolo/reservations/internal/repo/postgres"
	"github.com/tavolo/reservations/pkg/auth"
	"github.com/tavolo/reservations/pkg/logger"
)

type tenantKey struct{}

// TenantID returns the authenticated tenant id placed in the context by
// RequireTenant, or 0.
func TenantID(ctx context.Context) int64 {
	if id, ok := ctx.Value(tenantKey{}).(int64); ok {
		return id
	}
	return 0
}

// WithTenantID is used by handler tests to pre-authenticate a request.
func WithTenantID(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// RequireTenant authenticates owner requests either by X-API-Key (checked
// against the argon2id hash on the tenant row) or by a dashboard session JWT.
func RequireTenant(tenants postgres.TenantsRepo, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				tenantID, err := auth.SplitAPIKey(apiKey)
				if err != nil {
					response.Unauthorized(w, "invalid api key")
					return
				}
				t, err := tenants.GetTenant(r.Context(), tenantID)
				if err != nil || t == nil || !auth.VerifyAPIKey(apiKey, t.APIKeyHash) {
					response.Unauthorized(w, "invalid api key")
					return
				}
				serve(next, w, r, tenantID)
				return
			}

			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				claims, err := auth.Parse(strings.TrimPrefix(header, "Bearer "), jwtSecret)
				if err != nil || claims.TenantID <= 0 {
					response.Unauthorized(w, "invalid session token")
					return
				}
				serve(next, w, r, claims.TenantID)
				return
			}

			response.Unauthorized(w, "missing credentials")
		})
	}
}

func serve(next http.Handler, w http.ResponseWriter, r *http.Request, tenantID int64) {
	ctx := WithTenantID(r.Context(), tenantID)
	ctx = context.WithValue(ctx, logger.TenantIDKey, tenantID)
	next.ServeHTTP(w, r.WithContext(ctx))
}
