package middleware

import (
	"net/http"
	"strings"

	"github.com/rotaops/ingest/internal/auth"

	"github.com/google/uuid"
)

// OrganizationScopeMiddleware reads the X-Organization-Id header set by the
// auth proxy and stores it as the authenticated scope for downstream handlers.
// Requests without the header pass through unscoped.
func OrganizationScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-Organization-Id"))
		if raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid X-Organization-Id header", http.StatusBadRequest)
				return
			}
			r = r.WithContext(auth.ContextWithOrganizationID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
