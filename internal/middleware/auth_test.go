package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotaops/ingest/internal/auth"

	"github.com/google/uuid"
)

func TestOrganizationScopeMiddlewareInjectsScope(t *testing.T) {
	orgID := uuid.New()
	var scoped uuid.UUID
	var found bool

	handler := OrganizationScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped, found = auth.OrganizationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/uploads", nil)
	req.Header.Set("X-Organization-Id", orgID.String())
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !found || scoped != orgID {
		t.Fatalf("scope not injected: found=%v scoped=%s", found, scoped)
	}
}

func TestOrganizationScopeMiddlewarePassesUnscoped(t *testing.T) {
	var found bool
	handler := OrganizationScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.OrganizationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/uploads", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Fatalf("request without header must stay unscoped")
	}
}

func TestOrganizationScopeMiddlewareRejectsBadHeader(t *testing.T) {
	handler := OrganizationScopeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run for a malformed header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/uploads", nil)
	req.Header.Set("X-Organization-Id", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
