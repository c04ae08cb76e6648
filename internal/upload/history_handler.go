package upload

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotaops/ingest/internal/auth"
	"github.com/rotaops/ingest/internal/domain"
	"github.com/rotaops/ingest/internal/repository"

	"github.com/google/uuid"
)

// HistoryHandler lists past upload runs for an organization.
type HistoryHandler struct {
	logs repository.UploadLogRepository
}

// NewHistoryHandler wraps the upload log repository with a GET endpoint.
func NewHistoryHandler(logs repository.UploadLogRepository) http.Handler {
	return &HistoryHandler{logs: logs}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orgID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("organizationId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organization id: %v", err), http.StatusBadRequest)
		return
	}

	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	entries, err := h.logs.List(r.Context(), orgID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// ErrorsHandler lists recorded file and batch errors for one uploaded file.
type ErrorsHandler struct {
	uploadErrors repository.UploadErrorRepository
}

// NewErrorsHandler wraps the upload error repository with a GET endpoint.
func NewErrorsHandler(uploadErrors repository.UploadErrorRepository) http.Handler {
	return &ErrorsHandler{uploadErrors: uploadErrors}
}

func (h *ErrorsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orgID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("organizationId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organization id: %v", err), http.StatusBadRequest)
		return
	}

	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	kind, ok := domain.UploadKindFrom(strings.TrimSpace(r.URL.Query().Get("kind")))
	if !ok {
		http.Error(w, "kind must be one of corridas, marketing, valores_cidades", http.StatusBadRequest)
		return
	}

	fileName := strings.TrimSpace(r.URL.Query().Get("fileName"))
	if fileName == "" {
		http.Error(w, "fileName is required", http.StatusBadRequest)
		return
	}

	limit := queryInt(r, "limit", 200)
	offset := queryInt(r, "offset", 0)

	entries, err := h.uploadErrors.List(r.Context(), orgID, kind, fileName, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
