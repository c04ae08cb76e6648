package organization

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotaops/ingest/internal/domain"
	"github.com/rotaops/ingest/internal/repository"

	"github.com/google/uuid"
)

// Handler manages the organization rows every upload is scoped to.
type Handler struct {
	orgs repository.OrganizationRepository
}

// NewHandler exposes organization provisioning over HTTP.
func NewHandler(orgs repository.OrganizationRepository) http.Handler {
	return &Handler{orgs: orgs}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.rename(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if existing, err := h.orgs.GetByName(r.Context(), name); err == nil {
		http.Error(w, fmt.Sprintf("organization %q already exists as %s", name, existing.ID), http.StatusConflict)
		return
	}

	org, err := h.orgs.Create(r.Context(), domain.NewOrganization(name))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(payload.Name)
	if payload.ID == uuid.Nil || name == "" {
		http.Error(w, "id and name are required", http.StatusBadRequest)
		return
	}

	org, err := h.orgs.Rename(r.Context(), payload.ID, name)
	if err != nil {
		http.Error(w, fmt.Sprintf("organization not found: %v", err), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("id")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organization id: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.orgs.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
