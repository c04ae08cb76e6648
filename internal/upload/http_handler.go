package upload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/rotaops/ingest/internal/auth"
	"github.com/rotaops/ingest/internal/cache"
	"github.com/rotaops/ingest/internal/domain"
	"github.com/rotaops/ingest/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the upload pipeline as an HTTP endpoint.
type Handler struct {
	service  *Service
	orgs     repository.OrganizationRepository
	orgCache *cache.Cache[domain.Organization]
}

// NewHTTPHandler wraps the service with a POST endpoint. Organization lookups
// go through the shared TTL cache.
func NewHTTPHandler(service *Service, orgs repository.OrganizationRepository, orgCache *cache.Cache[domain.Organization]) http.Handler {
	return &Handler{service: service, orgs: orgs, orgCache: orgCache}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	orgIDRaw := strings.TrimSpace(r.FormValue("organizationId"))
	orgID, err := uuid.Parse(orgIDRaw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organization id: %v", err), http.StatusBadRequest)
		return
	}

	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if _, err := h.lookupOrganization(r, orgID); err != nil {
		http.Error(w, fmt.Sprintf("unknown organization: %v", err), http.StatusNotFound)
		return
	}

	kind, ok := domain.UploadKindFrom(strings.TrimSpace(r.FormValue("kind")))
	if !ok {
		http.Error(w, "kind must be one of corridas, marketing, valores_cidades", http.StatusBadRequest)
		return
	}

	overwrite := strings.EqualFold(strings.TrimSpace(r.FormValue("overwrite")), "true")

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		http.Error(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	files := make([]File, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		part, err := header.Open()
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to open %s: %v", header.Filename, err), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to read %s: %v", header.Filename, err), http.StatusBadRequest)
			return
		}
		files = append(files, File{
			Name:     header.Filename,
			Size:     int64(len(data)),
			MIMEType: header.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	req := Request{
		OrganizationID: orgID,
		Kind:           kind,
		Overwrite:      overwrite,
		Files:          files,
		OnProgress: func(state State) {
			log.Printf("[UPLOAD] org=%s kind=%s %d%% %s", orgID, kind, state.Progress, state.ProgressLabel)
		},
	}

	result, err := h.service.Process(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			writeJSON(w, http.StatusTooManyRequests, result)
			return
		}
		if result.Message != "" {
			// Raw backend errors stay in the server log; the client gets the
			// classified message.
			log.Printf("[UPLOAD] org=%s kind=%s failed: %v", orgID, kind, err)
			writeJSON(w, http.StatusInternalServerError, result)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) lookupOrganization(r *http.Request, orgID uuid.UUID) (domain.Organization, error) {
	key := orgID.String()
	if h.orgCache != nil {
		if org, ok := h.orgCache.Get(key); ok {
			return org, nil
		}
	}

	org, err := h.orgs.GetByID(r.Context(), orgID)
	if err != nil {
		return domain.Organization{}, err
	}
	if h.orgCache != nil {
		h.orgCache.Set(key, org)
	}
	return org, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
