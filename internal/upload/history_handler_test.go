package upload

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotaops/ingest/internal/auth"
	"github.com/rotaops/ingest/internal/domain"

	"github.com/google/uuid"
)

func TestHistoryHandlerListsRuns(t *testing.T) {
	orgID := uuid.New()
	logs := &stubLogRepo{list: []domain.UploadLog{
		domain.NewUploadLog(orgID, domain.UploadKindCorridas, "dados_corridas", 2),
	}}
	handler := NewHistoryHandler(logs)

	req := httptest.NewRequest(http.MethodGet, "/uploads?organizationId="+orgID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var entries []domain.UploadLog
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if len(entries) != 1 || entries[0].OrganizationID != orgID || entries[0].TableName != "dados_corridas" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestHistoryHandlerRejectsBadOrganizationID(t *testing.T) {
	handler := NewHistoryHandler(&stubLogRepo{})

	req := httptest.NewRequest(http.MethodGet, "/uploads?organizationId=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryHandlerEnforcesScope(t *testing.T) {
	orgID := uuid.New()
	handler := NewHistoryHandler(&stubLogRepo{})

	req := httptest.NewRequest(http.MethodGet, "/uploads?organizationId="+orgID.String(), nil)
	req = req.WithContext(auth.ContextWithOrganizationID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/uploads?organizationId="+orgID.String(), nil)
	req = req.WithContext(auth.ContextWithOrganizationID(req.Context(), orgID))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("matching scope must pass, got %d", rec.Code)
	}
}

func TestHistoryHandlerRejectsPost(t *testing.T) {
	handler := NewHistoryHandler(&stubLogRepo{})

	req := httptest.NewRequest(http.MethodPost, "/uploads", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestErrorsHandlerListsEntries(t *testing.T) {
	orgID := uuid.New()
	errs := &stubErrRepo{entries: []domain.UploadErrorEntry{{
		OrganizationID: orgID,
		Kind:           domain.UploadKindMarketing,
		FileName:       "jan.xlsx",
		ErrorMessage:   "batch 2: valor inválido",
	}}}
	handler := NewErrorsHandler(errs)

	url := "/uploads/errors?organizationId=" + orgID.String() + "&kind=marketing&fileName=jan.xlsx"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var entries []domain.UploadErrorEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if len(entries) != 1 || entries[0].FileName != "jan.xlsx" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestErrorsHandlerRejectsBadOrganizationID(t *testing.T) {
	handler := NewErrorsHandler(&stubErrRepo{})

	req := httptest.NewRequest(http.MethodGet, "/uploads/errors?organizationId=nope&kind=corridas&fileName=jan.xlsx", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorsHandlerRejectsUnknownKind(t *testing.T) {
	handler := NewErrorsHandler(&stubErrRepo{})

	url := "/uploads/errors?organizationId=" + uuid.NewString() + "&kind=financeiro&fileName=jan.xlsx"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorsHandlerRequiresFileName(t *testing.T) {
	handler := NewErrorsHandler(&stubErrRepo{})

	url := "/uploads/errors?organizationId=" + uuid.NewString() + "&kind=corridas"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
