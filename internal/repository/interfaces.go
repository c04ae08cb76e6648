package repository

import (
	"context"

	"github.com/rotaops/ingest/internal/domain"

	"github.com/google/uuid"
)

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	GetByName(ctx context.Context, name string) (domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (domain.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RPCInsertOutcome is the result shape of a bulk-insert backend function: the
// number of rows it rejected and their error messages.
type RPCInsertOutcome struct {
	Errors        int
	ErrorMessages []string
}

// UploadDataRepository defines the backend calls the ingestion pipeline makes
// against the data tables and their helper functions.
type UploadDataRepository interface {
	// InsertBatchRPC submits one batch through a bulk-insert function.
	InsertBatchRPC(ctx context.Context, rpcName string, records []map[string]any) (RPCInsertOutcome, error)
	// InsertRows inserts one batch directly into the target table.
	InsertRows(ctx context.Context, table string, columns []string, records []map[string]any) error
	// DeleteAll clears the target table, through the named function when one
	// is configured and directly otherwise.
	DeleteAll(ctx context.Context, table string, rpcName string) error
	// Refresh invokes a materialized-view refresh function.
	Refresh(ctx context.Context, rpcName string) error
}

// UploadLogRepository defines the interface for upload run records
type UploadLogRepository interface {
	Create(ctx context.Context, entry domain.UploadLog) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, status domain.UploadStatus, rowsIngested int, message string) error
	List(ctx context.Context, organizationID uuid.UUID, limit int, offset int) ([]domain.UploadLog, error)
}

// UploadErrorRepository defines the interface for file and batch level error records
type UploadErrorRepository interface {
	Record(ctx context.Context, entry domain.UploadErrorEntry) error
	List(ctx context.Context, organizationID uuid.UUID, kind domain.UploadKind, fileName string, limit int, offset int) ([]domain.UploadErrorEntry, error)
}
