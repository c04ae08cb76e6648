package domain

import (
	"time"

	"github.com/google/uuid"
)

// UploadKind identifies one of the fixed upload configurations.
type UploadKind string

const (
	UploadKindCorridas       UploadKind = "corridas"
	UploadKindMarketing      UploadKind = "marketing"
	UploadKindValoresCidades UploadKind = "valores_cidades"
)

// UploadKindFrom validates a raw kind string.
func UploadKindFrom(s string) (UploadKind, bool) {
	switch UploadKind(s) {
	case UploadKindCorridas, UploadKindMarketing, UploadKindValoresCidades:
		return UploadKind(s), true
	}
	return "", false
}

// UploadStatus tracks the lifecycle of one upload run.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusSuccess    UploadStatus = "success"
	UploadStatusFailure    UploadStatus = "failure"
)

// UploadLog records one upload run against a target table.
type UploadLog struct {
	ID             uuid.UUID    `json:"id"`
	OrganizationID uuid.UUID    `json:"organization_id"`
	Kind           UploadKind   `json:"kind"`
	TableName      string       `json:"table_name"`
	FileCount      int          `json:"file_count"`
	RowsIngested   int          `json:"rows_ingested"`
	Status         UploadStatus `json:"status"`
	Message        string       `json:"message"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
}

// NewUploadLog creates a pending upload log for a run about to start.
func NewUploadLog(organizationID uuid.UUID, kind UploadKind, tableName string, fileCount int) UploadLog {
	return UploadLog{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Kind:           kind,
		TableName:      tableName,
		FileCount:      fileCount,
		Status:         UploadStatusPending,
		StartedAt:      time.Now(),
	}
}
