package domain

import (
	"time"

	"github.com/google/uuid"
)

// UploadErrorEntry captures file or batch level issues that occur during an upload.
type UploadErrorEntry struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Kind           UploadKind `json:"kind"`
	FileName       string     `json:"file_name"`
	BatchNumber    *int       `json:"batch_number,omitempty"`
	ErrorMessage   string     `json:"error_message"`
	CreatedAt      time.Time  `json:"created_at"`
}
