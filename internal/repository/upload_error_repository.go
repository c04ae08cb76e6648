package repository

import (
	"context"
	"fmt"

	"github.com/rotaops/ingest/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type uploadErrorRepository struct {
	pool *pgxpool.Pool
}

// NewUploadErrorRepository wires a repository backed by pgxpool.
func NewUploadErrorRepository(pool *pgxpool.Pool) UploadErrorRepository {
	return &uploadErrorRepository{pool: pool}
}

func (r *uploadErrorRepository) Record(ctx context.Context, entry domain.UploadErrorEntry) error {
	if r.pool == nil {
		return fmt.Errorf("upload error repository not initialized")
	}

	var batchNumber any
	if entry.BatchNumber != nil {
		batchNumber = *entry.BatchNumber
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO upload_errors (organization_id, kind, file_name, batch_number, error_message)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.OrganizationID,
		string(entry.Kind),
		entry.FileName,
		batchNumber,
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record upload error: %w", err)
	}

	return nil
}

func (r *uploadErrorRepository) List(ctx context.Context, organizationID uuid.UUID, kind domain.UploadKind, fileName string, limit int, offset int) ([]domain.UploadErrorEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("upload error repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, organization_id, kind, file_name, batch_number, error_message, created_at
		 FROM upload_errors
		 WHERE organization_id = $1
		   AND kind = $2
		   AND file_name = $3
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		organizationID,
		string(kind),
		fileName,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload errors: %w", err)
	}
	defer rows.Close()

	entries := []domain.UploadErrorEntry{}
	for rows.Next() {
		var (
			entry       domain.UploadErrorEntry
			rawKind     string
			batchNumber pgtype.Int4
			createdAt   pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.OrganizationID,
			&rawKind,
			&entry.FileName,
			&batchNumber,
			&entry.ErrorMessage,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan upload error: %w", scanErr)
		}

		entry.Kind = domain.UploadKind(rawKind)
		if batchNumber.Valid {
			value := int(batchNumber.Int32)
			entry.BatchNumber = &value
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}

		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate upload errors: %w", rowsErr)
	}

	return entries, nil
}
