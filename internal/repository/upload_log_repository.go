package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rotaops/ingest/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type uploadLogRepository struct {
	pool *pgxpool.Pool
}

// NewUploadLogRepository wires a repository backed by pgxpool.
func NewUploadLogRepository(pool *pgxpool.Pool) UploadLogRepository {
	return &uploadLogRepository{pool: pool}
}

func (r *uploadLogRepository) Create(ctx context.Context, entry domain.UploadLog) error {
	if r.pool == nil {
		return fmt.Errorf("upload log repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO upload_logs (id, organization_id, kind, table_name, file_count, rows_ingested, status, message, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		entry.OrganizationID,
		string(entry.Kind),
		entry.TableName,
		entry.FileCount,
		entry.RowsIngested,
		string(entry.Status),
		entry.Message,
		entry.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record upload log: %w", err)
	}

	return nil
}

func (r *uploadLogRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("upload log repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`UPDATE upload_logs SET status = $2 WHERE id = $1`,
		id,
		string(domain.UploadStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("failed to mark upload log processing: %w", err)
	}

	return nil
}

func (r *uploadLogRepository) Finish(ctx context.Context, id uuid.UUID, status domain.UploadStatus, rowsIngested int, message string) error {
	if r.pool == nil {
		return fmt.Errorf("upload log repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`UPDATE upload_logs
		 SET status = $2, rows_ingested = $3, message = $4, finished_at = $5
		 WHERE id = $1`,
		id,
		string(status),
		rowsIngested,
		message,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to finish upload log: %w", err)
	}

	return nil
}

func (r *uploadLogRepository) List(ctx context.Context, organizationID uuid.UUID, limit int, offset int) ([]domain.UploadLog, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("upload log repository not initialized")
	}

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, organization_id, kind, table_name, file_count, rows_ingested, status, message, started_at, finished_at
		 FROM upload_logs
		 WHERE organization_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2 OFFSET $3`,
		organizationID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.UploadLog{}
	for rows.Next() {
		var (
			entry      domain.UploadLog
			kind       string
			status     string
			finishedAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.OrganizationID,
			&kind,
			&entry.TableName,
			&entry.FileCount,
			&entry.RowsIngested,
			&status,
			&entry.Message,
			&entry.StartedAt,
			&finishedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan upload log: %w", scanErr)
		}

		entry.Kind = domain.UploadKind(kind)
		entry.Status = domain.UploadStatus(status)
		if finishedAt.Valid {
			finished := finishedAt.Time
			entry.FinishedAt = &finished
		}

		logs = append(logs, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate upload logs: %w", rowsErr)
	}

	return logs, nil
}
