package repository

import (
	"context"
	"fmt"

	"github.com/rotaops/ingest/internal/db"
	"github.com/rotaops/ingest/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type organizationRepository struct {
	conn *db.Connection
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(conn *db.Connection) OrganizationRepository {
	return &organizationRepository{conn: conn}
}

func (r *organizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	_, err := r.conn.Pool.Exec(
		ctx,
		`INSERT INTO organizations (id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		org.ID,
		org.Name,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	var org domain.Organization
	err := r.conn.Pool.QueryRow(
		ctx,
		`SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1`,
		id,
	).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

func (r *organizationRepository) GetByName(ctx context.Context, name string) (domain.Organization, error) {
	var org domain.Organization
	err := r.conn.Pool.QueryRow(
		ctx,
		`SELECT id, name, created_at, updated_at FROM organizations WHERE name = $1`,
		name,
	).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to get organization by name: %w", err)
	}
	return org, nil
}

func (r *organizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, name, created_at, updated_at FROM organizations ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []domain.Organization{}
	for rows.Next() {
		var org domain.Organization
		if scanErr := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", scanErr)
		}
		orgs = append(orgs, org)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", rowsErr)
	}

	return orgs, nil
}

// Rename is a read-modify-write; the row is locked so concurrent renames
// serialize instead of clobbering updated_at.
func (r *organizationRepository) Rename(ctx context.Context, id uuid.UUID, name string) (domain.Organization, error) {
	var updated domain.Organization
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var org domain.Organization
		if err := tx.QueryRow(
			ctx,
			`SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return fmt.Errorf("failed to get organization: %w", err)
		}

		updated = org.WithName(name)
		if _, err := tx.Exec(
			ctx,
			`UPDATE organizations SET name = $2, updated_at = $3 WHERE id = $1`,
			updated.ID,
			updated.Name,
			updated.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to rename organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Organization{}, err
	}
	return updated, nil
}

func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn.Pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}
