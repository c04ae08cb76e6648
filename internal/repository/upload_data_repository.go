package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// identPattern guards the SQL identifiers interpolated into statements. Table
// and function names come from the compiled-in upload configurations, never
// from user input, so this is a structural invariant check.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type uploadDataRepository struct {
	pool *pgxpool.Pool
}

// NewUploadDataRepository wires a repository backed by pgxpool.
func NewUploadDataRepository(pool *pgxpool.Pool) UploadDataRepository {
	return &uploadDataRepository{pool: pool}
}

func (r *uploadDataRepository) InsertBatchRPC(ctx context.Context, rpcName string, records []map[string]any) (RPCInsertOutcome, error) {
	if err := validateIdent(rpcName); err != nil {
		return RPCInsertOutcome{}, err
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return RPCInsertOutcome{}, fmt.Errorf("failed to encode batch: %w", err)
	}

	var (
		errorCount    int
		errorMessages []string
	)
	query := fmt.Sprintf(`SELECT errors, error_messages FROM %s($1::jsonb)`, rpcName)
	if err := r.pool.QueryRow(ctx, query, payload).Scan(&errorCount, &errorMessages); err != nil {
		return RPCInsertOutcome{}, err
	}

	return RPCInsertOutcome{Errors: errorCount, ErrorMessages: errorMessages}, nil
}

func (r *uploadDataRepository) InsertRows(ctx context.Context, table string, columns []string, records []map[string]any) error {
	if err := validateIdent(table); err != nil {
		return err
	}
	for _, column := range columns {
		if err := validateIdent(column); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*len(columns))
	placeholder := 1
	for i, record := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, column := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", placeholder)
			placeholder++
			args = append(args, record[column])
		}
		b.WriteString(")")
	}

	if _, err := r.pool.Exec(ctx, b.String(), args...); err != nil {
		return err
	}
	return nil
}

func (r *uploadDataRepository) DeleteAll(ctx context.Context, table string, rpcName string) error {
	if rpcName != "" {
		if err := validateIdent(rpcName); err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, fmt.Sprintf(`SELECT %s()`, rpcName)); err != nil {
			return err
		}
		return nil
	}

	if err := validateIdent(table); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return err
	}
	return nil
}

func (r *uploadDataRepository) Refresh(ctx context.Context, rpcName string) error {
	if err := validateIdent(rpcName); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, fmt.Sprintf(`SELECT %s()`, rpcName)); err != nil {
		return err
	}
	return nil
}

func validateIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid sql identifier %q", name)
	}
	return nil
}
