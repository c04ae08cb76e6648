package upload

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrRateLimited is returned when an organization exceeds its upload budget.
	ErrRateLimited = errors.New("upload rate limit reached")

	// ErrUnknownKind is returned when no upload configuration matches the requested kind.
	ErrUnknownKind = errors.New("unknown upload kind")
)

// ErrorTag is a closed classification of backend failures, computed once at the
// repository boundary and switched on everywhere else.
type ErrorTag string

const (
	TagPermissionDenied    ErrorTag = "permission_denied"
	TagNotFound            ErrorTag = "not_found"
	TagUniqueViolation     ErrorTag = "unique_violation"
	TagForeignKeyViolation ErrorTag = "foreign_key_violation"
	TagTimeout             ErrorTag = "timeout"
	TagRateLimited         ErrorTag = "rate_limited"
	TagUnknown             ErrorTag = "unknown"
)

// Classify maps a backend error into an ErrorTag.
func Classify(err error) ErrorTag {
	if err == nil {
		return TagUnknown
	}
	if errors.Is(err, ErrRateLimited) {
		return TagRateLimited
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TagTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501": // insufficient_privilege
			return TagPermissionDenied
		case "42883", "42P01": // undefined_function, undefined_table
			return TagNotFound
		case "23505": // unique_violation
			return TagUniqueViolation
		case "23503": // foreign_key_violation
			return TagForeignKeyViolation
		case "57014": // query_canceled
			return TagTimeout
		}
	}

	return TagUnknown
}

// Fatal reports whether a tag indicates a structural data problem that must
// abort the current file rather than being accumulated.
func (t ErrorTag) Fatal() bool {
	return t == TagUniqueViolation || t == TagForeignKeyViolation
}

// Recoverable reports whether a tag signals that the bulk RPC is unavailable
// and a direct table insert should be attempted instead.
func (t ErrorTag) Recoverable() bool {
	return t == TagPermissionDenied || t == TagNotFound
}
