package upload

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorTag
	}{
		{"permission denied", &pgconn.PgError{Code: "42501"}, TagPermissionDenied},
		{"undefined function", &pgconn.PgError{Code: "42883"}, TagNotFound},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, TagNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, TagUniqueViolation},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, TagForeignKeyViolation},
		{"query canceled", &pgconn.PgError{Code: "57014"}, TagTimeout},
		{"deadline exceeded", context.DeadlineExceeded, TagTimeout},
		{"rate limited", fmt.Errorf("denied: %w", ErrRateLimited), TagRateLimited},
		{"anything else", errors.New("mystery"), TagUnknown},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: Classify = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyWrappedPgError(t *testing.T) {
	wrapped := fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: "23505"})
	if got := Classify(wrapped); got != TagUniqueViolation {
		t.Fatalf("wrapped pg error not classified: %s", got)
	}
}

func TestTagPredicates(t *testing.T) {
	if !TagUniqueViolation.Fatal() || !TagForeignKeyViolation.Fatal() {
		t.Fatalf("constraint violations must be fatal")
	}
	if TagPermissionDenied.Fatal() {
		t.Fatalf("permission denied is recoverable, not fatal")
	}
	if !TagPermissionDenied.Recoverable() || !TagNotFound.Recoverable() {
		t.Fatalf("rpc-unavailable tags must be recoverable")
	}
	if TagUnknown.Recoverable() {
		t.Fatalf("unknown errors must not trigger fallback")
	}
}
