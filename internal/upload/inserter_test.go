package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rotaops/ingest/internal/domain"
	"github.com/rotaops/ingest/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubDataRepo struct {
	mu           sync.Mutex
	rpcCalls     [][]map[string]any
	directCalls  [][]map[string]any
	deleteCalls  []string
	refreshCalls []string
	callOrder    []string

	rpcErrs     map[int]error // keyed by 1-based rpc call number
	rpcOutcomes map[int]repository.RPCInsertOutcome
	directErr   error
	deleteErr   error
	refreshErr  error
}

func (s *stubDataRepo) InsertBatchRPC(ctx context.Context, rpcName string, records []map[string]any) (repository.RPCInsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpcCalls = append(s.rpcCalls, records)
	s.callOrder = append(s.callOrder, "rpc")
	call := len(s.rpcCalls)
	if err, ok := s.rpcErrs[call]; ok {
		return repository.RPCInsertOutcome{}, err
	}
	if outcome, ok := s.rpcOutcomes[call]; ok {
		return outcome, nil
	}
	return repository.RPCInsertOutcome{}, nil
}

func (s *stubDataRepo) InsertRows(ctx context.Context, table string, columns []string, records []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directCalls = append(s.directCalls, records)
	s.callOrder = append(s.callOrder, "direct")
	return s.directErr
}

func (s *stubDataRepo) DeleteAll(ctx context.Context, table string, rpcName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, table)
	s.callOrder = append(s.callOrder, "delete")
	return s.deleteErr
}

func (s *stubDataRepo) Refresh(ctx context.Context, rpcName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls = append(s.refreshCalls, rpcName)
	s.callOrder = append(s.callOrder, "refresh")
	return s.refreshErr
}

func makeRecords(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			"data":      "2024-05-01",
			"id_agente": fmt.Sprintf("AG-%d", i),
			"cidade":    "Santo André",
			"valor":     float64(i),
		}
	}
	return records
}

func marketingCfg(t *testing.T) Config {
	t.Helper()
	cfg, ok := ConfigFor(domain.UploadKindMarketing)
	if !ok {
		t.Fatalf("marketing config missing")
	}
	return cfg
}

func TestInsertPartitionsInOrder(t *testing.T) {
	repo := &stubDataRepo{}
	inserter := NewBatchInserter(repo, 500, time.Minute)
	cfg := marketingCfg(t)

	records := makeRecords(1250)
	result, err := inserter.Insert(context.Background(), cfg, records, "", nil)
	if err != nil {
		t.Fatalf("insert returned error: %v", err)
	}

	if result.Inserted != 1250 {
		t.Fatalf("inserted = %d, want 1250", result.Inserted)
	}
	if len(repo.rpcCalls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(repo.rpcCalls))
	}

	sizes := []int{500, 500, 250}
	total := 0
	for i, batch := range repo.rpcCalls {
		if len(batch) != sizes[i] {
			t.Fatalf("batch %d size = %d, want %d", i+1, len(batch), sizes[i])
		}
		total += len(batch)
	}
	if total != len(records) {
		t.Fatalf("batch sizes sum to %d, want %d", total, len(records))
	}

	// Concatenating the batches must reconstruct the original order.
	idx := 0
	for _, batch := range repo.rpcCalls {
		for _, row := range batch {
			if row["id_agente"] != fmt.Sprintf("AG-%d", idx) {
				t.Fatalf("row %d out of order: %v", idx, row["id_agente"])
			}
			idx++
		}
	}
}

func TestInsertProgressIsMonotonic(t *testing.T) {
	repo := &stubDataRepo{}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	var reported []int
	_, err := inserter.Insert(context.Background(), cfg, makeRecords(450), "", func(inserted, total int) {
		if total != 450 {
			t.Fatalf("total = %d, want 450", total)
		}
		reported = append(reported, inserted)
	})
	if err != nil {
		t.Fatalf("insert returned error: %v", err)
	}

	if len(reported) != 5 {
		t.Fatalf("expected 5 progress calls, got %d", len(reported))
	}
	for i := 1; i < len(reported); i++ {
		if reported[i] < reported[i-1] {
			t.Fatalf("progress regressed: %v", reported)
		}
	}
	if reported[len(reported)-1] != 450 {
		t.Fatalf("final progress = %d, want 450", reported[len(reported)-1])
	}
}

func TestInsertFallsBackOnPermissionDenied(t *testing.T) {
	// Batch 3 of 5 hits a permission error on the RPC; it must be retried as
	// a direct insert and every batch's rows still counted.
	repo := &stubDataRepo{
		rpcErrs: map[int]error{3: &pgconn.PgError{Code: "42501"}},
	}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	result, err := inserter.Insert(context.Background(), cfg, makeRecords(500), "", nil)
	if err != nil {
		t.Fatalf("insert returned error: %v", err)
	}

	if result.Inserted != 500 {
		t.Fatalf("inserted = %d, want 500", result.Inserted)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("fallback must not surface errors, got %v", result.Errors)
	}
	if len(repo.rpcCalls) != 5 || len(repo.directCalls) != 1 {
		t.Fatalf("expected 5 rpc calls and 1 direct call, got %d and %d", len(repo.rpcCalls), len(repo.directCalls))
	}
}

func TestInsertFallsBackOnMissingRPC(t *testing.T) {
	repo := &stubDataRepo{
		rpcErrs: map[int]error{1: &pgconn.PgError{Code: "42883"}},
	}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	result, err := inserter.Insert(context.Background(), cfg, makeRecords(50), "", nil)
	if err != nil {
		t.Fatalf("insert returned error: %v", err)
	}
	if result.Inserted != 50 || len(repo.directCalls) != 1 {
		t.Fatalf("expected direct fallback, result %+v", result)
	}
}

func TestInsertUniqueViolationIsFatal(t *testing.T) {
	repo := &stubDataRepo{
		rpcErrs: map[int]error{2: &pgconn.PgError{Code: "23505"}},
	}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	result, err := inserter.Insert(context.Background(), cfg, makeRecords(300), "", nil)
	if err == nil {
		t.Fatalf("expected unique violation to propagate")
	}
	if Classify(err) != TagUniqueViolation {
		t.Fatalf("expected unique violation tag, got %s", Classify(err))
	}
	if result.Inserted != 100 {
		t.Fatalf("inserted = %d, want 100 (only batch 1)", result.Inserted)
	}
	if len(repo.rpcCalls) != 2 {
		t.Fatalf("insertion must stop at the fatal batch, got %d calls", len(repo.rpcCalls))
	}
}

func TestInsertMergesRPCRowErrors(t *testing.T) {
	repo := &stubDataRepo{
		rpcOutcomes: map[int]repository.RPCInsertOutcome{
			1: {Errors: 2, ErrorMessages: []string{"row rejected: bad date", "row rejected: bad value"}},
		},
	}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	result, err := inserter.Insert(context.Background(), cfg, makeRecords(100), "", nil)
	if err != nil {
		t.Fatalf("insert returned error: %v", err)
	}
	if result.Inserted != 98 {
		t.Fatalf("inserted = %d, want 98", result.Inserted)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 merged messages, got %v", result.Errors)
	}
}

func TestInsertAccumulatesUnknownErrors(t *testing.T) {
	repo := &stubDataRepo{
		rpcErrs: map[int]error{2: errors.New("backend hiccup")},
	}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	result, err := inserter.Insert(context.Background(), cfg, makeRecords(300), "", nil)
	if err != nil {
		t.Fatalf("unknown errors must accumulate, got %v", err)
	}
	if result.Inserted != 200 {
		t.Fatalf("inserted = %d, want 200", result.Inserted)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 accumulated error, got %v", result.Errors)
	}
}

func TestInsertStampsValidOrganizationID(t *testing.T) {
	repo := &stubDataRepo{}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	orgID := uuid.New().String()
	if _, err := inserter.Insert(context.Background(), cfg, makeRecords(10), orgID, nil); err != nil {
		t.Fatalf("insert returned error: %v", err)
	}

	for _, row := range repo.rpcCalls[0] {
		if row["organization_id"] != orgID {
			t.Fatalf("expected organization id stamp, got %v", row["organization_id"])
		}
	}
}

func TestInsertSkipsMalformedOrganizationID(t *testing.T) {
	repo := &stubDataRepo{}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg := marketingCfg(t)

	if _, err := inserter.Insert(context.Background(), cfg, makeRecords(10), "not-a-uuid", nil); err != nil {
		t.Fatalf("insert returned error: %v", err)
	}

	for _, row := range repo.rpcCalls[0] {
		if _, present := row["organization_id"]; present {
			t.Fatalf("malformed organization id must not be stamped")
		}
	}
}

func TestInsertUsesDirectPathWithoutRPC(t *testing.T) {
	repo := &stubDataRepo{}
	inserter := NewBatchInserter(repo, 100, time.Minute)
	cfg, ok := ConfigFor(domain.UploadKindValoresCidades)
	if !ok {
		t.Fatalf("valores_cidades config missing")
	}

	result, err := inserter.Insert(context.Background(), cfg, makeRecords(150), "", nil)
	if err != nil {
		t.Fatalf("insert returned error: %v", err)
	}
	if len(repo.rpcCalls) != 0 || len(repo.directCalls) != 2 {
		t.Fatalf("expected direct-only inserts, got rpc=%d direct=%d", len(repo.rpcCalls), len(repo.directCalls))
	}
	if result.Inserted != 150 {
		t.Fatalf("inserted = %d, want 150", result.Inserted)
	}
}
