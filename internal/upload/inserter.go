package upload

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rotaops/ingest/internal/repository"

	"github.com/google/uuid"
)

// ProgressFunc is invoked after each successful batch with the running
// inserted count and the total record count.
type ProgressFunc func(inserted, total int)

// InsertResult reports how many records were persisted and which batches
// produced recoverable errors.
type InsertResult struct {
	Inserted int
	Errors   []string
}

// BatchInserter persists sanitized records in fixed-size contiguous batches.
// Batches are submitted sequentially, in order, to keep backend load
// predictable and progress intelligible.
type BatchInserter struct {
	data      repository.UploadDataRepository
	batchSize int
	timeout   time.Duration
}

// NewBatchInserter creates an inserter with the given batch size and per-call
// timeout.
func NewBatchInserter(data repository.UploadDataRepository, batchSize int, timeout time.Duration) *BatchInserter {
	if batchSize <= 0 {
		batchSize = 500
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &BatchInserter{data: data, batchSize: batchSize, timeout: timeout}
}

// Insert submits all records for one file. Unique and foreign-key violations
// abort immediately; every other batch failure is accumulated and the
// remaining batches are still attempted. When the bulk RPC is unavailable
// (permission denied or missing), the batch falls back to a direct table
// insert.
func (b *BatchInserter) Insert(ctx context.Context, cfg Config, records []Record, organizationID string, progress ProgressFunc) (InsertResult, error) {
	result := InsertResult{}
	total := len(records)
	if total == 0 {
		return result, nil
	}

	stampOrganization := organizationID != ""
	if stampOrganization {
		if _, err := uuid.Parse(organizationID); err != nil {
			stampOrganization = false
			log.Printf("[UPLOAD] organization id %q is not a uuid, skipping stamp", organizationID)
		}
	}

	columns := cfg.TargetColumns()
	if stampOrganization {
		columns = append(columns, "organization_id")
	}

	useRPC := cfg.InsertRPC != ""

	for start := 0; start < total; start += b.batchSize {
		end := start + b.batchSize
		if end > total {
			end = total
		}
		batchNumber := start/b.batchSize + 1

		payload := make([]map[string]any, 0, end-start)
		for _, record := range records[start:end] {
			row := make(map[string]any, len(record)+1)
			for k, v := range record {
				row[k] = v
			}
			if stampOrganization {
				row["organization_id"] = organizationID
			}
			payload = append(payload, row)
		}

		inserted := len(payload)

		if useRPC {
			outcome, err := b.callRPC(ctx, cfg.InsertRPC, payload)
			if err != nil {
				tag := Classify(err)
				switch {
				case tag.Fatal():
					return result, err
				case tag.Recoverable():
					log.Printf("[UPLOAD] %s unavailable (%s), falling back to direct insert for batch %d", cfg.InsertRPC, tag, batchNumber)
					if directErr := b.callDirect(ctx, cfg.Table, columns, payload); directErr != nil {
						if Classify(directErr).Fatal() {
							return result, directErr
						}
						result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", batchNumber, directErr))
						continue
					}
				default:
					result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", batchNumber, err))
					continue
				}
			} else if outcome.Errors > 0 {
				// The RPC reports row failures without identifying rows; the
				// messages are merged as-is.
				inserted -= outcome.Errors
				if inserted < 0 {
					inserted = 0
				}
				result.Errors = append(result.Errors, outcome.ErrorMessages...)
			}
		} else {
			if err := b.callDirect(ctx, cfg.Table, columns, payload); err != nil {
				if Classify(err).Fatal() {
					return result, err
				}
				result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", batchNumber, err))
				continue
			}
		}

		result.Inserted += inserted
		if progress != nil {
			progress(result.Inserted, total)
		}
	}

	return result, nil
}

func (b *BatchInserter) callRPC(ctx context.Context, rpcName string, payload []map[string]any) (repository.RPCInsertOutcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.data.InsertBatchRPC(callCtx, rpcName, payload)
}

func (b *BatchInserter) callDirect(ctx context.Context, table string, columns []string, payload []map[string]any) error {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.data.InsertRows(callCtx, table, columns, payload)
}
