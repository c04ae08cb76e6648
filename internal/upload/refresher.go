package upload

import (
	"context"
	"log"
	"time"

	"github.com/rotaops/ingest/internal/repository"
)

// Refresher fires materialized-view refresh calls without blocking the
// caller. Results are only observable through logging.
type Refresher struct {
	data    repository.UploadDataRepository
	timeout time.Duration
}

// NewRefresher creates a refresher with the given per-call timeout.
func NewRefresher(data repository.UploadDataRepository, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &Refresher{data: data, timeout: timeout}
}

// Trigger spawns the refresh as a detached task. The done channel closes when
// the call finishes; callers that do not care may ignore it.
func (r *Refresher) Trigger(rpcName string) <-chan struct{} {
	done := make(chan struct{})
	if rpcName == "" {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		started := time.Now()
		if err := r.data.Refresh(ctx, rpcName); err != nil {
			log.Printf("[REFRESH] %s failed after %s: %v", rpcName, time.Since(started), err)
			return
		}
		log.Printf("[REFRESH] %s completed in %s", rpcName, time.Since(started))
	}()

	return done
}
