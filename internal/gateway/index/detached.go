package index

import (
	"context"
	"log"
	"sync"

	"github.com/chainbridge/ledgergate/internal/platform/timeouts"
)

// Detached forwards records to the store without blocking the caller. Each
// insert runs on its own goroutine with its own deadline, detached from the
// request context: once launched it runs to completion or timeout regardless
// of what happens to the originating request, and its failure channel is
// fully isolated from the caller's response path.
type Detached struct {
	store Store
	wg    sync.WaitGroup
}

// NewDetached wraps a store for fire-and-forget inserts.
func NewDetached(store Store) *Detached {
	return &Detached{store: store}
}

// Insert launches the record insert and returns immediately. Failures are
// logged, never returned.
func (d *Detached) Insert(role string, record Record) {
	if d == nil || d.store == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.IndexWrite)
		defer cancel()
		if err := d.store.InsertSearchDocument(ctx, role, record); err != nil {
			log.Printf("index: insert search document for role %s failed: %v", role, err)
		}
	}()
}

// Wait blocks until in-flight inserts complete. Used during shutdown and in
// tests; the request path never calls it.
func (d *Detached) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
