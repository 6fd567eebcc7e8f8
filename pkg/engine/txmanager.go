package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// maxReaders bounds concurrent read sections. A writer acquires the whole
// weight, so it excludes every reader and every other writer.
const maxReaders = 1 << 16

// txManager serializes mutations over the whole store while letting queries
// run side by side. Waiting honors the caller's context. The semaphore is
// FIFO, so a queued writer is not starved by a stream of readers.
type txManager struct {
	sem *semaphore.Weighted
}

func newTxManager() *txManager {
	return &txManager{sem: semaphore.NewWeighted(maxReaders)}
}

// acquire returns an idempotent release func, so callers can defer it and
// still release early before publishing events.
func (m *txManager) acquire(ctx context.Context, n int64) (func(), error) {
	if err := m.sem.Acquire(ctx, n); err != nil {
		return nil, bank.Wrap(bank.CodeTimeout, err, "waiting for store lock")
	}
	var once sync.Once
	return func() { once.Do(func() { m.sem.Release(n) }) }, nil
}

func (m *txManager) read(ctx context.Context) (func(), error) {
	return m.acquire(ctx, 1)
}

func (m *txManager) write(ctx context.Context) (func(), error) {
	return m.acquire(ctx, maxReaders)
}
