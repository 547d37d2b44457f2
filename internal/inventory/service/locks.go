package service

import "sync"

// productLocks provides one mutex per product ID so that check-then-act
// sequences (compute available stock, then mutate) execute atomically per
// product while unrelated products proceed in parallel.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a product and returns its unlock function
func (l *productLocks) Lock(productID string) func() {
	l.mu.Lock()
	pl, ok := l.locks[productID]
	if !ok {
		pl = &sync.Mutex{}
		l.locks[productID] = pl
	}
	l.mu.Unlock()

	pl.Lock()
	return pl.Unlock
}
