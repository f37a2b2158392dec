package cache

import (
	"context"
	"sync"

	"github.com/razvandimescu/molesk/internal/logger"
)

// Invalidator clears a Store whenever a change signal arrives and then
// notifies its listeners.
type Invalidator struct {
	store *Store

	mu        sync.Mutex
	listeners []func()
}

func NewInvalidator(store *Store) *Invalidator {
	return &Invalidator{store: store}
}

// OnInvalidate registers fn to run after every clear.
func (i *Invalidator) OnInvalidate(fn func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, fn)
}

// Run blocks until ctx is done or events is closed.
func (i *Invalidator) Run(ctx context.Context, events <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			i.Invalidate()
		}
	}
}

// Invalidate clears the store and notifies listeners synchronously.
func (i *Invalidator) Invalidate() {
	i.store.Invalidate()
	logger.Debug("Caches cleared")

	i.mu.Lock()
	listeners := make([]func(), len(i.listeners))
	copy(listeners, i.listeners)
	i.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
