package lock

import (
	"context"
	"sync"
)

// Local serialises writers inside a single process. Unlike sync.Mutex, a
// waiting caller gives up when its context is cancelled.
type Local struct {
	ch chan struct{}
}

// NewLocal creates an unlocked Local
func NewLocal() *Local {
	return &Local{ch: make(chan struct{}, 1)}
}

// Lock blocks until the lock is held or ctx is done. The returned function
// releases the lock and is safe to call more than once.
func (l *Local) Lock(ctx context.Context) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-l.ch })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
