package replica

import (
	"context"
	"sync"
)

// dispatchQueue runs callbacks in order on one goroutine.
// Add never blocks, so the session reader keeps draining acks
// while a listener waits on a commit.
type dispatchQueue struct {
	ctx context.Context

	mutex   sync.Mutex
	pending []func()
	wake    chan struct{}
}

func newDispatchQueue(ctx context.Context) *dispatchQueue {
	return &dispatchQueue{
		ctx:  ctx,
		wake: make(chan struct{}, 1),
	}
}

func (self *dispatchQueue) Add(callback func()) {
	func() {
		self.mutex.Lock()
		defer self.mutex.Unlock()
		self.pending = append(self.pending, callback)
	}()
	select {
	case self.wake <- struct{}{}:
	default:
	}
}

// Run returns when the context is done. Callbacks still pending are dropped.
func (self *dispatchQueue) Run() {
	for {
		var callbacks []func()
		func() {
			self.mutex.Lock()
			defer self.mutex.Unlock()
			callbacks = self.pending
			self.pending = nil
		}()

		for _, callback := range callbacks {
			if self.ctx.Err() != nil {
				return
			}
			callback()
		}

		select {
		case <-self.ctx.Done():
			return
		case <-self.wake:
		}
	}
}
