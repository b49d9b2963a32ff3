package replica

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/golang/glog"
)

// recoverListener runs a listener callback. A panic is logged with its stack and returned as an error.
func recoverListener(tag string, notify func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = rErr
			} else {
				err = fmt.Errorf("%v", r)
			}
			glog.Warningf("[%s]listener panic = %s\n%s", tag, err, debug.Stack())
		}
	}()
	notify()
	return
}

// retries are paced from the start of the previous attempt
type Reconnect struct {
	start   time.Time
	timeout time.Duration
}

func NewReconnect(timeout time.Duration) *Reconnect {
	return &Reconnect{
		start:   time.Now(),
		timeout: timeout,
	}
}

func (self *Reconnect) After() <-chan time.Time {
	remaining := self.timeout - time.Since(self.start)
	if remaining < 0 {
		remaining = 0
	}
	return time.After(remaining)
}
