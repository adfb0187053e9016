package inspection

import (
	"sync/atomic"
	"time"
)

var lastToken int64

// NewToken returns a creation-order token: strictly increasing within the
// process and roughly the creation time in nanoseconds.
func NewToken() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastToken)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastToken, last, now) {
			return now
		}
	}
}
