package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is how often the cached clock ticks. I/O deadlines don't need to be any
// more precise.
const Resolution = 100 * time.Millisecond

var (
	millis atomic.Int64
	start  sync.Once
)

func tick() {
	millis.Store(time.Now().UnixMilli())
}

// Now returns the cached current time, no older than Resolution. The clock starts on
// the first call.
func Now() time.Time {
	start.Do(func() {
		tick()
		go func() {
			for range time.Tick(Resolution) {
				tick()
			}
		}()
	})

	return time.UnixMilli(millis.Load())
}

// Deadline returns the moment d from now. Zero or negative d means no deadline.
func Deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}

	return Now().Add(d)
}
