package gpio

import "time"

// spin busy-waits on the monotonic clock. time.Sleep is too coarse for the
// microsecond windows the sensor protocol depends on.
func spin(n int) {
	if n <= 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(n) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}
