//go:build linux

package edge

import (
	"time"

	"golang.org/x/sys/unix"
)

// monotonic returns CLOCK_MONOTONIC, the clock the kernel uses for
// GPIO line event timestamps, so polled backends and the character
// device backend agree on tick values.
func monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// MonotonicTick is the current CLOCK_MONOTONIC time as a tick.
func MonotonicTick() uint32 {
	return Micros(monotonic())
}
