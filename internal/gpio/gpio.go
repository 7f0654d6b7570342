// Package gpio captures receiver edges with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"context"
	"time"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// EdgeSource delivers signal transitions from the receiver's data line.
type EdgeSource interface {
	// Run calls handle for every edge, in order, from a single goroutine,
	// until ctx is cancelled or the source fails.
	Run(ctx context.Context, handle func(logic.EdgeEvent)) error

	// Close releases hardware resources.
	Close() error
}

// Defaults for a 433 MHz receiver module wired to a Raspberry Pi.
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 27 // BCM numbering
	DefaultTick = 4 * time.Microsecond
)

// Ticks converts a monotonic timestamp to capture ticks of the given
// resolution. The result wraps at 2^32 like a hardware capture counter.
func Ticks(ts, tick time.Duration) uint32 {
	if tick <= 0 {
		tick = DefaultTick
	}
	return uint32(uint64(ts / tick))
}
