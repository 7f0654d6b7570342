//go:build linux

package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// RealSource reads edges from actual hardware using the Linux GPIO character device.
type RealSource struct {
	chip   string
	offset int
	tick   time.Duration
	invert bool

	// mu guards the line, which Run requests and Close releases from
	// different goroutines.
	mu      sync.Mutex
	line    *gpiocdev.Line
	running bool
	closed  bool
}

// ErrSourceClosed is returned by Run after Close.
var ErrSourceClosed = errors.New("gpio source closed")

// NewRealSource prepares a source for the given chip and line offset. The
// line is requested when Run starts. With invert set, falling edges are
// treated as the start of a pulse, for receivers with an inverting output.
func NewRealSource(chip string, offset int, tick time.Duration, invert bool) (*RealSource, error) {
	if chip == "" {
		chip = DefaultChip
	}
	if offset < 0 {
		return nil, fmt.Errorf("invalid gpio line %d", offset)
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	return &RealSource{chip: chip, offset: offset, tick: tick, invert: invert}, nil
}

// Run requests the line with both-edge detection and blocks until ctx is done.
// gpiocdev delivers events from its own goroutine, one at a time.
func (r *RealSource) Run(ctx context.Context, handle func(logic.EdgeEvent)) error {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return ErrSourceClosed
	case r.running:
		r.mu.Unlock()
		return errors.New("gpio source already running")
	}
	r.running = true
	r.mu.Unlock()

	handler := func(evt gpiocdev.LineEvent) {
		rising := evt.Type == gpiocdev.LineEventRisingEdge
		handle(logic.EdgeEvent{
			Timestamp: Ticks(evt.Timestamp, r.tick),
			Rising:    rising != r.invert,
		})
	}

	// Pull-down matches the Pi boot default, so an unplugged receiver reads idle.
	line, err := gpiocdev.RequestLine(r.chip, r.offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("wx-receiver"),
		gpiocdev.WithEventHandler(handler),
	)
	if err != nil {
		return fmt.Errorf("request line %s:%d: %w", r.chip, r.offset, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		line.Close()
		return nil
	}
	r.line = line
	r.mu.Unlock()

	<-ctx.Done()
	return nil
}

// Close releases the line. The line is reconfigured to input with pull-down
// first, matching Raspberry Pi boot defaults.
func (r *RealSource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.line == nil {
		return nil
	}
	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	r.line = nil
	return errors.Join(errs...)
}
