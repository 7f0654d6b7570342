//go:build !linux

package gpio

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(chip string, offset int, tick time.Duration, invert bool) (*RealSource, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Run is not implemented on non-Linux platforms.
func (r *RealSource) Run(ctx context.Context, handle func(logic.EdgeEvent)) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealSource) Close() error {
	return nil
}
