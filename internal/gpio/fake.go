package gpio

import (
	"context"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// FakeSource is a test double that replays scripted edges.
type FakeSource struct {
	// Edges are delivered in order by Run.
	Edges []logic.EdgeEvent

	// Hold keeps Run blocked after the last edge until ctx is cancelled,
	// like real hardware. Otherwise Run returns once Edges are exhausted.
	Hold bool

	// RunError, if set, is returned by Run without delivering anything.
	RunError error

	// Delivered counts edges passed to the handler.
	Delivered int

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSource creates a FakeSource with the given edges.
func NewFakeSource(edges []logic.EdgeEvent) *FakeSource {
	return &FakeSource{Edges: edges}
}

// Run delivers the scripted edges.
func (f *FakeSource) Run(ctx context.Context, handle func(logic.EdgeEvent)) error {
	if f.RunError != nil {
		return f.RunError
	}
	for _, e := range f.Edges {
		if ctx.Err() != nil {
			return nil
		}
		handle(e)
		f.Delivered++
	}
	if f.Hold {
		<-ctx.Done()
	}
	return nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
