package gpio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/wx-receiver/internal/logic"
)

func TestTicks(t *testing.T) {
	tests := []struct {
		ts   time.Duration
		tick time.Duration
		want uint32
	}{
		{0, DefaultTick, 0},
		{600 * time.Microsecond, DefaultTick, 150},
		{1200 * time.Microsecond, DefaultTick, 300},
		{1203 * time.Microsecond, DefaultTick, 300},
		{time.Second, time.Microsecond, 1000000},
		{600 * time.Microsecond, 0, 150},
	}
	for _, tt := range tests {
		if got := Ticks(tt.ts, tt.tick); got != tt.want {
			t.Errorf("Ticks(%v, %v): got %d, want %d", tt.ts, tt.tick, got, tt.want)
		}
	}
}

func TestTicksWraps(t *testing.T) {
	// 2^32 ticks of 4us is a little over 4.7 hours.
	period := time.Duration(1<<32) * DefaultTick
	if got := Ticks(period+8*time.Microsecond, DefaultTick); got != 2 {
		t.Errorf("after wrap: got %d, want 2", got)
	}

	// Differences stay correct across the wrap.
	before := Ticks(period-400*time.Microsecond, DefaultTick)
	after := Ticks(period+200*time.Microsecond, DefaultTick)
	if d := after - before; d != 150 {
		t.Errorf("difference across wrap: got %d, want 150", d)
	}
}

func TestFakeSourceDeliversInOrder(t *testing.T) {
	edges := []logic.EdgeEvent{
		{Timestamp: 10, Rising: true},
		{Timestamp: 160, Rising: false},
		{Timestamp: 460, Rising: true},
	}
	f := NewFakeSource(edges)

	var got []logic.EdgeEvent
	if err := f.Run(context.Background(), func(e logic.EdgeEvent) { got = append(got, e) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(edges) {
		t.Fatalf("delivered: got %d, want %d", len(got), len(edges))
	}
	for i := range edges {
		if got[i] != edges[i] {
			t.Errorf("edge %d: got %+v, want %+v", i, got[i], edges[i])
		}
	}
	if f.Delivered != len(edges) {
		t.Errorf("Delivered: got %d, want %d", f.Delivered, len(edges))
	}
}

func TestFakeSourceHoldUntilCancel(t *testing.T) {
	f := NewFakeSource([]logic.EdgeEvent{{Timestamp: 1, Rising: true}})
	f.Hold = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, func(logic.EdgeEvent) {}) }()

	select {
	case <-done:
		t.Fatal("Run returned before cancel")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFakeSourceError(t *testing.T) {
	f := NewFakeSource([]logic.EdgeEvent{{Timestamp: 1, Rising: true}})
	f.RunError = errors.New("simulated error")

	err := f.Run(context.Background(), func(logic.EdgeEvent) {
		t.Error("handler called despite error")
	})
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeSourceStopsOnCancelledContext(t *testing.T) {
	f := NewFakeSource(make([]logic.EdgeEvent, 10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Run(ctx, func(logic.EdgeEvent) {}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if f.Delivered != 0 {
		t.Errorf("Delivered: got %d, want 0", f.Delivered)
	}
}

func TestFakeSourceClose(t *testing.T) {
	f := NewFakeSource(nil)
	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

var _ EdgeSource = (*FakeSource)(nil)
var _ EdgeSource = (*RealSource)(nil)
