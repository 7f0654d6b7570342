// Package report delivers completed weather readings to their consumers.
package report

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// Sink consumes readings. Implementations must not retain r beyond the call
// unless they copy it.
type Sink interface {
	Report(r logic.Reading) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(r logic.Reading) error

// Report calls f(r).
func (f SinkFunc) Report(r logic.Reading) error {
	return f(r)
}

// FormatLine renders a reading as the receiver's one-line summary. Rain is in
// millimetres; DIR0 is degrees from north.
func FormatLine(r logic.Reading) string {
	return fmt.Sprintf("To:%2.1f WC:%2.1f DP:%2.1f Rtot:%4.1f R1h:%2.1f R24h:%3.1f RHo:%d WS:%3.1f DIR0:%3.1f DIR1:%s",
		r.TemperatureC,
		r.WindChillC,
		r.DewpointC,
		logic.RainMM(r.RainTotal),
		logic.RainMM(r.Rain1h),
		logic.RainMM(r.Rain24h),
		r.Humidity,
		r.WindSpeedKmh,
		r.DirectionDegrees(),
		r.Compass(),
	)
}

type named struct {
	name string
	sink Sink
}

// Multi fans a reading out to several sinks. A failing sink does not stop
// the others; all failures are returned joined.
type Multi struct {
	mu    sync.RWMutex
	sinks []named
}

// NewMulti returns an empty fan-out.
func NewMulti() *Multi {
	return &Multi{}
}

// Add registers a sink under a name used in errors.
func (m *Multi) Add(name string, s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, named{name: name, sink: s})
}

// Len returns the number of registered sinks.
func (m *Multi) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

// Report sends r to every sink in registration order.
func (m *Multi) Report(r logic.Reading) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, s := range m.sinks {
		if err := s.sink.Report(r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every reading it is given. Used in tests.
type Recorder struct {
	mu       sync.Mutex
	readings []logic.Reading

	// ReportError, if set, is returned by Report after recording.
	ReportError error
}

// Report records r.
func (rec *Recorder) Report(r logic.Reading) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.readings = append(rec.readings, r)
	return rec.ReportError
}

// Readings returns a copy of everything recorded.
func (rec *Recorder) Readings() []logic.Reading {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]logic.Reading, len(rec.readings))
	copy(out, rec.readings)
	return out
}

// Last returns the most recent reading.
func (rec *Recorder) Last() (logic.Reading, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.readings) == 0 {
		return logic.Reading{}, false
	}
	return rec.readings[len(rec.readings)-1], true
}
