// Package station runs the main-context half of the receiver: it takes
// packets from the handoff slot, parses them, keeps the time of day and the
// rain history, persists the rain counter and reports completed readings.
package station

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/report"
	"github.com/sweeney/wx-receiver/internal/status"
	"github.com/sweeney/wx-receiver/internal/store"
)

// Station owns the parser, rain history and clock. All methods except
// Decoder must be called from one goroutine.
type Station struct {
	slot   *logic.Slot
	rx     *logic.Receiver
	parser *logic.Parser
	rain   *logic.RainHistory
	clock  *logic.Clock
	store  store.Store
	sink   report.Sink

	start         time.Time
	lastHeartbeat time.Time
	last          *logic.Reading
	saveErrors    int
}

// New creates a station reading from slot. rx is only used for counters.
// The rain history is seeded from st; an empty store seeds zero. start is
// the wall time the clock is set from.
func New(slot *logic.Slot, rx *logic.Receiver, st store.Store, sink report.Sink, start time.Time) (*Station, error) {
	counter, err := st.Load()
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info("station: no saved rain counter, starting from zero")
	case err != nil:
		return nil, fmt.Errorf("load rain counter: %w", err)
	default:
		log.Info("station: restored rain counter", "counter", counter)
	}

	rain := logic.NewRainHistory(counter)
	return &Station{
		slot:          slot,
		rx:            rx,
		parser:        logic.NewParser(rain),
		rain:          rain,
		clock:         logic.ClockAt(start),
		store:         st,
		sink:          sink,
		start:         start,
		lastHeartbeat: start,
	}, nil
}

// Poll advances the clock to t and handles at most one waiting packet.
// It returns the reading the packet completed, if any.
func (s *Station) Poll(t time.Time) *logic.Reading {
	s.tick(t)

	pkt, ok := s.slot.Take()
	if !ok {
		return nil
	}
	return s.handle(pkt, t)
}

// tick steps the time of day; every completed minute is written into the
// rain history so the rolling windows age out even without rain packets.
func (s *Station) tick(t time.Time) {
	s.clock.Advance(t.Sub(s.start), func(tod logic.TimeOfDay) {
		s.rain.Record(s.rain.Counter(), tod.Minute, tod.Hour)
	})
}

func (s *Station) handle(pkt logic.Packet, t time.Time) *logic.Reading {
	out, err := s.parser.Parse(pkt, s.clock.Now())
	if err != nil {
		log.Debug("station: packet rejected", "packet", pkt, "err", err)
		return nil
	}
	log.Debug("station: packet", "type", out.Type, "packet", pkt, "interval", pkt.Interval())

	if out.RainChanged {
		if err := s.store.Save(s.rain.Counter()); err != nil {
			s.saveErrors++
			log.Warn("station: save rain counter", "err", err)
		}
	}

	if out.Reading == nil {
		return nil
	}
	r := *out.Reading
	r.Timestamp = t
	s.last = &r

	if s.sink != nil {
		if err := s.sink.Report(r); err != nil {
			log.Warn("station: report", "err", err)
		}
	}
	return &r
}

// CheckHeartbeat reports whether interval has passed since the last
// heartbeat, and if so starts a new interval. A zero interval disables it.
func (s *Station) CheckHeartbeat(t time.Time, interval time.Duration) bool {
	if interval <= 0 || t.Sub(s.lastHeartbeat) < interval {
		return false
	}
	s.lastHeartbeat = t
	return true
}

// Last returns the most recent reading, or nil.
func (s *Station) Last() *logic.Reading {
	return s.last
}

// Now returns the station's time of day.
func (s *Station) Now() logic.TimeOfDay {
	return s.clock.Now()
}

// RainCounter returns the current rain counter.
func (s *Station) RainCounter() uint16 {
	return s.rain.Counter()
}

// SaveErrors returns how many counter saves failed.
func (s *Station) SaveErrors() int {
	return s.saveErrors
}

// Decoder returns the decoder state for status consumers.
func (s *Station) Decoder() status.Decoder {
	return status.Decoder{
		State:    s.rx.State(),
		Seen:     s.parser.Seen(),
		Clock:    s.clock.Now(),
		Receiver: s.rx.Stats(),
		Parser:   s.parser.Stats(),
	}
}
