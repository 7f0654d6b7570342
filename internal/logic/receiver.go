package logic

import "sync/atomic"

// Slot hands one completed packet from the edge context to the main context.
// Exactly one goroutine may call Put and exactly one may call Take.
type Slot struct {
	full atomic.Bool
	pkt  Packet
}

// Put stores p if the slot is empty. The packet is written before the flag
// is raised, so a Take that sees the flag also sees the packet.
func (s *Slot) Put(p Packet) bool {
	if s.full.Load() {
		return false
	}
	s.pkt = p
	s.full.Store(true)
	return true
}

// Take copies out the pending packet and clears the flag.
func (s *Slot) Take() (Packet, bool) {
	if !s.full.Load() {
		return Packet{}, false
	}
	p := s.pkt
	s.full.Store(false)
	return p, true
}

// Full reports whether a packet is waiting to be taken.
func (s *Slot) Full() bool {
	return s.full.Load()
}

// ReceiverStats counts what the receiver has seen since startup.
type ReceiverStats struct {
	Edges       uint64
	Noise       uint64
	Ones        uint64
	Zeros       uint64
	Desyncs     uint64
	MissedOnes  uint64
	MissedZeros uint64
	Dropped     uint64 // partial packets discarded
	Packets     uint64 // packets handed to the slot
}

// EdgeResult describes what one edge did, for diagnostics.
type EdgeResult struct {
	Period PulsePeriod
	Class  Classification
	Step   Step
}

// Receiver owns all edge-context state: the previous edge time, the end of
// the last accepted bit and the assembler. HandleEdge must only be called
// from one goroutine. Stats may be read from any goroutine.
type Receiver struct {
	timing   Timing
	asm      *Assembler
	slot     *Slot
	started  bool
	prevEdge uint32
	lastBit  uint32

	edges       atomic.Uint64
	noise       atomic.Uint64
	ones        atomic.Uint64
	zeros       atomic.Uint64
	desyncs     atomic.Uint64
	missedOnes  atomic.Uint64
	missedZeros atomic.Uint64
	dropped     atomic.Uint64
	packets     atomic.Uint64
	state       atomic.Uint32 // AssemblerState after the last edge
}

// NewReceiver creates a receiver that delivers packets into slot.
func NewReceiver(timing Timing, slot *Slot) *Receiver {
	return &Receiver{
		timing: timing,
		asm:    NewAssembler(),
		slot:   slot,
	}
}

// HandleEdge processes one captured edge.
func (r *Receiver) HandleEdge(e EdgeEvent) EdgeResult {
	r.edges.Add(1)
	if !r.started {
		r.started = true
		r.prevEdge = e.Timestamp
		r.lastBit = e.Timestamp
		return EdgeResult{}
	}

	// The ready packet is only let go once the main context has drained the slot.
	if r.asm.State() == StatePacketReady && !r.slot.Full() {
		r.asm.Release()
	}

	period := PulsePeriod{Duration: e.Timestamp - r.prevEdge, WasHigh: !e.Rising}
	since := r.prevEdge - r.lastBit
	class := r.timing.Classify(period, since)

	switch class.Symbol {
	case SymbolNone:
		if period.WasHigh {
			r.noise.Add(1)
		}
	case SymbolOne:
		r.ones.Add(1)
		r.lastBit = e.Timestamp
	case SymbolZero:
		r.zeros.Add(1)
		r.lastBit = e.Timestamp
	case SymbolDesync:
		r.desyncs.Add(1)
		switch class.Miss {
		case MissedOne:
			r.missedOnes.Add(1)
		case MissedZero:
			r.missedZeros.Add(1)
		}
	}

	step := r.asm.Push(class.Symbol)
	if step.Dropped > 0 {
		r.dropped.Add(1)
	}
	if step.Done {
		if pkt, ok := r.asm.Packet(); ok && r.slot.Put(pkt) {
			r.packets.Add(1)
		}
	}

	r.prevEdge = e.Timestamp
	r.state.Store(uint32(r.asm.State()))
	return EdgeResult{Period: period, Class: class, Step: step}
}

// State returns the assembler state as of the last edge. Safe from any goroutine.
func (r *Receiver) State() AssemblerState {
	return AssemblerState(r.state.Load())
}

// Stats returns a copy of the receiver counters.
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Edges:       r.edges.Load(),
		Noise:       r.noise.Load(),
		Ones:        r.ones.Load(),
		Zeros:       r.zeros.Load(),
		Desyncs:     r.desyncs.Load(),
		MissedOnes:  r.missedOnes.Load(),
		MissedZeros: r.missedZeros.Load(),
		Dropped:     r.dropped.Load(),
		Packets:     r.packets.Load(),
	}
}
