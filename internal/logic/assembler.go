package logic

// AssemblerState is the frame assembly state.
type AssemblerState int

const (
	StateSearching AssemblerState = iota
	StateReceiving
	StatePacketReady
)

func (s AssemblerState) String() string {
	switch s {
	case StateSearching:
		return "SEARCHING"
	case StateReceiving:
		return "RECEIVING"
	case StatePacketReady:
		return "PACKET_READY"
	}
	return "UNKNOWN"
}

// searchSentinel blocks a start match until enough zeros have been shifted in.
const searchSentinel = 0xFF

// Step reports what a single symbol did to the assembler.
type Step struct {
	Started bool // frame-start marker matched
	Done    bool // packet completed
	Dropped int  // bits discarded by a desync while receiving
}

// Assembler turns classified symbols into packets. Every call does a fixed
// amount of work and never blocks.
type Assembler struct {
	state    AssemblerState
	shift    uint8
	buf      Packet
	bitCount uint8
	ready    Packet
}

// NewAssembler returns an assembler searching for a frame start.
func NewAssembler() *Assembler {
	return &Assembler{shift: searchSentinel}
}

// Push feeds one symbol through the state machine.
func (a *Assembler) Push(s Symbol) Step {
	switch a.state {
	case StateSearching:
		switch s {
		case SymbolOne:
			a.shift = a.shift<<1 | 1
		case SymbolZero:
			a.shift <<= 1
		case SymbolDesync:
			a.shift = searchSentinel
			return Step{}
		default:
			return Step{}
		}
		if a.shift == PacketStart {
			a.state = StateReceiving
			a.shift = searchSentinel
			a.buf = Packet{}
			a.bitCount = 0
			return Step{Started: true}
		}

	case StateReceiving:
		switch s {
		case SymbolOne, SymbolZero:
			if s == SymbolOne {
				a.buf[a.bitCount>>2] |= 1 << (3 - a.bitCount&0x3)
			}
			a.bitCount++
			if a.bitCount == PacketBits {
				a.ready = a.buf
				a.state = StatePacketReady
				a.bitCount = 0
				return Step{Done: true}
			}
		case SymbolDesync:
			dropped := int(a.bitCount)
			a.search()
			return Step{Dropped: dropped}
		}

	case StatePacketReady:
		// Held until Release.
	}
	return Step{}
}

// Packet returns the completed packet while the assembler is in StatePacketReady.
func (a *Assembler) Packet() (Packet, bool) {
	if a.state != StatePacketReady {
		return Packet{}, false
	}
	return a.ready, true
}

// Release hands back the ready slot and resumes searching.
func (a *Assembler) Release() {
	if a.state == StatePacketReady {
		a.search()
	}
}

func (a *Assembler) search() {
	a.state = StateSearching
	a.shift = searchSentinel
	a.buf = Packet{}
	a.bitCount = 0
}

// State returns the current state.
func (a *Assembler) State() AssemblerState {
	return a.state
}

// BitCount returns the number of bits held for the packet being received.
func (a *Assembler) BitCount() int {
	return int(a.bitCount)
}
