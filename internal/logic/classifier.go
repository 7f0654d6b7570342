package logic

import (
	"errors"
	"fmt"
)

// Symbol is the result of classifying one high pulse.
type Symbol int

const (
	// SymbolNone means the pulse was noise or arrived too soon; nothing changes.
	SymbolNone Symbol = iota
	SymbolOne
	SymbolZero
	// SymbolDesync means the gap since the last bit was too long to place this one.
	SymbolDesync
)

func (s Symbol) String() string {
	switch s {
	case SymbolOne:
		return "ONE"
	case SymbolZero:
		return "ZERO"
	case SymbolDesync:
		return "DESYNC"
	}
	return "NONE"
}

// Miss describes what a desync gap looks like. Diagnostic only: it never
// changes what is decoded.
type Miss int

const (
	MissNone Miss = iota
	MissUnknown
	MissedOne
	MissedZero
)

func (m Miss) String() string {
	switch m {
	case MissUnknown:
		return "unknown"
	case MissedOne:
		return "missed one"
	case MissedZero:
		return "missed zero"
	}
	return "none"
}

// Classification is the classifier output for one pulse.
type Classification struct {
	Symbol Symbol
	Miss   Miss
}

// Timing holds the pulse classification windows, in capture ticks.
type Timing struct {
	MinOne  uint32
	MaxOne  uint32
	MinZero uint32
	MaxZero uint32
	MinWait uint32
	MaxWait uint32
}

// DefaultTiming matches the sensor at 4us per tick: 0.6ms ones,
// 1.2ms zeros and 1.2ms between bits.
func DefaultTiming() Timing {
	return Timing{
		MinOne:  135,
		MaxOne:  165,
		MinZero: 270,
		MaxZero: 330,
		MinWait: 270,
		MaxWait: 330,
	}
}

// MaxWindowTicks bounds every timing window.
const MaxWindowTicks = 1 << 20

// Validate checks that the windows are ordered, do not overlap and stay
// under MaxWindowTicks.
func (t Timing) Validate() error {
	// Keeps 2*MaxWait+MaxZero in missed well inside uint32.
	if t.MaxZero > MaxWindowTicks || t.MaxWait > MaxWindowTicks {
		return fmt.Errorf("timing: max_zero %d and max_wait %d must not exceed %d ticks", t.MaxZero, t.MaxWait, MaxWindowTicks)
	}
	if t.MinOne == 0 {
		return errors.New("timing: min_one must be positive")
	}
	if t.MinOne >= t.MaxOne {
		return fmt.Errorf("timing: min_one %d must be below max_one %d", t.MinOne, t.MaxOne)
	}
	if t.MaxOne >= t.MinZero {
		return fmt.Errorf("timing: max_one %d overlaps min_zero %d", t.MaxOne, t.MinZero)
	}
	if t.MinZero > t.MaxZero {
		return fmt.Errorf("timing: min_zero %d above max_zero %d", t.MinZero, t.MaxZero)
	}
	if t.MinWait > t.MaxWait {
		return fmt.Errorf("timing: min_wait %d above max_wait %d", t.MinWait, t.MaxWait)
	}
	return nil
}

// Classify maps a pulse and the gap since the end of the last accepted bit
// to a symbol.
//
// Only high pulses inside [MinOne, MaxZero] are candidates. A one-width pulse
// needs a gap inside [MinWait, MaxWait]: shorter is a spurious edge, longer
// is a desync. A zero-width pulse is accepted whatever the gap, which lets
// the leading zeros of a frame re-seed the bit clock after an idle period.
func (t Timing) Classify(p PulsePeriod, sinceLastBit uint32) Classification {
	if !p.WasHigh || p.Duration < t.MinOne || p.Duration > t.MaxZero {
		return Classification{}
	}

	if p.Duration < t.MaxOne {
		switch {
		case sinceLastBit < t.MinWait:
			return Classification{}
		case sinceLastBit > t.MaxWait:
			return Classification{Symbol: SymbolDesync, Miss: t.missed(sinceLastBit)}
		}
		return Classification{Symbol: SymbolOne}
	}

	if p.Duration >= t.MinZero {
		return Classification{Symbol: SymbolZero}
	}
	return Classification{}
}

// missed reports whether a long gap fits exactly one lost one or one lost zero.
func (t Timing) missed(gap uint32) Miss {
	if gap >= 2*t.MinWait+t.MinOne && gap <= 2*t.MaxWait+t.MaxOne {
		return MissedOne
	}
	if gap >= 2*t.MinWait+t.MinZero && gap <= 2*t.MaxWait+t.MaxZero {
		return MissedZero
	}
	return MissUnknown
}
