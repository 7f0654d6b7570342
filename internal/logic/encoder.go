package logic

import "math"

// Header holds the packet fields that do not carry measurements.
type Header struct {
	SensorID uint8
	Flags    uint8 // packet types the sensor announces
	Period   uint8 // repeat interval code, see Packet.Interval
}

// DefaultHeader matches the values the station simulator transmits.
var DefaultHeader = Header{SensorID: 0x22, Flags: 0x7, Period: 0x8}

// Encode builds a packet of type t carrying the three data digits d, as the
// sensor would send it: parity bit, inverted copy of the first two digits
// and checksum are all filled in.
func (h Header) Encode(t PacketType, d [3]uint8) Packet {
	var p Packet
	for i := range d {
		d[i] &= 0xf
	}

	// Bit 2 of the type nibble makes the data digits' parity come out even.
	x := (d[0] ^ d[1] ^ d[2]) & 0xf
	x = uint8(uint16(0x9669)>>x&1) << 2

	p[offType] = x | uint8(t&0x3)
	p[offIDHi] = h.SensorID >> 4
	p[offIDLo] = h.SensorID & 0xf
	p[offFlags] = h.Flags & 0xf
	p[offPeriod] = h.Period & 0xf
	p[offDataHi] = d[0]
	p[offDataLo] = d[1]
	p[offDataExt] = d[2]
	p[offInvHi] = ^d[0] & 0xf
	p[offInvLo] = ^d[1] & 0xf
	p[offChecksum] = Checksum(p)
	return p
}

// Temperature encodes c degrees C as three BCD digits offset by 30.0.
func (h Header) Temperature(c float64) Packet {
	v := int(math.Round(c*10)) + 300
	v = clamp(v, 0, 999)
	return h.Encode(TypeTemperature, [3]uint8{uint8(v / 100), uint8(v / 10 % 10), uint8(v % 10)})
}

// Humidity encodes a percentage as two BCD digits.
func (h Header) Humidity(pct uint8) Packet {
	v := clamp(int(pct), 0, 99)
	return h.Encode(TypeHumidity, [3]uint8{uint8(v / 10), uint8(v % 10), 0xd})
}

// Rain encodes the 12-bit tip counter in binary.
func (h Header) Rain(counter uint16) Packet {
	c := counter & RainCounterMask
	return h.Encode(TypeRain, [3]uint8{uint8(c >> 8), uint8(c >> 4), uint8(c)})
}

// Wind encodes a speed in km/h (0.36 km/h steps) and a 0-15 direction index.
func (h Header) Wind(kmh float64, direction uint8) Packet {
	v := clamp(int(math.Round(kmh/0.36)), 0, 0xff)
	return h.Encode(TypeWind, [3]uint8{uint8(v >> 4), uint8(v), direction})
}

// Pulse widths in capture ticks used by PulseTrain.
type Pulses struct {
	One  uint32
	Zero uint32
	Gap  uint32
}

// PulsesFor returns nominal widths centred in the timing windows.
func PulsesFor(t Timing) Pulses {
	return Pulses{
		One:  (t.MinOne + t.MaxOne) / 2,
		Zero: (t.MinZero + t.MaxZero) / 2,
		Gap:  (t.MinWait + t.MaxWait) / 2,
	}
}

// PulseTrain renders the start marker and packet p as edges beginning at
// tick start: each bit is a high pulse (short for one, long for zero)
// followed by a low gap. It returns the edges and the tick after the last gap.
func (w Pulses) PulseTrain(p Packet, start uint32) ([]EdgeEvent, uint32) {
	edges := make([]EdgeEvent, 0, 2*(8+PacketBits))
	t := start
	emit := func(one bool) {
		edges = append(edges, EdgeEvent{Timestamp: t, Rising: true})
		if one {
			t += w.One
		} else {
			t += w.Zero
		}
		edges = append(edges, EdgeEvent{Timestamp: t, Rising: false})
		t += w.Gap
	}

	for i := 7; i >= 0; i-- {
		emit(PacketStart>>i&1 == 1)
	}
	for _, n := range p {
		for i := 3; i >= 0; i-- {
			emit(n>>i&1 == 1)
		}
	}
	return edges, t
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
