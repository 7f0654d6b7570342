package logic

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrChecksum is returned when a packet's checksum nibble does not match.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrRedundancy is returned when the inverted copy of the data digits does not match.
	ErrRedundancy = errors.New("redundancy check failed")
)

// Nibble offsets within a Packet.
const (
	offType     = 0
	offIDHi     = 1
	offIDLo     = 2
	offFlags    = 3
	offPeriod   = 4
	offDataHi   = 5
	offDataLo   = 6
	offDataExt  = 7
	offInvHi    = 8
	offInvLo    = 9
	offChecksum = PacketSize - 1
)

// Checksum returns the checksum the sensor would send for p: the start
// marker plus every nibble before the checksum, modulo 16.
func Checksum(p Packet) uint8 {
	sum := uint8(PacketStart)
	for _, n := range p[:offChecksum] {
		sum += n
	}
	return sum & 0xf
}

// Verify runs the checksum and the redundancy check.
func (p Packet) Verify() error {
	if got, want := p[offChecksum]&0xf, Checksum(p); got != want {
		return fmt.Errorf("%w: got %x, want %x", ErrChecksum, got, want)
	}
	if p[offDataHi]&0xf != ^p[offInvHi]&0xf || p[offDataLo]&0xf != ^p[offInvLo]&0xf {
		return fmt.Errorf("%w: data %x%x, inverted %x%x", ErrRedundancy,
			p[offDataHi]&0xf, p[offDataLo]&0xf, p[offInvHi]&0xf, p[offInvLo]&0xf)
	}
	return nil
}

// Type returns the packet type from the low two bits of nibble 0.
func (p Packet) Type() PacketType {
	return PacketType(p[offType] & 0x3)
}

// SensorID returns the random id the sensor picks at power-up.
func (p Packet) SensorID() uint8 {
	return (p[offIDHi]&0xf)<<4 | p[offIDLo]&0xf
}

// Flags returns the nibble listing which packet types the sensor sends.
func (p Packet) Flags() uint8 {
	return p[offFlags] & 0xf
}

// Interval returns how long the sensor waits between packet groups, or zero
// if the field holds the unused code.
func (p Packet) Interval() time.Duration {
	switch p[offPeriod] & 0x3 {
	case 0:
		return 4 * time.Second
	case 1:
		return 32 * time.Second
	case 2:
		return 128 * time.Second
	}
	return 0
}

// String renders the packet as hex nibbles, e.g. "42278533AC1".
func (p Packet) String() string {
	var b strings.Builder
	for _, n := range p {
		fmt.Fprintf(&b, "%X", n&0xf)
	}
	return b.String()
}
