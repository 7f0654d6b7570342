// Package logic contains the pure decoding logic for the weather receiver.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Timestamps are always passed in as capture ticks or time values.
package logic

import (
	"fmt"
	"time"
)

// Wire constants shared with the sensor.
const (
	PacketSize  = 11   // nibbles after the start marker
	PacketStart = 0x09 // frame-start byte
	PacketBits  = 4 * PacketSize
)

// EdgeEvent is a single captured signal transition.
type EdgeEvent struct {
	Timestamp uint32 // capture ticks, wraps
	Rising    bool
}

// PulsePeriod is the time between two consecutive edges.
type PulsePeriod struct {
	Duration uint32
	WasHigh  bool
}

// Packet is a fully received frame: PacketSize nibbles, the last being the checksum.
type Packet [PacketSize]uint8

// PacketType is the 2-bit type field carried in nibble 0.
type PacketType uint8

const (
	TypeTemperature PacketType = iota
	TypeHumidity
	TypeRain
	TypeWind
)

func (t PacketType) String() string {
	switch t {
	case TypeTemperature:
		return "TEMPERATURE"
	case TypeHumidity:
		return "HUMIDITY"
	case TypeRain:
		return "RAIN"
	case TypeWind:
		return "WIND"
	}
	return fmt.Sprintf("TYPE_%d", uint8(t))
}

// Completeness records which packet types have been seen since the last reading.
type Completeness uint8

const (
	HaveTemperature Completeness = 1 << iota
	HaveHumidity
	HaveRain
	HaveWind

	HaveAll = HaveTemperature | HaveHumidity | HaveRain | HaveWind
)

// bit returns the completeness flag for a packet type.
func (t PacketType) bit() Completeness {
	return 1 << (t & 0x3)
}

// Reading is a combined weather observation, emitted once every packet type
// has been received since the previous one.
type Reading struct {
	Timestamp    time.Time
	SensorID     uint8
	TemperatureC float64
	DewpointC    float64
	Humidity     uint8 // percent
	WindChillC   float64
	WindSpeedKmh float64
	Direction    uint8 // 0-15, 22.5 degree steps from north

	// Rain values are raw tipping-bucket counts.
	RainTotal uint16
	Rain1h    uint16
	Rain24h   uint16
}

// Compass returns the three-character compass label for the wind direction.
func (r Reading) Compass() string {
	return CompassPoint(r.Direction)
}

// DirectionDegrees returns the wind direction in degrees from north.
func (r Reading) DirectionDegrees() float64 {
	return float64(r.Direction&0xf) * 22.5
}

// MMPerTip is the rainfall represented by one tip of the sensor's bucket.
const MMPerTip = 0.51826

// RainMM converts a tip count into millimetres.
func RainMM(count uint16) float64 {
	return float64(count) * MMPerTip
}

// TimeOfDay is the receiver's own wall clock, advanced by Clock.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
