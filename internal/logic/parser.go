package logic

import "errors"

// ParserStats counts parser outcomes since startup.
type ParserStats struct {
	Packets    uint64
	Checksum   uint64 // rejected by checksum
	Redundancy uint64 // rejected by the inverted digit check
	Readings   uint64
}

// Outcome describes what an accepted packet changed.
type Outcome struct {
	Type        PacketType
	RainChanged bool
	// Reading is set when this packet completed a full set of packet types.
	Reading *Reading
}

// Parser validates packets and keeps the latest value of every field.
// Values persist across packets; only emission is gated on all four types
// having been seen since the last reading.
type Parser struct {
	rain *RainHistory

	sensorID     uint8
	temperatureC float64
	humidity     uint8
	windSpeedKmh float64
	direction    uint8

	seen  Completeness
	stats ParserStats
}

// NewParser creates a parser that records rain changes into rain.
func NewParser(rain *RainHistory) *Parser {
	return &Parser{
		rain:     rain,
		humidity: 50,
	}
}

// Parse validates pkt and applies it. at is the receiver's time of day, used
// to place a rain change in the rolling history. A rejected packet returns an
// error wrapping ErrChecksum or ErrRedundancy and changes nothing.
func (p *Parser) Parse(pkt Packet, at TimeOfDay) (Outcome, error) {
	p.stats.Packets++
	if err := pkt.Verify(); err != nil {
		if errors.Is(err, ErrChecksum) {
			p.stats.Checksum++
		} else {
			p.stats.Redundancy++
		}
		return Outcome{}, err
	}

	n5 := int(pkt[offDataHi] & 0xf)
	n6 := int(pkt[offDataLo] & 0xf)
	n7 := int(pkt[offDataExt] & 0xf)

	out := Outcome{Type: pkt.Type()}
	switch out.Type {
	case TypeTemperature:
		p.temperatureC = float64(n5*100+n6*10+n7-300) / 10
	case TypeHumidity:
		p.humidity = uint8(n5*10 + n6)
	case TypeRain:
		counter := uint16(n5*256 + n6*16 + n7)
		if counter != p.rain.Counter() {
			p.rain.Record(counter, at.Minute, at.Hour)
			out.RainChanged = true
		}
	case TypeWind:
		p.windSpeedKmh = float64(n5*16+n6) * 0.36
		p.direction = uint8(n7)
	}
	p.sensorID = pkt.SensorID()

	p.seen |= out.Type.bit()
	if p.seen == HaveAll {
		r := p.reading()
		out.Reading = &r
		p.seen = 0
		p.stats.Readings++
	}
	return out, nil
}

// reading derives dewpoint and wind chill from the values held now, so the
// result does not depend on the order the packet types arrived in.
func (p *Parser) reading() Reading {
	return Reading{
		SensorID:     p.sensorID,
		TemperatureC: p.temperatureC,
		DewpointC:    Dewpoint(p.temperatureC, float64(p.humidity)),
		Humidity:     p.humidity,
		WindChillC:   WindChill(p.temperatureC, p.windSpeedKmh),
		WindSpeedKmh: p.windSpeedKmh,
		Direction:    p.direction,
		RainTotal:    p.rain.Counter(),
		Rain1h:       p.rain.LastHour(),
		Rain24h:      p.rain.LastDay(),
	}
}

// Seen returns the packet types received since the last reading.
func (p *Parser) Seen() Completeness {
	return p.seen
}

// Stats returns a copy of the parser counters.
func (p *Parser) Stats() ParserStats {
	return p.stats
}
