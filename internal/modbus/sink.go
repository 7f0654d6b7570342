// Package modbus exports readings as a block of holding registers on a
// Modbus TCP server, for PLCs and SCADA panels that poll a register map.
package modbus

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// Register offsets from the configured base address.
const (
	RegTemperature = iota // 0.1 C, signed
	RegDewpoint           // 0.1 C, signed
	RegHumidity           // percent
	RegWindChill          // 0.1 C, signed
	RegWindSpeed          // 0.1 km/h
	RegDirection          // 0-15
	RegRainTotal          // tips
	RegRain1h             // tips
	RegRain24h            // tips
	RegSensorID

	RegisterCount
)

// DefaultTimeout bounds each write when Config.Timeout is zero.
const DefaultTimeout = 2 * time.Second

// Config selects the target server and register block.
type Config struct {
	Endpoint string
	UnitID   uint8
	Address  uint16
	Timeout  time.Duration
}

// registerWriter is the part of modbus.Client the sink uses.
type registerWriter interface {
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Sink writes every reading to one register block. Writes are serialized.
type Sink struct {
	mu      sync.Mutex
	cfg     Config
	client  registerWriter
	closer  func() error
	writes  int
	failure int
}

// Dial connects to cfg.Endpoint.
func Dial(cfg Config) (*Sink, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus: connect %s: %w", cfg.Endpoint, err)
	}

	return newSink(cfg, modbus.NewClient(h), h.Close), nil
}

func newSink(cfg Config, client registerWriter, closer func() error) *Sink {
	return &Sink{cfg: cfg, client: client, closer: closer}
}

// Report writes r's registers in a single request.
func (s *Sink) Report(r logic.Reading) error {
	regs := Registers(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.client.WriteMultipleRegisters(s.cfg.Address, uint16(len(regs)), packRegisters(regs))
	if err != nil {
		s.failure++
		return fmt.Errorf("modbus: ep=%s unit=%d addr=%d: %w", s.cfg.Endpoint, s.cfg.UnitID, s.cfg.Address, err)
	}
	s.writes++
	return nil
}

// Writes returns the number of successful and failed writes.
func (s *Sink) Writes() (ok, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes, s.failure
}

// Close drops the TCP connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer()
	s.closer = nil
	return err
}

// Registers lays r out in register order. Signed values are two's
// complement; scaled values saturate at the int16 range.
func Registers(r logic.Reading) []uint16 {
	regs := make([]uint16, RegisterCount)
	regs[RegTemperature] = tenths(r.TemperatureC)
	regs[RegDewpoint] = tenths(r.DewpointC)
	regs[RegHumidity] = uint16(r.Humidity)
	regs[RegWindChill] = tenths(r.WindChillC)
	regs[RegWindSpeed] = tenths(r.WindSpeedKmh)
	regs[RegDirection] = uint16(r.Direction & 0xf)
	regs[RegRainTotal] = r.RainTotal
	regs[RegRain1h] = r.Rain1h
	regs[RegRain24h] = r.Rain24h
	regs[RegSensorID] = uint16(r.SensorID)
	return regs
}

func tenths(v float64) uint16 {
	x := math.Round(v * 10)
	if x > math.MaxInt16 {
		x = math.MaxInt16
	}
	if x < math.MinInt16 {
		x = math.MinInt16
	}
	return uint16(int16(x))
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
