package config

import (
	"time"

	"github.com/sweeney/wx-receiver/internal/gpio"
	"github.com/sweeney/wx-receiver/internal/mqtt"
)

// Defaults applied by Normalize.
const (
	DefaultBroker      = "tcp://192.168.1.200:1883"
	DefaultHTTPAddr    = ":80"
	DefaultBaud        = 115200
	DefaultPollMs      = 100
	DefaultHeartbeatMs = 15 * 60 * 1000
	DefaultTimeoutMs   = 2000
)

// Normalize fills unset fields with defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	s := &cfg.Source
	if s.Kind == "" {
		s.Kind = SourceGPIO
	}
	if s.Chip == "" {
		s.Chip = gpio.DefaultChip
	}
	if s.Line == 0 {
		s.Line = gpio.DefaultLine
	}
	if s.Baud == 0 {
		s.Baud = DefaultBaud
	}
	if s.TickUs == 0 {
		s.TickUs = int(gpio.DefaultTick / time.Microsecond)
	}

	if cfg.Report.Console == nil {
		on := true
		cfg.Report.Console = &on
	}
	if cfg.Report.Serial.Port != "" && cfg.Report.Serial.Baud == 0 {
		cfg.Report.Serial.Baud = DefaultBaud
	}

	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = DefaultBroker
	}
	if cfg.MQTT.Buffer == 0 {
		cfg.MQTT.Buffer = mqtt.DefaultBufferSize
	}
	if cfg.MQTT.HeartbeatMs == 0 {
		cfg.MQTT.HeartbeatMs = DefaultHeartbeatMs
	}

	if cfg.Modbus.Enabled() && cfg.Modbus.TimeoutMs == 0 {
		cfg.Modbus.TimeoutMs = DefaultTimeoutMs
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.PollMs == 0 {
		cfg.PollMs = DefaultPollMs
	}
}

// Default returns a validated, normalized configuration with no file.
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}

// Tick returns the capture tick resolution.
func (s SourceConfig) Tick() time.Duration {
	return time.Duration(s.TickUs) * time.Microsecond
}

// Poll returns the main loop interval.
func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// Heartbeat returns the system event interval. Negative disables it.
func (m MQTTConfig) Heartbeat() time.Duration {
	if m.HeartbeatMs < 0 {
		return 0
	}
	return time.Duration(m.HeartbeatMs) * time.Millisecond
}

// Timeout returns the per-write Modbus timeout.
func (m ModbusConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}
