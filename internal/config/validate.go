package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// SOURCE
	// ------------------------------------------------------------

	s := cfg.Source
	switch s.Kind {
	case "", SourceGPIO:
		if s.Line < 0 {
			return fmt.Errorf("source: line %d must not be negative", s.Line)
		}
	case SourceSerial:
		if s.Port == "" {
			return fmt.Errorf("source: kind %q requires port", s.Kind)
		}
	case SourceFile:
		if s.File == "" {
			return fmt.Errorf("source: kind %q requires file", s.Kind)
		}
	default:
		return fmt.Errorf("source: unknown kind %q (want gpio, serial or file)", s.Kind)
	}
	if s.Baud < 0 {
		return fmt.Errorf("source: baud %d must not be negative", s.Baud)
	}
	if s.TickUs < 0 {
		return fmt.Errorf("source: tick_us %d must not be negative", s.TickUs)
	}

	// ------------------------------------------------------------
	// TIMING (defaults merged, so partial overrides are checked
	// against the bounds they will actually sit next to)
	// ------------------------------------------------------------

	if err := cfg.Timing.Resolve().Validate(); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// OUTPUTS
	// ------------------------------------------------------------

	if cfg.Report.Serial.Baud < 0 {
		return fmt.Errorf("report: serial baud %d must not be negative", cfg.Report.Serial.Baud)
	}
	if cfg.MQTT.Buffer < 0 {
		return fmt.Errorf("mqtt: buffer %d must not be negative", cfg.MQTT.Buffer)
	}
	if cfg.Modbus.TimeoutMs < 0 {
		return fmt.Errorf("modbus: timeout_ms %d must not be negative", cfg.Modbus.TimeoutMs)
	}
	if !cfg.Modbus.Enabled() && (cfg.Modbus.UnitID != 0 || cfg.Modbus.Address != 0) {
		return fmt.Errorf("modbus: unit_id/address set but no endpoint")
	}
	if cfg.PollMs < 0 {
		return fmt.Errorf("poll_ms %d must not be negative", cfg.PollMs)
	}

	return nil
}
