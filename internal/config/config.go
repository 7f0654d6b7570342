// Package config loads the wx-receiver YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// Off disables an optional surface (mqtt broker, http addr).
const Off = "off"

// Source kinds.
const (
	SourceGPIO   = "gpio"
	SourceSerial = "serial"
	SourceFile   = "file"
)

type Config struct {
	Source SourceConfig `yaml:"source"`
	Timing TimingConfig `yaml:"timing"`
	Rain   RainConfig   `yaml:"rain"`
	Report ReportConfig `yaml:"report"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Modbus ModbusConfig `yaml:"modbus"`
	HTTP   HTTPConfig   `yaml:"http"`
	PollMs int          `yaml:"poll_ms"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Kind string `yaml:"kind"` // gpio | serial | file

	// gpio
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
	Invert bool   `yaml:"invert"`

	// serial capture MCU
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`

	// replay
	File string `yaml:"file"`

	TickUs int `yaml:"tick_us"`
}

// ---- TIMING ----

// TimingConfig overrides the classifier windows, in ticks. Zero keeps the
// default for that bound.
type TimingConfig struct {
	MinOne  uint32 `yaml:"min_one"`
	MaxOne  uint32 `yaml:"max_one"`
	MinZero uint32 `yaml:"min_zero"`
	MaxZero uint32 `yaml:"max_zero"`
	MinWait uint32 `yaml:"min_wait"`
	MaxWait uint32 `yaml:"max_wait"`
}

// Resolve merges t over logic.DefaultTiming.
func (t TimingConfig) Resolve() logic.Timing {
	out := logic.DefaultTiming()
	pick := func(dst *uint32, v uint32) {
		if v != 0 {
			*dst = v
		}
	}
	pick(&out.MinOne, t.MinOne)
	pick(&out.MaxOne, t.MaxOne)
	pick(&out.MinZero, t.MinZero)
	pick(&out.MaxZero, t.MaxZero)
	pick(&out.MinWait, t.MinWait)
	pick(&out.MaxWait, t.MaxWait)
	return out
}

// ---- RAIN ----

type RainConfig struct {
	Store string `yaml:"store"` // CBOR counter file; empty keeps it in memory
}

// ---- REPORT ----

type ReportConfig struct {
	Console *bool        `yaml:"console"`
	Serial  SerialConfig `yaml:"serial"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
	Buffer      int    `yaml:"buffer"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != "" && m.Broker != Off
}

// ---- MODBUS ----

type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Enabled reports whether register export is configured.
func (m ModbusConfig) Enabled() bool {
	return m.Endpoint != ""
}

// ---- HTTP ----

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Enabled reports whether the status server should listen.
func (h HTTPConfig) Enabled() bool {
	return h.Addr != "" && h.Addr != Off
}

// Load reads and decodes the file at path. Unknown keys are errors.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads one YAML document from r. An empty document yields a zero
// Config.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}
