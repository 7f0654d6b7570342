// Package status provides a thread-safe status tracker for the wx-receiver daemon.
// It is read by the HTTP handlers, the monitor and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Source      string // e.g. "gpio gpiochip0:27", "serial /dev/ttyUSB0"
	TickUs      int64
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Modbus      string
	RainStore   string
}

// Decoder is the receiver and parser state at one poll.
type Decoder struct {
	State    logic.AssemblerState
	Seen     logic.Completeness
	Clock    logic.TimeOfDay
	Receiver logic.ReceiverStats
	Parser   logic.ParserStats
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       *logic.Reading // nil until the first complete reading
	Decoder       Decoder
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetReading records the latest complete reading.
func (t *Tracker) SetReading(r logic.Reading) {
	t.mu.Lock()
	t.snap.Reading = &r
	t.mu.Unlock()
}

// Update sets the decoder state. Called from runLoop on every poll.
func (t *Tracker) Update(d Decoder) {
	t.mu.Lock()
	t.snap.Decoder = d
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
