package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/report"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string              `json:"event,omitempty"`
	Reason        string              `json:"reason,omitempty"`
	Ready         bool                `json:"ready"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	StartTime     string              `json:"start_time"`
	Timestamp     string              `json:"timestamp"`
	MQTT          MQTTStatus          `json:"mqtt"`
	Reading       *report.ReadingJSON `json:"reading,omitempty"`
	Decoder       DecoderJSON         `json:"decoder"`
	Network       *NetworkJSON        `json:"network,omitempty"`
	Config        ConfigJSON          `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// DecoderJSON is the JSON representation of decoder state and counters.
type DecoderJSON struct {
	State       string   `json:"state"`
	Seen        []string `json:"seen"`
	Clock       string   `json:"clock"`
	Edges       uint64   `json:"edges"`
	Noise       uint64   `json:"noise"`
	Ones        uint64   `json:"ones"`
	Zeros       uint64   `json:"zeros"`
	Desyncs     uint64   `json:"desyncs"`
	MissedOnes  uint64   `json:"missed_ones"`
	MissedZeros uint64   `json:"missed_zeros"`
	Dropped     uint64   `json:"dropped"`
	Packets     uint64   `json:"packets"`
	Checksum    uint64   `json:"checksum_errors"`
	Redundancy  uint64   `json:"redundancy_errors"`
	Readings    uint64   `json:"readings"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source      string `json:"source"`
	TickUs      int64  `json:"tick_us"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	Modbus      string `json:"modbus,omitempty"`
	RainStore   string `json:"rain_store,omitempty"`
}

// SeenTypes lists the packet types present in c, in type order.
func SeenTypes(c logic.Completeness) []string {
	seen := []string{}
	for _, t := range []logic.PacketType{logic.TypeTemperature, logic.TypeHumidity, logic.TypeRain, logic.TypeWind} {
		if c&(logic.HaveTemperature<<t) != 0 {
			seen = append(seen, t.String())
		}
	}
	return seen
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Decoder
	inner := StatusInner{
		Ready:         snap.Reading != nil,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Decoder: DecoderJSON{
			State:       d.State.String(),
			Seen:        SeenTypes(d.Seen),
			Clock:       d.Clock.String(),
			Edges:       d.Receiver.Edges,
			Noise:       d.Receiver.Noise,
			Ones:        d.Receiver.Ones,
			Zeros:       d.Receiver.Zeros,
			Desyncs:     d.Receiver.Desyncs,
			MissedOnes:  d.Receiver.MissedOnes,
			MissedZeros: d.Receiver.MissedZeros,
			Dropped:     d.Receiver.Dropped,
			Packets:     d.Receiver.Packets,
			Checksum:    d.Parser.Checksum,
			Redundancy:  d.Parser.Redundancy,
			Readings:    d.Parser.Readings,
		},
		Config: ConfigJSON{
			Source:      snap.Config.Source,
			TickUs:      snap.Config.TickUs,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Modbus:      snap.Config.Modbus,
			RainStore:   snap.Config.RainStore,
		},
	}
	if snap.Reading != nil {
		r := report.NewReadingJSON(*snap.Reading)
		inner.Reading = &r
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
