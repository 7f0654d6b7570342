package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/wx-receiver/internal/capture"
	"github.com/sweeney/wx-receiver/internal/gpio"
	"github.com/sweeney/wx-receiver/internal/logic"
	"github.com/sweeney/wx-receiver/internal/mqtt"
	"github.com/sweeney/wx-receiver/internal/report"
	"github.com/sweeney/wx-receiver/internal/station"
	"github.com/sweeney/wx-receiver/internal/status"
	"github.com/sweeney/wx-receiver/internal/store"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// packetGap is the quiet time between transmitted packets, in ticks.
const packetGap = 62500

// transmit renders packets as one edge stream, each followed by packetGap.
func transmit(start uint32, packets ...logic.Packet) ([]logic.EdgeEvent, uint32) {
	pulses := logic.PulsesFor(logic.DefaultTiming())
	var edges []logic.EdgeEvent
	t := start
	for _, p := range packets {
		e, next := pulses.PulseTrain(p, t)
		edges = append(edges, e...)
		t = next + packetGap
	}
	return edges, t
}

func cycle(h logic.Header, temp float64, humidity uint8, rain uint16, wind float64, dir uint8) []logic.Packet {
	return []logic.Packet{h.Temperature(temp), h.Humidity(humidity), h.Rain(rain), h.Wind(wind, dir)}
}

// pipeline wires receiver, station and publisher the way the daemon does,
// but polls synchronously from the edge callback.
type pipeline struct {
	slot      logic.Slot
	rx        *logic.Receiver
	stn       *station.Station
	rec       *report.Recorder
	publisher *mqtt.FakePublisher
	tick      uint32
}

func newPipeline(t *testing.T, st store.Store) *pipeline {
	t.Helper()
	p := &pipeline{
		rec:       &report.Recorder{},
		publisher: mqtt.NewFakePublisher(),
	}
	p.rx = logic.NewReceiver(logic.DefaultTiming(), &p.slot)
	stn, err := station.New(&p.slot, p.rx, st, p.rec, startTime)
	if err != nil {
		t.Fatalf("station.New: %v", err)
	}
	p.stn = stn
	return p
}

// handle is the edge callback: it decodes e and, once a packet is waiting,
// polls the station at the edge's tick time and publishes any reading.
func (p *pipeline) handle(e logic.EdgeEvent) {
	p.rx.HandleEdge(e)
	if !p.slot.Full() {
		return
	}
	now := startTime.Add(time.Duration(e.Timestamp) * gpio.DefaultTick)
	if r := p.stn.Poll(now); r != nil {
		_ = p.publisher.Publish(*r)
	}
}

func (p *pipeline) run(t *testing.T, src gpio.EdgeSource) {
	t.Helper()
	if err := src.Run(context.Background(), p.handle); err != nil {
		t.Fatalf("source run: %v", err)
	}
}

func (p *pipeline) send(t *testing.T, packets ...logic.Packet) {
	t.Helper()
	edges, next := transmit(p.tick, packets...)
	p.tick = next
	p.run(t, gpio.NewFakeSource(edges))
}

// TestIntegrationFullFlow tests the complete flow from edges to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	p := newPipeline(t, store.NewMemoryWith(400))
	p.send(t, cycle(logic.DefaultHeader, 8.4, 91, 412, 25.2, 14)...)

	if len(p.publisher.Readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(p.publisher.Readings))
	}

	var payload mqtt.Payload
	if err := json.Unmarshal(p.publisher.Payloads[0], &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	w := payload.Weather
	if w.TemperatureC != 8.4 {
		t.Errorf("temperature_c: got %v, want 8.4", w.TemperatureC)
	}
	if w.Humidity != 91 {
		t.Errorf("humidity: got %d, want 91", w.Humidity)
	}
	if w.SensorID != "22" {
		t.Errorf("sensor_id: got %q, want \"22\"", w.SensorID)
	}
	if w.Wind.Direction != "NW" || w.Wind.DirectionDeg != 315 {
		t.Errorf("wind direction: got %q %v, want NW 315", w.Wind.Direction, w.Wind.DirectionDeg)
	}
	if w.Wind.SpeedKmh != 25.2 {
		t.Errorf("wind speed: got %v, want 25.2", w.Wind.SpeedKmh)
	}
	if w.Rain.Total != 412 || w.Rain.LastHour != 12 || w.Rain.LastDay != 12 {
		t.Errorf("rain: got %+v, want total 412, 12 in the last hour and day", w.Rain)
	}
	if w.DewpointC >= w.TemperatureC {
		t.Errorf("dewpoint %v should be below temperature %v at 91%%", w.DewpointC, w.TemperatureC)
	}
	if w.WindChillC >= w.TemperatureC {
		t.Errorf("wind chill %v should be below temperature %v at 25 km/h", w.WindChillC, w.TemperatureC)
	}

	// The station sink saw the same reading.
	if last, ok := p.rec.Last(); !ok || last.RainTotal != 412 {
		t.Errorf("recorder: got %+v (ok=%v)", last, ok)
	}
}

func TestIntegrationNoReadingUntilAllTypes(t *testing.T) {
	h := logic.DefaultHeader
	p := newPipeline(t, store.NewMemory())
	p.send(t, h.Temperature(10), h.Humidity(40), h.Temperature(11), h.Rain(0))

	if len(p.publisher.Readings) != 0 {
		t.Fatalf("expected no readings before a wind packet, got %d", len(p.publisher.Readings))
	}
	if n := p.rx.Stats().Packets; n != 4 {
		t.Errorf("Packets: got %d, want 4", n)
	}

	p.send(t, h.Wind(0, 0))
	if len(p.publisher.Readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(p.publisher.Readings))
	}
	if got := p.publisher.Readings[0].TemperatureC; got != 11 {
		t.Errorf("temperature: got %v, want the latest (11)", got)
	}
}

func TestIntegrationCorruptPacketRejected(t *testing.T) {
	h := logic.DefaultHeader
	p := newPipeline(t, store.NewMemoryWith(50))

	bad := h.Rain(900)
	bad[7] ^= 0x4
	p.send(t, h.Temperature(20), h.Humidity(50), bad, h.Wind(5, 0))

	if len(p.publisher.Readings) != 0 {
		t.Fatalf("expected no reading with a corrupt rain packet, got %d", len(p.publisher.Readings))
	}
	if got := p.stn.RainCounter(); got != 50 {
		t.Errorf("rain counter: got %d, want 50 (corrupt packet ignored)", got)
	}
	d := p.stn.Decoder()
	if d.Parser.Checksum+d.Parser.Redundancy != 1 {
		t.Errorf("rejections: got checksum=%d redundancy=%d, want 1 total", d.Parser.Checksum, d.Parser.Redundancy)
	}

	p.send(t, h.Rain(51))
	if len(p.publisher.Readings) != 1 {
		t.Fatalf("expected 1 reading after a good rain packet, got %d", len(p.publisher.Readings))
	}
	if got := p.publisher.Readings[0].Rain1h; got != 1 {
		t.Errorf("Rain1h: got %d, want 1", got)
	}
}

func TestIntegrationNoiseBetweenPackets(t *testing.T) {
	h := logic.DefaultHeader
	p := newPipeline(t, store.NewMemory())

	var edges []logic.EdgeEvent
	tick := uint32(0)
	for _, pkt := range cycle(h, -2.5, 77, 0, 3.6, 2) {
		// A burst of glitches ahead of every packet.
		for i := uint32(0); i < 6; i++ {
			edges = append(edges, logic.EdgeEvent{Timestamp: tick + i*37, Rising: i%2 == 0})
		}
		e, next := transmit(tick+1000, pkt)
		edges = append(edges, e...)
		tick = next
	}
	p.run(t, gpio.NewFakeSource(edges))

	if len(p.publisher.Readings) != 1 {
		t.Fatalf("expected 1 reading through noise, got %d", len(p.publisher.Readings))
	}
	r := p.publisher.Readings[0]
	if r.TemperatureC != -2.5 || r.Humidity != 77 || strings.TrimSpace(r.Compass()) != "NE" {
		t.Errorf("reading: got temp=%v humidity=%d dir=%q", r.TemperatureC, r.Humidity, r.Compass())
	}
	if p.rx.Stats().Noise == 0 {
		t.Error("expected noise to be counted")
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	p := newPipeline(t, store.NewMemory())
	p.publisher.PublishError = errors.New("connection lost")

	p.send(t, cycle(logic.DefaultHeader, 15, 60, 0, 0, 0)...)
	p.send(t, cycle(logic.DefaultHeader, 16, 61, 0, 0, 0)...)

	if len(p.publisher.Readings) != 0 {
		t.Errorf("expected no recorded publishes, got %d", len(p.publisher.Readings))
	}
	if n := len(p.rec.Readings()); n != 2 {
		t.Errorf("expected decoding to continue: got %d readings, want 2", n)
	}
}

func TestIntegrationCaptureStream(t *testing.T) {
	edges, _ := transmit(1_000_000, cycle(logic.DefaultHeader, 30.1, 20, 7, 10.8, 6)...)

	var buf bytes.Buffer
	buf.WriteString("# bench capture\n")
	if err := capture.WriteRecords(&buf, edges[:40]); err != nil {
		t.Fatal(err)
	}
	buf.WriteString("garbage line\n")
	if err := capture.WriteRecords(&buf, edges[40:]); err != nil {
		t.Fatal(err)
	}

	src := capture.NewSource("bench", io.NopCloser(&buf))
	p := newPipeline(t, store.NewMemoryWith(7))
	p.run(t, src)

	if src.Malformed() != 1 {
		t.Errorf("Malformed: got %d, want 1", src.Malformed())
	}
	if len(p.publisher.Readings) != 1 {
		t.Fatalf("expected 1 reading from capture, got %d", len(p.publisher.Readings))
	}
	r := p.publisher.Readings[0]
	if r.TemperatureC != 30.1 || strings.TrimSpace(r.Compass()) != "SE" {
		t.Errorf("reading: got temp=%v dir=%q, want 30.1 SE", r.TemperatureC, r.Compass())
	}
}

func TestIntegrationRainCounterSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rain.cbor")
	h := logic.DefaultHeader

	first := newPipeline(t, store.NewFile(path))
	first.send(t, cycle(h, 12, 70, 1500, 0, 0)...)
	if n := len(first.publisher.Readings); n != 1 {
		t.Fatalf("first run: got %d readings, want 1", n)
	}

	second := newPipeline(t, store.NewFile(path))
	if got := second.stn.RainCounter(); got != 1500 {
		t.Fatalf("restored counter: got %d, want 1500", got)
	}
	second.send(t, cycle(h, 12, 70, 1504, 0, 0)...)
	if n := len(second.publisher.Readings); n != 1 {
		t.Fatalf("second run: got %d readings, want 1", n)
	}
	r := second.publisher.Readings[0]
	if r.RainTotal != 1504 || r.Rain1h != 4 {
		t.Errorf("rain: got total=%d 1h=%d, want 1504/4", r.RainTotal, r.Rain1h)
	}
}

// TestIntegrationConcurrentSource runs the source in its own goroutine and
// polls from the test goroutine, as the daemon does.
func TestIntegrationConcurrentSource(t *testing.T) {
	p := newPipeline(t, store.NewMemory())

	var edges []logic.EdgeEvent
	tick := uint32(0)
	for i := 0; i < 3; i++ {
		e, next := transmit(tick, cycle(logic.DefaultHeader, float64(i), 50, uint16(i), 0, 0)...)
		edges = append(edges, e...)
		tick = next
	}
	src := gpio.NewFakeSource(edges)
	src.Hold = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, func(e logic.EdgeEvent) {
			// Wait for the main goroutine to drain the slot.
			for p.slot.Full() {
				time.Sleep(100 * time.Microsecond)
			}
			p.rx.HandleEdge(e)
		})
	}()

	var readings []logic.Reading
	deadline := time.Now().Add(5 * time.Second)
	for len(readings) < 3 && time.Now().Before(deadline) {
		if r := p.stn.Poll(startTime); r != nil {
			readings = append(readings, *r)
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("source: %v", err)
	}

	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i, r := range readings {
		if r.TemperatureC != float64(i) || r.RainTotal != uint16(i) {
			t.Errorf("reading %d: got temp=%v rain=%d", i, r.TemperatureC, r.RainTotal)
		}
	}
	if n := p.rx.Stats().Packets; n != 12 {
		t.Errorf("Packets: got %d, want 12", n)
	}
}

func TestIntegrationStatusEventPayload(t *testing.T) {
	p := newPipeline(t, store.NewMemory())
	p.send(t, cycle(logic.DefaultHeader, 18.5, 45, 0, 7.2, 8)...)

	tracker := status.NewTracker(startTime, status.Config{Source: "gpio gpiochip0:27", Broker: "tcp://test:1883"})
	tracker.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "10.0.0.9", Status: "connected"})
	tracker.SetReading(p.publisher.Readings[0])
	tracker.Update(p.stn.Decoder())

	event := mqtt.SystemEvent{
		Timestamp:  startTime,
		Event:      "STARTUP",
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", ""),
		Retained:   true,
	}
	if err := p.publisher.PublishSystem(event); err != nil {
		t.Fatal(err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(p.publisher.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("system payload is not valid JSON: %v", err)
	}
	s := sj.Status
	if s.Event != "STARTUP" || !s.Ready {
		t.Errorf("event/ready: got %q/%v, want STARTUP/true", s.Event, s.Ready)
	}
	if s.Reading == nil || s.Reading.Wind.Direction != "S" {
		t.Errorf("reading: got %+v", s.Reading)
	}
	if s.Network == nil || s.Network.IP != "10.0.0.9" {
		t.Errorf("network: got %+v", s.Network)
	}
	if s.Decoder.Packets != 4 || s.Decoder.Readings != 1 {
		t.Errorf("decoder: got packets=%d readings=%d, want 4/1", s.Decoder.Packets, s.Decoder.Readings)
	}
	if s.Config.Source != "gpio gpiochip0:27" {
		t.Errorf("config source: got %q", s.Config.Source)
	}
}
