package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/wx-receiver/internal/logic"
)

func testReading() logic.Reading {
	return logic.Reading{
		Timestamp:    time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		SensorID:     0x22,
		TemperatureC: 23.3,
		DewpointC:    12.04,
		Humidity:     50,
		WindChillC:   23.3,
		WindSpeedKmh: 0,
		Direction:    12,
		RainTotal:    140,
	}
}

func TestTopics(t *testing.T) {
	if Topic != "weather/wxrx/readings" {
		t.Errorf("Topic: got %q", Topic)
	}
	if TopicSystem != "weather/wxrx/system" {
		t.Errorf("TopicSystem: got %q", TopicSystem)
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(testReading())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	w := parsed.Weather
	if w.Timestamp != "2026-02-10T08:30:00Z" {
		t.Errorf("timestamp: got %s", w.Timestamp)
	}
	if w.TemperatureC != 23.3 {
		t.Errorf("temperature: got %v, want 23.3", w.TemperatureC)
	}
	if w.DewpointC != 12 {
		t.Errorf("dewpoint: got %v, want 12", w.DewpointC)
	}
	if w.Wind.Direction != "W" || w.Wind.DirectionDeg != 270 {
		t.Errorf("wind: got %+v", w.Wind)
	}
	if w.Rain.Total != 140 {
		t.Errorf("rain total: got %d, want 140", w.Rain.Total)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	r := testReading()
	r.Timestamp = time.Date(2026, 2, 10, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	payload, _ := FormatPayload(r)

	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Weather.Timestamp != "2026-02-10T08:30:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Weather.Timestamp)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != string(raw) {
		t.Errorf("got %s, want raw payload", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	if err := f.Publish(testReading()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Readings) != 1 || len(f.Payloads) != 1 {
		t.Errorf("readings: got %d/%d, want 1/1", len(f.Readings), len(f.Payloads))
	}
	if names := f.SystemEventNames(); len(names) != 1 || names[0] != "STARTUP" {
		t.Errorf("system events: got %v", names)
	}
	if !f.SystemEvents[0].Retained {
		t.Error("retained flag not recorded")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("offline")
	f.PublishSystemError = errors.New("offline")

	if err := f.Publish(testReading()); err == nil {
		t.Error("expected Publish error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.Readings) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(testReading())
	f.Close()
	f.Connected = true
	f.Reset()

	if len(f.Readings) != 0 || f.Closed || f.Connected {
		t.Errorf("reset incomplete: %+v", f)
	}
}

// fakeConn stands in for the paho client.
type fakeConn struct {
	mu        sync.Mutex
	open      bool
	fail      error
	published []bufferedMsg
	quiesce   uint
}

func (c *fakeConn) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Publish(topic string, qos byte, retained bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.published = append(c.published, bufferedMsg{topic: topic, qos: qos, retained: retained, payload: payload})
	return nil
}

func (c *fakeConn) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.quiesce = quiesce
}

func (c *fakeConn) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.published))
	for i, m := range c.published {
		out[i] = m.topic
	}
	return out
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	c := &fakeConn{open: true}
	p := newPublisher(c, 4)

	if err := p.Publish(testReading()); err != nil {
		t.Fatal(err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatal(err)
	}

	if len(c.published) != 2 {
		t.Fatalf("published: got %d, want 2", len(c.published))
	}
	if m := c.published[0]; m.topic != Topic || m.qos != 0 || m.retained {
		t.Errorf("reading message: got %+v", m)
	}
	if m := c.published[1]; m.topic != TopicSystem || m.qos != 1 || !m.retained {
		t.Errorf("system message: got topic=%s qos=%d retained=%v", m.topic, m.qos, m.retained)
	}
	if !p.IsConnected() {
		t.Error("expected IsConnected")
	}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(c, 4)

	for i := 0; i < 3; i++ {
		if err := p.Publish(testReading()); err != nil {
			t.Fatalf("buffered publish should not fail: %v", err)
		}
	}
	if p.Buffered() != 3 {
		t.Errorf("Buffered: got %d, want 3", p.Buffered())
	}
	if len(c.published) != 0 {
		t.Errorf("published while disconnected: %d", len(c.published))
	}

	// First connect drains without a RECONNECTED event.
	c.open = true
	p.onConnect()
	if got := c.topics(); len(got) != 3 {
		t.Fatalf("after connect: got %v", got)
	}
	if p.Buffered() != 0 {
		t.Errorf("Buffered after connect: got %d, want 0", p.Buffered())
	}

	// Second connect announces itself.
	c.open = false
	p.Publish(testReading())
	c.open = true
	p.onConnect()
	topics := c.topics()
	if len(topics) != 5 {
		t.Fatalf("after reconnect: got %v", topics)
	}
	if topics[3] != TopicSystem {
		t.Errorf("expected RECONNECTED on system topic before replay, got %v", topics)
	}
	if topics[4] != Topic {
		t.Errorf("expected replayed reading last, got %v", topics)
	}
}

func TestRealPublisherRebuffersOnError(t *testing.T) {
	c := &fakeConn{open: true, fail: errors.New("broker hiccup")}
	p := newPublisher(c, 4)

	if err := p.Publish(testReading()); err == nil {
		t.Fatal("expected error")
	}
	if p.Buffered() != 1 {
		t.Errorf("Buffered: got %d, want 1", p.Buffered())
	}

	c.fail = nil
	p.onConnect()
	if len(c.published) != 1 {
		t.Errorf("replayed: got %d, want 1", len(c.published))
	}
}

func TestRealPublisherClose(t *testing.T) {
	c := &fakeConn{open: true}
	p := newPublisher(c, 1)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if c.open || c.quiesce != 1000 {
		t.Errorf("disconnect: open=%v quiesce=%d", c.open, c.quiesce)
	}
}

func TestNewRealPublisherRequiresBroker(t *testing.T) {
	if _, err := NewRealPublisher(Options{}); err == nil {
		t.Error("expected error without broker")
	}
}

var (
	_ Publisher        = (*RealPublisher)(nil)
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
)

func TestRealPublisherReportsOverflowOnReconnect(t *testing.T) {
	c := &fakeConn{open: true}
	p := newPublisher(c, 2)
	p.onConnect()

	c.open = false
	for i := 0; i < 5; i++ {
		p.Publish(testReading())
	}
	c.open = true
	p.onConnect()

	if len(c.published) != 3 {
		t.Fatalf("published: got %d, want RECONNECTED plus 2 readings", len(c.published))
	}
	var sp SystemPayload
	if err := json.Unmarshal(c.published[0].payload, &sp); err != nil {
		t.Fatalf("reconnect payload: %v", err)
	}
	if sp.System.Event != "RECONNECTED" || sp.System.Reason != "BUFFER_OVERFLOW" {
		t.Errorf("reconnect event: got %s/%s, want RECONNECTED/BUFFER_OVERFLOW", sp.System.Event, sp.System.Reason)
	}
}
