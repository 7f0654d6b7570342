package mqtt

import "testing"

func addReadings(o *outbox, from, to int) {
	for i := from; i < to; i++ {
		o.add(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(4)
	got, dropped := o.drain()
	if got != nil || dropped != 0 {
		t.Errorf("empty drain: got %d items, %d dropped", len(got), dropped)
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(10)
	addReadings(o, 0, 6)

	got, _ := o.drain()
	if len(got) != 6 {
		t.Fatalf("items: got %d, want 6", len(got))
	}
	for i, msg := range got {
		if msg.payload[0] != byte(i) {
			t.Errorf("item %d: got payload %d", i, msg.payload[0])
		}
	}
	if o.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", o.len())
	}
}

func TestOutboxDropsOldestReading(t *testing.T) {
	o := newOutbox(4)
	addReadings(o, 0, 7)

	got, dropped := o.drain()
	if dropped != 3 {
		t.Errorf("dropped: got %d, want 3", dropped)
	}
	if len(got) != 4 {
		t.Fatalf("items: got %d, want 4", len(got))
	}
	for i, msg := range got {
		if want := byte(i + 3); msg.payload[0] != want {
			t.Errorf("item %d: got payload %d, want %d", i, msg.payload[0], want)
		}
	}
	if _, dropped := o.drain(); dropped != 0 {
		t.Errorf("dropped not reset by drain: %d", dropped)
	}
}

func TestOutboxKeepsSystemEvents(t *testing.T) {
	o := newOutbox(3)
	o.add(bufferedMsg{topic: TopicSystem, payload: []byte("startup"), qos: 1})
	addReadings(o, 0, 4)

	got, dropped := o.drain()
	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}
	if len(got) != 3 {
		t.Fatalf("items: got %d, want 3", len(got))
	}
	if got[0].topic != TopicSystem {
		t.Errorf("system event evicted: got %+v", got[0])
	}
	if got[1].payload[0] != 2 || got[2].payload[0] != 3 {
		t.Errorf("readings: got %d,%d, want 2,3", got[1].payload[0], got[2].payload[0])
	}
}

func TestOutboxEvictsSystemEventsLast(t *testing.T) {
	o := newOutbox(2)
	for _, ev := range []string{"a", "b", "c"} {
		o.add(bufferedMsg{topic: TopicSystem, payload: []byte(ev)})
	}
	got, dropped := o.drain()
	if dropped != 1 || len(got) != 2 {
		t.Fatalf("got %d items, %d dropped, want 2/1", len(got), dropped)
	}
	if string(got[0].payload) != "b" || string(got[1].payload) != "c" {
		t.Errorf("got %s,%s, want b,c", got[0].payload, got[1].payload)
	}
}

func TestOutboxReusedAfterDrain(t *testing.T) {
	o := newOutbox(3)
	addReadings(o, 0, 2)
	o.drain()
	addReadings(o, 10, 13)

	got, _ := o.drain()
	if len(got) != 3 {
		t.Fatalf("items: got %d, want 3", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("item %d: got %d, want %d", i, msg.payload[0], want)
		}
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2)
	o.add(bufferedMsg{topic: TopicSystem, payload: []byte(`{"x":1}`), qos: 1, retained: true})

	got, _ := o.drain()
	if len(got) != 1 {
		t.Fatalf("items: got %d, want 1", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"x":1}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestOutboxMinimumCapacity(t *testing.T) {
	o := newOutbox(0)
	addReadings(o, 0, 2)
	got, _ := o.drain()
	if len(got) != 1 || got[0].payload[0] != 1 {
		t.Errorf("got %+v, want only the newest message", got)
	}
}
