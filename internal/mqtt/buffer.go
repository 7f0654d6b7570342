package mqtt

import "github.com/charmbracelet/log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while the broker is unreachable, oldest first.
// When full it evicts the oldest reading; system events only go once no
// reading is left to evict. Not safe for concurrent use.
type outbox struct {
	msgs    []bufferedMsg
	limit   int
	dropped int // evictions since the last drain
}

func newOutbox(limit int) *outbox {
	if limit < 1 {
		limit = 1
	}
	return &outbox{msgs: make([]bufferedMsg, 0, limit), limit: limit}
}

func (o *outbox) add(msg bufferedMsg) {
	if len(o.msgs) == o.limit {
		o.evict()
	}
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) evict() {
	victim := 0
	for i, m := range o.msgs {
		if m.topic == Topic {
			victim = i
			break
		}
	}
	if o.dropped == 0 {
		log.Warn("mqtt: outbox full, dropping messages", "limit", o.limit)
	}
	o.dropped++
	o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
}

// drain empties the outbox, returning its messages and how many were
// evicted since the previous drain.
func (o *outbox) drain() ([]bufferedMsg, int) {
	if len(o.msgs) == 0 && o.dropped == 0 {
		return nil, 0
	}
	msgs := make([]bufferedMsg, len(o.msgs))
	copy(msgs, o.msgs)
	dropped := o.dropped

	o.msgs = o.msgs[:0]
	o.dropped = 0
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
