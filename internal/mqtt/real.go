package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// DefaultBufferSize is how many messages are held while the broker is away.
const DefaultBufferSize = 100

var errPublishTimeout = errors.New("publish timeout")

// conn is the part of the paho client the publisher needs.
type conn interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect(quiesce uint)
}

type pahoConn struct {
	client  paho.Client
	timeout time.Duration
}

func (c pahoConn) IsConnectionOpen() bool {
	return c.client.IsConnectionOpen()
}

func (c pahoConn) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(c.timeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (c pahoConn) Disconnect(quiesce uint) {
	c.client.Disconnect(quiesce)
}

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and sent, oldest first, on reconnect.
type RealPublisher struct {
	mu        sync.Mutex
	conn      conn
	out       *outbox
	connected bool // set after the first successful connect
	now       func() time.Time
}

func newPublisher(c conn, bufferSize int) *RealPublisher {
	return &RealPublisher{
		conn: c,
		out:  newOutbox(bufferSize),
		now:  time.Now,
	}
}

// NewRealPublisher starts connecting to the broker in the background and
// returns immediately. The broker keeps a retained SHUTDOWN will for
// unexpected disconnects.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: broker address required")
	}
	if opts.ClientID == "" {
		opts.ClientID = "wx-receiver"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	p := newPublisher(nil, opts.BufferSize)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	o := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("mqtt: connection lost", "err", err)
		})

	client := paho.NewClient(o)
	p.conn = pahoConn{client: client, timeout: 5 * time.Second}
	client.Connect()
	return p, nil
}

// onConnect flushes messages buffered while disconnected.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	pending, dropped := p.out.drain()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if reconnect {
		log.Info("mqtt: reconnected", "buffered", len(pending), "dropped", dropped)
		event := SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}
		if dropped > 0 {
			event.Reason = "BUFFER_OVERFLOW"
		}
		if err := p.PublishSystem(event); err != nil {
			log.Warn("mqtt: reconnect event failed", "err", err)
		}
	} else {
		log.Info("mqtt: connected", "buffered", len(pending), "dropped", dropped)
	}

	for i, msg := range pending {
		if err := p.conn.Publish(msg.topic, msg.qos, msg.retained, msg.payload); err != nil {
			log.Warn("mqtt: replay failed, rebuffering", "err", err)
			p.mu.Lock()
			for _, m := range pending[i:] {
				p.out.add(m)
			}
			p.mu.Unlock()
			return
		}
	}
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.conn.IsConnectionOpen() {
		p.out.add(msg)
		return nil
	}
	if err := p.conn.Publish(msg.topic, msg.qos, msg.retained, msg.payload); err != nil {
		p.out.add(msg)
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// Publish sends a reading. QoS 0, not retained.
func (p *RealPublisher) Publish(r logic.Reading) error {
	payload, err := FormatPayload(r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event. QoS 1 so shutdown events
// are delivered.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.conn.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.conn.Disconnect(1000) // 1 second quiesce
	return nil
}
