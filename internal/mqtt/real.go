package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"github.com/sweeney/button-blinker/internal/logic"
)

var (
	errConnectTimeout = errors.New("connection timeout")
	errPublishTimeout = errors.New("publish timeout")
)

// Options configures a RealPublisher. Zero fields take defaults.
type Options struct {
	Broker   string
	ClientID string

	ConnectTimeout time.Duration // per attempt
	ConnectRetries uint64
	PublishTimeout time.Duration

	// BufferSize is the number of messages kept while the broker is unreachable.
	BufferSize int

	// The breaker opens after BreakerFailures consecutive publish failures
	// and stays open for BreakerOpen.
	BreakerFailures uint32
	BreakerOpen     time.Duration

	// OnConnectionChange, if set, is called from paho's goroutines.
	OnConnectionChange func(connected bool)
}

func (o Options) withDefaults() Options {
	if o.ClientID == "" {
		o.ClientID = "button-blinker"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.ConnectRetries == 0 {
		o.ConnectRetries = 4
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 5 * time.Second
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 100
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerOpen <= 0 {
		o.BreakerOpen = 30 * time.Second
	}
	return o
}

// RealPublisher publishes to an actual MQTT broker.
//
// Messages that cannot be delivered (disconnected, timeout, open breaker)
// are kept in a bounded backlog and replayed after the next successful
// publish or reconnect.
type RealPublisher struct {
	client  paho.Client
	opts    Options
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time

	connected     atomic.Bool
	everConnected atomic.Bool

	mu  sync.Mutex // guards buf
	buf *backlog

	flushMu sync.Mutex
}

// NewRealPublisher creates a publisher connected to the given broker.
// The initial connect is retried with exponential backoff.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	p := newPublisher(nil, opts)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(p.opts.Broker).
		SetClientID(p.opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)
	p.client = paho.NewClient(co)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Duration(p.opts.ConnectRetries+1) * p.opts.ConnectTimeout
	err = backoff.Retry(func() error {
		token := p.client.Connect()
		if !token.WaitTimeout(p.opts.ConnectTimeout) {
			return errConnectTimeout
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: connect to %s failed: %v", p.opts.Broker, err)
			return err
		}
		return nil
	}, backoff.WithMaxRetries(bo, p.opts.ConnectRetries))
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(client paho.Client, opts Options) *RealPublisher {
	opts = opts.withDefaults()
	p := &RealPublisher{
		client: client,
		opts:   opts,
		now:    time.Now,
		buf:    newBacklog(opts.BufferSize),
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mqtt",
		Timeout: opts.BreakerOpen,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("mqtt: breaker %s -> %s", from, to)
		},
	})
	return p
}

func (p *RealPublisher) onConnect(paho.Client) {
	p.connected.Store(true)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(true)
	}

	if !p.everConnected.Swap(true) {
		log.Printf("mqtt: connected to %s", p.opts.Broker)
		return
	}

	log.Printf("mqtt: reconnected to %s", p.opts.Broker)
	p.flush()

	ev := SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}
	if err := p.PublishSystem(ev); err != nil {
		log.Printf("mqtt: %v", err)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.connected.Store(false)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(false)
	}
	log.Printf("mqtt: connection lost: %v", err)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.connected.Load()
}

// Buffered returns the number of messages waiting for replay.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Publish sends a dispatcher report, QoS 0, not retained.
func (p *RealPublisher) Publish(report logic.Report, at time.Time) error {
	payload, err := FormatPayload(report, at)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event, QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.connected.Load() {
		p.hold(msg)
		return nil
	}

	if err := p.try(msg); err != nil {
		p.hold(msg)
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}

	if p.Buffered() > 0 {
		p.flush()
	}
	return nil
}

// try publishes through the breaker. An open breaker fails without touching
// the network.
func (p *RealPublisher) try(msg bufferedMsg) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(p.opts.PublishTimeout) {
			return nil, errPublishTimeout
		}
		return nil, token.Error()
	})
	return err
}

func (p *RealPublisher) hold(msg bufferedMsg) {
	p.mu.Lock()
	p.buf.push(msg)
	p.mu.Unlock()
}

// flush replays the backlog in order, stopping at the first failure.
func (p *RealPublisher) flush() {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	msgs := p.buf.drain()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}

	for i, msg := range msgs {
		if err := p.try(msg); err != nil {
			log.Printf("mqtt: replay stopped after %d of %d: %v", i, len(msgs), err)
			p.mu.Lock()
			for _, m := range msgs[i:] {
				p.buf.push(m)
			}
			p.mu.Unlock()
			return
		}
	}
	log.Printf("mqtt: replayed %d buffered messages", len(msgs))
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
