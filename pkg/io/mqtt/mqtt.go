// Package mqtt connects the scoring pipeline to an MQTT message bus. A
// sensor gateway publishes waveform chunks as JSON payloads of the form
// {"data": [ ... ]}; Source subscribes to them and Publisher emits them,
// which is also how recorded files are replayed.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	vibio "github.com/vibewatch/vibewatch/pkg/io"
)

// payload mirrors the wire format of one waveform chunk.
type payload struct {
	Data []float64 `json:"data"`
}

type options struct {
	clientID       string
	qos            byte
	buffer         int
	connectTimeout time.Duration
}

// Option configures a Source or Publisher connection.
type Option func(*options)

// WithClientID sets the MQTT client identifier.
func WithClientID(id string) Option {
	return func(o *options) {
		o.clientID = id
	}
}

// WithQOS sets the MQTT quality-of-service level.
func WithQOS(qos byte) Option {
	return func(o *options) {
		o.qos = qos
	}
}

// WithBuffer sets the subscriber channel capacity. When the consumer falls
// behind, chunks beyond the buffer are dropped; queueing further is an
// upstream backpressure decision.
func WithBuffer(n int) Option {
	return func(o *options) {
		o.buffer = n
	}
}

// WithConnectTimeout bounds the initial broker connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}

func connect(broker string, opts []Option) (paho.Client, *options, error) {
	o := &options{
		clientID:       "vibewatch",
		qos:            0,
		buffer:         64,
		connectTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	copts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(o.clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(10 * time.Second).
		SetConnectTimeout(o.connectTimeout)

	client := paho.NewClient(copts)
	tok := client.Connect()
	if !tok.WaitTimeout(o.connectTimeout) {
		return nil, nil, fmt.Errorf("mqtt: connect to %s timed out", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt: connect to %s: %w", broker, err)
	}
	return client, o, nil
}

// Source subscribes to a topic of waveform chunks.
type Source struct {
	client paho.Client
	topic  string
	opts   *options
}

// NewSource connects to the broker and prepares a subscription on topic.
func NewSource(broker, topic string, opts ...Option) (*Source, error) {
	client, o, err := connect(broker, opts)
	if err != nil {
		return nil, err
	}
	return &Source{client: client, topic: topic, opts: o}, nil
}

// Chunks subscribes and returns a channel of decoded chunks. Undecodable
// and empty payloads are dropped. The channel closes when ctx is
// cancelled.
func (s *Source) Chunks(ctx context.Context) (<-chan vibio.Chunk, error) {
	out := make(chan vibio.Chunk, s.opts.buffer)

	handler := func(_ paho.Client, msg paho.Message) {
		var p payload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil || len(p.Data) == 0 {
			return
		}
		select {
		case out <- vibio.Chunk{Samples: p.Data}:
		default:
			// Consumer is behind and the buffer is full; drop.
		}
	}

	tok := s.client.Subscribe(s.topic, s.opts.qos, handler)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: subscribe %s: %w", s.topic, err)
	}

	go func() {
		<-ctx.Done()
		s.client.Unsubscribe(s.topic).Wait()
		close(out)
	}()

	return out, nil
}

// Close disconnects from the broker.
func (s *Source) Close() error {
	s.client.Disconnect(250)
	return nil
}

// Publisher emits waveform chunks to a topic.
type Publisher struct {
	client paho.Client
	topic  string
	opts   *options
}

// NewPublisher connects to the broker for publishing on topic.
func NewPublisher(broker, topic string, opts ...Option) (*Publisher, error) {
	client, o, err := connect(broker, opts)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, opts: o}, nil
}

// Publish sends one chunk.
func (p *Publisher) Publish(chunk vibio.Chunk) error {
	data, err := json.Marshal(payload{Data: chunk.Samples})
	if err != nil {
		return err
	}
	tok := p.client.Publish(p.topic, p.opts.qos, false, data)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
