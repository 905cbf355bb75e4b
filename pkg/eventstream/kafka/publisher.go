// Package kafka publishes memory events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/strata/pkg/eventstream"
)

const defaultWriteTimeout = 5 * time.Second

// ErrNoBrokers is returned when no broker address is configured.
var ErrNoBrokers = errors.New("kafka publisher requires at least one broker")

// ErrNoTopic is returned when no topic is configured.
var ErrNoTopic = errors.New("kafka publisher requires a topic")

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config is the configuration for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds each publish (defaults to 5s).
	WriteTimeout time.Duration
}

// Publisher writes events as JSON, keyed by Event.Key so events for one
// conversation land on one partition in order.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if c.Topic == "" {
		return nil, ErrNoTopic
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		WriteTimeout: c.WriteTimeout,
	}

	return newPublisher(w, c.WriteTimeout), nil
}

func newPublisher(w messageWriter, timeout time.Duration) *Publisher {
	return &Publisher{writer: w, timeout: timeout}
}

// Publish marshals and writes one event.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("writing event %s: %w", event.EventID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
