// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/backoffice/internal/domain/order"
)

// TypeHeader names the message header carrying the event type.
const TypeHeader = "event-type"

// Writer is the subset of *kafka.Writer used by Publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Publisher implements order.Publisher. Messages are keyed by order id so
// events of one order stay in one partition, in order.
type Publisher struct {
	w Writer
}

var _ order.Publisher = (*Publisher)(nil)

// NewWriter creates a synchronous Kafka writer for cfg.
func NewWriter(cfg Config) *kafka.Writer {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
}

// NewPublisher wraps w.
func NewPublisher(w Writer) *Publisher {
	return &Publisher{w: w}
}

// Publish writes e as a JSON message.
func (p *Publisher) Publish(ctx context.Context, e order.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(e.OrderID),
		Value:   payload,
		Headers: []kafka.Header{{Key: TypeHeader, Value: []byte(e.Type)}},
		Time:    e.At,
	})
	if err != nil {
		return errors.Wrapf(err, "write %s", e.Type)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
