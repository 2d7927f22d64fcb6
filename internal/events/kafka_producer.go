package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer streams lifecycle events to a topic. Without brokers every
// call is a no-op.
type KafkaProducer struct {
	writer MessageWriter
}

// NewKafkaProducer creates a producer, or a no-op one when brokers or topic
// are empty.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return &KafkaProducer{}
	}
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// NewKafkaProducerWithWriter wraps an existing writer.
func NewKafkaProducerWithWriter(w MessageWriter) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

// Enabled reports whether events are actually written.
func (p *KafkaProducer) Enabled() bool {
	return p != nil && p.writer != nil
}

// Produce writes event keyed by company so one company's events stay ordered.
func (p *KafkaProducer) Produce(ctx context.Context, event Event) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.CompanyID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Type)},
		},
		Time: event.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close closes the writer.
func (p *KafkaProducer) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
