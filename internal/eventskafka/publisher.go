// Package eventskafka publishes completed transactions to a Kafka topic.
package eventskafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/jameelag1995/banking-backend/internal/domain"
)

// Topic is the Kafka topic transaction events are written to.
const Topic = "transaction_completed"

// Publisher writes transaction events to Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a Publisher connected to the given brokers.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish serializes the event and writes it, keyed by account id so events
// of one account stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, event domain.TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AccountID),
		Value: data,
	})
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
