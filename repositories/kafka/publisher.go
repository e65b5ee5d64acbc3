package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spatools/api/models/indexes"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits every called genotype as a JSON message keyed by
// sample and locus.
type Publisher struct {
	writer messageWriter
	topic  string
}

type PublisherOption func(*kafka.Writer)

func WithBatchTimeout(d time.Duration) PublisherOption {
	return func(w *kafka.Writer) { w.BatchTimeout = d }
}

func WithAsync(async bool) PublisherOption {
	return func(w *kafka.Writer) { w.Async = async }
}

func NewPublisher(brokers []string, topic string, opts ...PublisherOption) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: time.Second,
		WriteTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(writer)
	}
	return &Publisher{writer: writer, topic: topic}, nil
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) WriteGenotypes(ctx context.Context, genotypes []indexes.Genotype) error {
	if len(genotypes) == 0 {
		return nil
	}
	msgs, err := genotypeMessages(genotypes)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func genotypeMessages(genotypes []indexes.Genotype) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(genotypes))
	for _, g := range genotypes {
		value, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("marshal genotype: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(g.SampleCode + "/" + g.LocusCode),
			Value: value,
			Time:  g.CreatedTime,
		})
	}
	return msgs, nil
}
