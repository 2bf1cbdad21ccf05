// Package events moves LookupEvents from the API to the aggregator through
// Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/gometeo/weatherlookup/internal/model"
)

// enqueueTimeout bounds how long a request may wait for the producer.
const enqueueTimeout = 50 * time.Millisecond

// Publisher records that a lookup happened. Implementations must not block
// the caller for long and never fail the request.
type Publisher interface {
	Publish(ctx context.Context, ev model.LookupEvent)
}

// NopPublisher is used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.LookupEvent) {}

// KafkaPublisher may outlive the HTTP server on a timed-out shutdown:
// Publish after Close is a no-op.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *slog.Logger
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Flush.Frequency = 500 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return newKafkaPublisher(producer, topic, logger), nil
}

func newKafkaPublisher(producer sarama.AsyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range producer.Errors() {
			p.logger.Warn("lookup event not delivered", "topic", p.topic, "error", err.Err)
		}
	}()

	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev model.LookupEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("cannot encode lookup event", "kind", ev.Kind, "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(string(ev.Kind) + ":" + ev.Key()),
		Value: sarama.ByteEncoder(value),
	}

	timer := time.NewTimer(enqueueTimeout)
	defer timer.Stop()

	select {
	case p.producer.Input() <- msg:
	case <-timer.C:
		p.logger.Warn("lookup event dropped, producer busy", "kind", ev.Kind)
	case <-ctx.Done():
	}
}

// Close flushes buffered events and stops the producer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.producer.Close()
	p.wg.Wait()
	return err
}
