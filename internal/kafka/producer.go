package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/model"
)

// Producer publica los eventos de órdenes en un topic; la key es el id de la orden
// para mantener el orden por partición.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Entry
}

func NewProducer(brokers []string, topic string, logger *log.Entry) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerFromSync(producer, topic, logger), nil
}

// NewProducerFromSync envuelve un SyncProducer ya creado (mocks en tests).
func NewProducerFromSync(producer sarama.SyncProducer, topic string, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger.WithField("component", "kafka-producer"),
	}
}

func (p *Producer) Notify(ctx context.Context, ev model.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OrderID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", ev.Type, err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     p.topic,
		"order_id":  ev.OrderID,
		"event":     ev.Type,
		"partition": partition,
		"offset":    offset,
	}).Debug("order event sent to kafka")
	return nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
