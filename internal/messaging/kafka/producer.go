// internal/messaging/kafka/producer.go
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Producer publishes order events. A Producer without brokers drops events after logging them.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logrus.Entry
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	logger := logrus.WithField("component", "kafka-producer")
	if topic == "" {
		topic = TopicOrderEvents
	}

	if len(brokers) == 0 {
		logger.Warn("No Kafka brokers configured, order events will not be published")
		return &Producer{topic: topic, logger: logger}, nil
	}

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

	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

// NewProducerWithClient wraps an existing sync producer.
func NewProducerWithClient(producer sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logrus.WithField("component", "kafka-producer"),
	}
}

// PublishOrderPaid keys the message by order id so one order's events stay ordered.
func (p *Producer) PublishOrderPaid(event *OrderPaidEvent) error {
	if event.EventType == "" {
		event.EventType = EventTypeOrderPaid
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.publish(event.OrderID, event)
}

func (p *Producer) publish(key string, event interface{}) error {
	if p.producer == nil {
		p.logger.WithField("key", key).Debug("Kafka disabled, event dropped")
		return nil
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"topic": p.topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     p.topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
