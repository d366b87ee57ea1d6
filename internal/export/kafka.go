package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/iwvelando/carshare-tariff/pkg/optimization"
	"go.uber.org/zap"
)

// KafkaSink publishes summaries as JSON, keyed by run id.
type KafkaSink struct {
	logger   *zap.Logger
	producer sarama.SyncProducer
	topic    string
}

// NewProducerConfig returns the producer settings used for result topics.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Net.DialTimeout = 30 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// NewKafkaSink connects a synchronous producer to brokers.
func NewKafkaSink(logger *zap.Logger, brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaSinkWithProducer(logger, producer, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(logger *zap.Logger, producer sarama.SyncProducer, topic string) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{logger: logger, producer: producer, topic: topic}
}

// Publish implements Sink.
func (k *KafkaSink) Publish(_ context.Context, summary optimization.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("unable to encode summary: %w", err)
	}
	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(summary.RunID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish summary to %s: %w", k.topic, err)
	}
	k.logger.Debug("published optimization summary",
		zap.String("op", "export.KafkaSink.Publish"),
		zap.String("topic", k.topic),
		zap.String("runId", summary.RunID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close implements Sink.
func (k *KafkaSink) Close() error {
	if k.producer == nil {
		return nil
	}
	return k.producer.Close()
}
