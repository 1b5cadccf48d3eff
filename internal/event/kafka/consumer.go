// Package kafka delivers domain events from a Kafka topic to the dispatcher.
package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/event"
	"github.com/kailas-cloud/staysearch/internal/logger"
)

// Config holds Kafka consumer configuration.
type Config struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// Dispatcher routes a decoded envelope.
type Dispatcher interface {
	DispatchEnvelope(ctx context.Context, env *event.Envelope) error
}

// reader is the subset of *kafka.Reader the consumer uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads event envelopes and commits each message after dispatch.
// Malformed and unknown events are logged and committed so they never block
// the partition.
type Consumer struct {
	reader     reader
	dispatcher Dispatcher
	logger     *zap.Logger
	topic      string
	closeOnce  sync.Once
}

// NewConsumer creates a consumer group reader for the configured topic.
func NewConsumer(cfg Config, d Dispatcher, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg.Topic, d, logger)
}

func newConsumer(r reader, topic string, d Dispatcher, logger *zap.Logger) *Consumer {
	return &Consumer{reader: r, dispatcher: d, logger: logger, topic: topic}
}

// Run consumes until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("event consumer started", zap.String("topic", c.topic))
	defer func() {
		if err := c.Close(); err != nil {
			c.logger.Warn("close kafka reader", zap.Error(err))
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("event consumer stopping", zap.String("topic", c.topic))
				return nil
			}
			c.logger.Error("fetch message", zap.Error(err))
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	ctx = logger.With(ctx, c.logger,
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	env, err := event.UnmarshalEnvelope(msg.Value)
	if err == nil {
		ctx = logger.With(ctx, nil, zap.String("event_id", env.EventID))
		err = c.dispatcher.DispatchEnvelope(ctx, env)
	}
	if err != nil {
		logger.FromContext(ctx, c.logger).Error("skipping event", zap.Error(err))
	}
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
