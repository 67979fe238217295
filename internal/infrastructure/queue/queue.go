package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
)

// Queue is a task publisher with a lifecycle
type Queue interface {
	integration.TaskPublisher
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Driver() string
}

// KafkaQueue pairs the kafka publisher with its consumer
type KafkaQueue struct {
	*KafkaPublisher
	consumer *KafkaConsumer
}

// Start starts the consumer
func (q *KafkaQueue) Start(ctx context.Context) error {
	return q.consumer.Start(ctx)
}

// Stop stops the consumer and closes the writer
func (q *KafkaQueue) Stop(ctx context.Context) error {
	return errors.Join(q.consumer.Stop(ctx), q.KafkaPublisher.Close())
}

// Driver returns the queue driver name
func (q *KafkaQueue) Driver() string {
	return "kafka"
}

var (
	_ Queue = (*WorkerPool)(nil)
	_ Queue = (*KafkaQueue)(nil)
)

// New builds the queue selected by cfg.Queue.Driver. The handler runs every
// consumed task.
func New(cfg *config.Config, handler integration.TaskHandler, logger *zap.Logger, observer Observer) (Queue, error) {
	poolCfg := WorkerPoolConfigFrom(cfg.Queue)
	poolCfg.MaxRetryDelay = cfg.Storefront.MaxRetryDelay

	switch strings.ToLower(cfg.Queue.Driver) {
	case "", "memory":
		var opts []PoolOption
		if observer != nil {
			opts = append(opts, WithObserver(observer))
		}
		return NewWorkerPool(poolCfg, handler, logger, opts...)
	case "kafka":
		pub, err := NewKafkaPublisher(cfg.Kafka, logger)
		if err != nil {
			return nil, err
		}
		var opts []ConsumerOption
		if observer != nil {
			opts = append(opts, WithConsumerObserver(observer))
		}
		consumer, err := NewKafkaConsumer(cfg.Kafka, poolCfg, handler, pub, logger, opts...)
		if err != nil {
			_ = pub.Close()
			return nil, err
		}
		return &KafkaQueue{KafkaPublisher: pub, consumer: consumer}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Queue.Driver)
	}
}
