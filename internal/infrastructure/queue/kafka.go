package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
)

// Kafka header names
const (
	HeaderTaskType = "task-type"
	HeaderTaskID   = "task-id"
	HeaderAttempt  = "attempt"
)

// ---------------------------------------------------------------------------
// Message codec
// ---------------------------------------------------------------------------

// headerCarrier adapts kafka headers to the OpenTelemetry propagator
type headerCarrier struct {
	headers *[]kafka.Header
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

var _ propagation.TextMapCarrier = headerCarrier{}

// EncodeTask converts a task into a kafka message keyed by entity, so that
// tasks for one entity land on one partition and stay ordered
func EncodeTask(ctx context.Context, task *integration.SyncTask) (kafka.Message, error) {
	if task == nil {
		return kafka.Message{}, ErrNilTask
	}
	value, err := json.Marshal(task)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to serialize task: %w", err)
	}

	headers := []kafka.Header{
		{Key: HeaderTaskType, Value: []byte(task.Type)},
		{Key: HeaderTaskID, Value: []byte(task.ID)},
		{Key: HeaderAttempt, Value: []byte(fmt.Sprintf("%d", task.Attempt))},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &headers})

	return kafka.Message{
		Key:     []byte(task.Key()),
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}, nil
}

// DecodeTask parses a kafka message and returns a context carrying the
// producer's trace context
func DecodeTask(ctx context.Context, msg kafka.Message) (context.Context, *integration.SyncTask, error) {
	var task integration.SyncTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return ctx, nil, fmt.Errorf("failed to parse task: %w", err)
	}
	if task.Type == "" {
		return ctx, nil, errors.New("task type is missing")
	}
	headers := msg.Headers
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &headers})
	return ctx, &task, nil
}

// ---------------------------------------------------------------------------
// KafkaPublisher
// ---------------------------------------------------------------------------

// KafkaPublisher publishes sync tasks to a kafka topic
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

var _ integration.TaskPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher for the configured topic
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one kafka broker is required", ErrInvalidConfig)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka topic is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{writer: writer, topic: cfg.Topic, logger: logger}, nil
}

// Publish writes one task to the topic
func (p *KafkaPublisher) Publish(ctx context.Context, task *integration.SyncTask) error {
	msg, err := EncodeTask(ctx, task)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish task to %s: %w", p.topic, err)
	}
	p.logger.Debug("Sync task published",
		zap.String("topic", p.topic),
		zap.String("task_id", task.ID),
		zap.String("task_type", task.Type.String()),
		zap.String("key", string(msg.Key)),
	)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ---------------------------------------------------------------------------
// KafkaConsumer
// ---------------------------------------------------------------------------

// KafkaConsumer reads sync tasks from a consumer group and runs them one at
// a time. Failed tasks are re-published with a delay until the retry budget
// is spent; offsets are committed either way so a bad task never blocks
// the partition.
type KafkaConsumer struct {
	reader    *kafka.Reader
	publisher integration.TaskPublisher
	handler   integration.TaskHandler
	config    WorkerPoolConfig
	logger    *zap.Logger
	observer  Observer

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
	closed  bool
	mu      sync.Mutex
}

// NewKafkaConsumer creates a consumer group reader for the configured topic.
// publisher is used to re-publish failed tasks.
func NewKafkaConsumer(cfg config.KafkaConfig, poolCfg WorkerPoolConfig, handler integration.TaskHandler, publisher integration.TaskPublisher, logger *zap.Logger, opts ...ConsumerOption) (*KafkaConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one kafka broker is required", ErrInvalidConfig)
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: kafka topic and group id are required", ErrInvalidConfig)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: cfg.CommitInterval,
		StartOffset:    kafka.FirstOffset,
	})

	c := &KafkaConsumer{
		reader:    reader,
		publisher: publisher,
		handler:   handler,
		config:    poolCfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ConsumerOption configures a KafkaConsumer
type ConsumerOption func(*KafkaConsumer)

// WithConsumerObserver registers an observer for finished executions
func WithConsumerObserver(o Observer) ConsumerOption {
	return func(c *KafkaConsumer) {
		c.observer = o
	}
}

// Start begins consuming in the background
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if c.closed {
		return ErrQueueNotRunning
	}
	c.running = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.consumeLoop(ctx)

	cfg := c.reader.Config()
	c.logger.Info("Kafka task consumer started",
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
	)
	return nil
}

// Stop stops consuming and closes the reader
func (c *KafkaConsumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	wasRunning := c.running
	c.running = false
	c.closed = true
	c.mu.Unlock()

	if wasRunning {
		if c.cancel != nil {
			c.cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			c.logger.Warn("Kafka task consumer stop timed out")
			return ctx.Err()
		}
	}

	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	c.logger.Info("Kafka task consumer stopped")
	return nil
}

// Lag returns the current consumer lag
func (c *KafkaConsumer) Lag() int64 {
	return c.reader.Stats().Lag
}

func (c *KafkaConsumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to fetch kafka message", zap.Error(err))
			continue
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("Failed to commit kafka message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	taskCtx, task, err := DecodeTask(ctx, msg)
	if err != nil {
		c.logger.Error("Dropping undecodable kafka message",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	if wait := time.Until(task.NotBefore); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	record := TaskRecord{
		TaskID:    task.ID,
		Type:      task.Type,
		LocalID:   task.LocalID,
		Trigger:   task.Trigger,
		Attempt:   task.Attempt,
		StartedAt: time.Now(),
	}

	execCtx, cancel := context.WithTimeout(taskCtx, c.config.TaskTimeout)
	err = c.execute(execCtx, task)
	cancel()
	record.CompletedAt = time.Now()

	switch {
	case err == nil:
		record.Status = TaskStatusSuccess
		c.logger.Info("Sync task completed",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type.String()),
			zap.String("local_id", task.LocalID),
			zap.Duration("duration", record.Duration()),
		)
	case task.Attempt < c.config.RetryAttempts && c.publisher != nil:
		record.Status = TaskStatusRetrying
		record.Error = err.Error()
		retry := *task
		retry.Attempt++
		retry.NotBefore = time.Now().Add(c.config.backoff(retry.Attempt))
		if pubErr := c.publisher.Publish(taskCtx, &retry); pubErr != nil {
			record.Status = TaskStatusFailed
			c.logger.Error("Failed to re-publish sync task", zap.String("task_id", task.ID), zap.Error(pubErr))
		}
	default:
		record.Status = TaskStatusFailed
		record.Error = err.Error()
		c.logger.Error("Sync task failed",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type.String()),
			zap.Int("attempt", task.Attempt),
			zap.Error(err),
		)
	}

	if c.observer != nil {
		c.observer.ObserveTask(taskCtx, record)
	}
}

func (c *KafkaConsumer) execute(ctx context.Context, task *integration.SyncTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task handler: %v", r)
		}
	}()
	return c.handler.HandleTask(ctx, task)
}
