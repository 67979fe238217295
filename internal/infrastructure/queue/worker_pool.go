package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// Task records
// ---------------------------------------------------------------------------

// TaskStatus represents the outcome of one task execution
type TaskStatus string

const (
	TaskStatusRunning  TaskStatus = "RUNNING"
	TaskStatusSuccess  TaskStatus = "SUCCESS"
	TaskStatusFailed   TaskStatus = "FAILED"
	TaskStatusRetrying TaskStatus = "RETRYING"
)

// TaskRecord is a finished execution kept in the pool history
type TaskRecord struct {
	TaskID      string
	Type        integration.TaskType
	LocalID     string
	Trigger     integration.TriggerType
	Attempt     int
	Status      TaskStatus
	Error       string
	WorkerID    int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns how long the execution took
func (r TaskRecord) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Observer is notified after every task execution
type Observer interface {
	ObserveTask(ctx context.Context, record TaskRecord)
}

// ---------------------------------------------------------------------------
// WorkerPoolConfig
// ---------------------------------------------------------------------------

// WorkerPoolConfig holds configuration for the in-process queue
type WorkerPoolConfig struct {
	// Workers is the number of concurrent workers
	Workers int
	// BufferSize is the capacity of the task channel
	BufferSize int
	// TaskTimeout bounds a single execution
	TaskTimeout time.Duration
	// RetryAttempts is how often a task that returned an error is re-run
	RetryAttempts int
	// RetryDelay is the base delay, doubled on each attempt
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff
	MaxRetryDelay time.Duration
	// HistorySize is how many finished executions are remembered
	HistorySize int
}

// DefaultWorkerPoolConfig returns default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:       3,
		BufferSize:    256,
		TaskTimeout:   10 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    30 * time.Second,
		MaxRetryDelay: 30 * time.Minute,
		HistorySize:   100,
	}
}

// WorkerPoolConfigFrom converts the queue section of the application config
func WorkerPoolConfigFrom(cfg config.QueueConfig) WorkerPoolConfig {
	c := DefaultWorkerPoolConfig()
	if cfg.Workers > 0 {
		c.Workers = cfg.Workers
	}
	if cfg.BufferSize > 0 {
		c.BufferSize = cfg.BufferSize
	}
	if cfg.TaskTimeout > 0 {
		c.TaskTimeout = cfg.TaskTimeout
	}
	if cfg.RetryAttempts >= 0 {
		c.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		c.RetryDelay = cfg.RetryDelay
	}
	if cfg.HistorySize > 0 {
		c.HistorySize = cfg.HistorySize
	}
	return c
}

// Validate validates the configuration
func (c *WorkerPoolConfig) Validate() error {
	if c.Workers <= 0 || c.BufferSize <= 0 {
		return ErrInvalidConfig
	}
	if c.TaskTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxRetryDelay
func (c *WorkerPoolConfig) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.MaxRetryDelay > 0 && delay >= c.MaxRetryDelay {
			return c.MaxRetryDelay
		}
	}
	if c.MaxRetryDelay > 0 && delay > c.MaxRetryDelay {
		delay = c.MaxRetryDelay
	}
	return delay
}

// ---------------------------------------------------------------------------
// WorkerPool
// ---------------------------------------------------------------------------

// WorkerPool runs sync tasks on a fixed number of goroutines. It implements
// integration.TaskPublisher.
type WorkerPool struct {
	config   WorkerPoolConfig
	handler  integration.TaskHandler
	logger   *zap.Logger
	observer Observer

	tasks     chan *integration.SyncTask
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// pending delayed tasks waiting for their NotBefore time
	timers map[string]*time.Timer

	historyMu sync.RWMutex
	history   []TaskRecord
}

var _ integration.TaskPublisher = (*WorkerPool)(nil)

// PoolOption configures a WorkerPool
type PoolOption func(*WorkerPool)

// WithObserver registers an observer for finished executions
func WithObserver(o Observer) PoolOption {
	return func(p *WorkerPool) {
		p.observer = o
	}
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(cfg WorkerPoolConfig, handler integration.TaskHandler, logger *zap.Logger, opts ...PoolOption) (*WorkerPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &WorkerPool{
		config:  cfg,
		handler: handler,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		history: make([]TaskRecord, 0, cfg.HistorySize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Driver returns the queue driver name
func (p *WorkerPool) Driver() string {
	return "memory"
}

// Start starts the workers
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	p.isRunning = true
	p.tasks = make(chan *integration.SyncTask, p.config.BufferSize)

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i, p.tasks)
	}

	p.logger.Info("Sync worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("buffer_size", p.config.BufferSize),
		zap.Duration("task_timeout", p.config.TaskTimeout),
	)
	return nil
}

// Stop gracefully stops the pool. Tasks still in the buffer are dropped.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
	if p.cancel != nil {
		p.cancel()
	}
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Sync worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Sync worker pool stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the pool accepts tasks
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

// Publish enqueues a task. Tasks with a future NotBefore are held on a
// timer and enqueued when due.
func (p *WorkerPool) Publish(_ context.Context, task *integration.SyncTask) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return ErrQueueNotRunning
	}

	if wait := time.Until(task.NotBefore); wait > 0 {
		p.timers[task.ID] = time.AfterFunc(wait, func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.timers, task.ID)
			if !p.isRunning {
				return
			}
			if err := p.enqueueLocked(task); err != nil {
				p.logger.Warn("Failed to enqueue delayed sync task",
					zap.String("task_id", task.ID),
					zap.Error(err),
				)
			}
		})
		p.logger.Debug("Sync task delayed",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type.String()),
			zap.Duration("delay", wait),
		)
		return nil
	}
	return p.enqueueLocked(task)
}

// enqueueLocked must be called with p.mu held
func (p *WorkerPool) enqueueLocked(task *integration.SyncTask) error {
	select {
	case p.tasks <- task:
		p.logger.Debug("Sync task submitted",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type.String()),
			zap.String("local_id", task.LocalID),
		)
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of buffered and delayed tasks
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.timers)
	if p.tasks != nil {
		n += len(p.tasks)
	}
	return n
}

// worker processes tasks from the queue
func (p *WorkerPool) worker(ctx context.Context, workerID int, tasks <-chan *integration.SyncTask) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			p.process(ctx, task, workerID)
		}
	}
}

// process executes a single task
func (p *WorkerPool) process(ctx context.Context, task *integration.SyncTask, workerID int) {
	record := TaskRecord{
		TaskID:    task.ID,
		Type:      task.Type,
		LocalID:   task.LocalID,
		Trigger:   task.Trigger,
		Attempt:   task.Attempt,
		Status:    TaskStatusRunning,
		WorkerID:  workerID,
		StartedAt: time.Now(),
	}

	taskCtx, cancel := context.WithTimeout(ctx, p.config.TaskTimeout)
	defer cancel()

	err := p.execute(taskCtx, task)
	record.CompletedAt = time.Now()

	if err == nil {
		record.Status = TaskStatusSuccess
		p.logger.Info("Sync task completed",
			zap.Int("worker_id", workerID),
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type.String()),
			zap.String("local_id", task.LocalID),
			zap.Duration("duration", record.Duration()),
		)
		p.finish(ctx, record)
		return
	}

	record.Status = TaskStatusFailed
	record.Error = err.Error()
	p.logger.Error("Sync task failed",
		zap.Int("worker_id", workerID),
		zap.String("task_id", task.ID),
		zap.String("task_type", task.Type.String()),
		zap.String("local_id", task.LocalID),
		zap.Int("attempt", task.Attempt),
		zap.Error(err),
	)

	if task.Attempt < p.config.RetryAttempts && ctx.Err() == nil {
		retry := *task
		retry.Attempt++
		delay := p.config.backoff(retry.Attempt)
		retry.NotBefore = time.Now().Add(delay)
		if pubErr := p.Publish(ctx, &retry); pubErr != nil {
			p.logger.Warn("Failed to re-queue sync task for retry",
				zap.String("task_id", task.ID),
				zap.Error(pubErr),
			)
		} else {
			record.Status = TaskStatusRetrying
			p.logger.Info("Sync task scheduled for retry",
				zap.String("task_id", task.ID),
				zap.Int("attempt", retry.Attempt),
				zap.Int("max_retries", p.config.RetryAttempts),
				zap.Time("next_retry_at", retry.NotBefore),
			)
		}
	}
	p.finish(ctx, record)
}

// execute runs the handler and converts a panic into an error
func (p *WorkerPool) execute(ctx context.Context, task *integration.SyncTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task handler: %v", r)
		}
	}()
	return p.handler.HandleTask(ctx, task)
}

func (p *WorkerPool) finish(ctx context.Context, record TaskRecord) {
	p.addToHistory(record)
	if p.observer != nil {
		p.observer.ObserveTask(ctx, record)
	}
}

// addToHistory adds a finished execution to history
func (p *WorkerPool) addToHistory(record TaskRecord) {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()

	p.history = append([]TaskRecord{record}, p.history...)
	if len(p.history) > p.config.HistorySize {
		p.history = p.history[:p.config.HistorySize]
	}
}

// History returns the most recent executions, newest first
func (p *WorkerPool) History(limit int) []TaskRecord {
	p.historyMu.RLock()
	defer p.historyMu.RUnlock()

	if limit <= 0 || limit > len(p.history) {
		limit = len(p.history)
	}
	result := make([]TaskRecord, limit)
	copy(result, p.history[:limit])
	return result
}

// HistoryByLocalID returns recent executions for one entity
func (p *WorkerPool) HistoryByLocalID(localID string, limit int) []TaskRecord {
	p.historyMu.RLock()
	defer p.historyMu.RUnlock()

	result := make([]TaskRecord, 0, limit)
	for _, r := range p.history {
		if r.LocalID == localID {
			result = append(result, r)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}
