package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// Periodic jobs
// ---------------------------------------------------------------------------

// PeriodicJob publishes a task every Interval
type PeriodicJob struct {
	Name     string
	Interval time.Duration
	// Build creates the task for one run
	Build func(now time.Time) *integration.SyncTask
}

// due reports whether the job should run at now given its last run
func (j PeriodicJob) due(now, last time.Time) bool {
	if j.Interval <= 0 {
		return false
	}
	return last.IsZero() || !now.Before(last.Add(j.Interval))
}

// Job names
const (
	JobRetrySweep     = "retry_sweep"
	JobSyncPending    = "sync_pending"
	JobInventorySweep = "inventory_sweep"
	JobHealthCheck    = "health_check"
	JobResetStale     = "reset_stale"
	JobPurgeAudit     = "purge_audit"
	JobDailyReport    = "daily_report"
)

// DefaultJobs builds the standard maintenance and sweep jobs from config.
// A zero interval disables the job.
func DefaultJobs(cfg config.SchedulerConfig) []PeriodicJob {
	sweep := func(taskType integration.TaskType, limit int) func(time.Time) *integration.SyncTask {
		return func(time.Time) *integration.SyncTask {
			t := integration.NewSyncTask(taskType, "", integration.TriggerRetry)
			if taskType != integration.TaskRetrySweep {
				t.Trigger = integration.TriggerAuto
			}
			t.Limit = limit
			return t
		}
	}

	return []PeriodicJob{
		{Name: JobRetrySweep, Interval: cfg.RetryInterval, Build: sweep(integration.TaskRetrySweep, cfg.RetryBatchSize)},
		{Name: JobSyncPending, Interval: cfg.PendingInterval, Build: sweep(integration.TaskSyncPending, cfg.PendingBatchSize)},
		{Name: JobInventorySweep, Interval: cfg.InventoryInterval, Build: sweep(integration.TaskInventorySweep, cfg.InventoryBatchSize)},
		{Name: JobHealthCheck, Interval: cfg.HealthInterval, Build: sweep(integration.TaskHealthCheck, 0)},
		{Name: JobResetStale, Interval: cfg.MaintenanceInterval, Build: func(time.Time) *integration.SyncTask {
			t := integration.NewSyncTask(integration.TaskResetStale, "", integration.TriggerAuto)
			t.OlderThan = cfg.StalePendingAfter
			return t
		}},
		{Name: JobPurgeAudit, Interval: cfg.MaintenanceInterval, Build: sweep(integration.TaskPurgeAudit, 0)},
		{Name: JobDailyReport, Interval: cfg.ReportInterval, Build: sweep(integration.TaskDailyReport, 0)},
	}
}

// ---------------------------------------------------------------------------
// SyncTrigger
// ---------------------------------------------------------------------------

// SyncTrigger publishes periodic jobs to the task queue. It only decides
// when work is due; the queue's workers do the work.
type SyncTrigger struct {
	jobs          []PeriodicJob
	publisher     integration.TaskPublisher
	logger        *zap.Logger
	checkInterval time.Duration
	now           func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   map[string]time.Time
}

// NewSyncTrigger creates a trigger for the given jobs. checkInterval is how
// often due jobs are evaluated.
func NewSyncTrigger(jobs []PeriodicJob, publisher integration.TaskPublisher, checkInterval time.Duration, logger *zap.Logger) *SyncTrigger {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make([]PeriodicJob, 0, len(jobs))
	for _, j := range jobs {
		if j.Interval > 0 && j.Build != nil {
			active = append(active, j)
		}
	}
	return &SyncTrigger{
		jobs:          active,
		publisher:     publisher,
		logger:        logger,
		checkInterval: checkInterval,
		now:           time.Now,
		lastRun:       make(map[string]time.Time),
	}
}

// Start starts the trigger loop. The first run of every job happens one
// interval after start, not immediately.
func (t *SyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	start := t.now()
	for _, j := range t.jobs {
		if _, ok := t.lastRun[j.Name]; !ok {
			t.lastRun[j.Name] = start
		}
	}
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	names := make([]string, 0, len(t.jobs))
	for _, j := range t.jobs {
		names = append(names, j.Name)
	}
	t.logger.Info("Sync trigger started",
		zap.Strings("jobs", names),
		zap.Duration("check_interval", t.checkInterval),
	)
	return nil
}

// Stop stops the trigger
func (t *SyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically which jobs are due
func (t *SyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger publishes every due job
func (t *SyncTrigger) checkAndTrigger(ctx context.Context) int {
	now := t.now()
	published := 0
	for _, j := range t.jobs {
		t.mu.Lock()
		last := t.lastRun[j.Name]
		due := j.due(now, last)
		if due {
			t.lastRun[j.Name] = now
		}
		t.mu.Unlock()
		if !due {
			continue
		}
		if err := t.publish(ctx, j, now); err != nil {
			t.logger.Error("Failed to publish scheduled job",
				zap.String("job", j.Name),
				zap.Error(err),
			)
			continue
		}
		published++
	}
	return published
}

func (t *SyncTrigger) publish(ctx context.Context, j PeriodicJob, now time.Time) error {
	task := j.Build(now)
	if task == nil {
		return nil
	}
	if err := t.publisher.Publish(ctx, task); err != nil {
		return err
	}
	t.logger.Debug("Scheduled job published",
		zap.String("job", j.Name),
		zap.String("task_id", task.ID),
		zap.String("task_type", task.Type.String()),
	)
	return nil
}

// TriggerNow publishes a job immediately, regardless of its schedule
func (t *SyncTrigger) TriggerNow(ctx context.Context, name string) error {
	for _, j := range t.jobs {
		if j.Name != name {
			continue
		}
		now := t.now()
		t.mu.Lock()
		t.lastRun[j.Name] = now
		t.mu.Unlock()
		return t.publish(ctx, j, now)
	}
	return fmt.Errorf("%w: %s", ErrJobNotFound, name)
}

// JobNames returns the active job names, sorted
func (t *SyncTrigger) JobNames() []string {
	names := make([]string, 0, len(t.jobs))
	for _, j := range t.jobs {
		names = append(names, j.Name)
	}
	sort.Strings(names)
	return names
}

// LastRun returns when a job was last published
func (t *SyncTrigger) LastRun(name string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastRun[name]
	return ts, ok
}
