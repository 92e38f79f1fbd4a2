package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"barbeapp/internal/metrics"
	"barbeapp/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisQueueKey = "mail:queue"
	deadLetterKey = "mail:deadletter"
)

// TaskStore persists mail tasks between enqueue and delivery.
type TaskStore interface {
	CreateMailTask(ctx context.Context, task *models.MailTask) error
	GetMailTask(ctx context.Context, id int64) (*models.MailTask, error)
	GetPendingMailTasks(ctx context.Context, limit int) ([]models.MailTask, error)
	UpdateMailTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// JobHandler processes the JSON payload of one job.
type JobHandler func(ctx context.Context, payload []byte) error

// MailWorker consumes mail_queue tasks and runs the handler registered for their job key.
type MailWorker struct {
	store        TaskStore
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.MailTask
	pollInterval time.Duration
	popTimeout   time.Duration
	batchSize    int
	logger       *zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]JobHandler
}

// NewMailWorker builds a worker with sane defaults. redisClient may be nil.
func NewMailWorker(store TaskStore, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *MailWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &MailWorker{
		store:        store,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan models.MailTask, models.WorkerQueueSize),
		pollInterval: 2 * time.Second,
		popTimeout:   time.Second,
		batchSize:    20,
		logger:       logger,
		handlers:     make(map[string]JobHandler),
	}
}

// Register binds a handler to a job key.
func (w *MailWorker) Register(jobKey string, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobKey] = handler
}

func (w *MailWorker) handler(jobKey string) (JobHandler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[jobKey]
	return h, ok
}

// Enqueue persists the job, then schedules it via redis or the in-memory queue.
func (w *MailWorker) Enqueue(ctx context.Context, jobKey string, payload interface{}) error {
	if jobKey == "" {
		return errors.New("job key is required")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.MailTask{
		JobKey:  jobKey,
		Payload: string(payloadBytes),
		Status:  models.TaskStatusPending,
	}
	if err := w.store.CreateMailTask(ctx, &task); err != nil {
		return fmt.Errorf("persist mail task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		// останется в mail_queue и будет подхвачена поллингом
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left for polling")
	}
	return nil
}

// failedTaskLister is implemented by stores that can list dead tasks.
type failedTaskLister interface {
	GetFailedMailTasks(ctx context.Context) ([]models.MailTask, error)
}

// ReportFailed logs tasks that exhausted their retries and returns how many there are.
func (w *MailWorker) ReportFailed(ctx context.Context) (int, error) {
	lister, ok := w.store.(failedTaskLister)
	if !ok {
		return 0, nil
	}
	failed, err := lister.GetFailedMailTasks(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range failed {
		ev := w.logger.Warn().Int64("task_id", t.ID).Str("job_key", t.JobKey).Int("retries", t.RetryCount)
		if t.LastError != nil {
			ev = ev.Str("last_error", *t.LastError)
		}
		ev.Msg("mail task failed permanently")
	}
	return len(failed), nil
}

// Start runs the main loop until ctx is done.
func (w *MailWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("mail worker started")
	defer w.logger.Info().Msg("mail worker stopped")

	if n, err := w.ReportFailed(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("failed to list failed mail tasks")
	} else if n > 0 {
		w.logger.Warn().Int("count", n).Msg("failed mail tasks in queue")
	}

	for ctx.Err() == nil {
		if !w.runOnce(ctx) {
			select {
			case <-ctx.Done():
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// runOnce processes whatever is available and reports whether any task was handled.
func (w *MailWorker) runOnce(ctx context.Context) bool {
	if t, ok := w.tryLocalQueue(); ok {
		w.processTask(ctx, &t)
		return true
	}

	if t, ok := w.tryRedis(ctx); ok {
		w.processTask(ctx, &t)
		return true
	}

	tasks, err := w.store.GetPendingMailTasks(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("fetch pending mail tasks")
		}
		return false
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks) > 0
}

func (w *MailWorker) tryLocalQueue() (models.MailTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.MailTask{}, false
	}
}

func (w *MailWorker) tryRedis(ctx context.Context) (models.MailTask, bool) {
	if w.redis == nil {
		return models.MailTask{}, false
	}
	res, err := w.redis.BRPop(ctx, w.popTimeout, redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return models.MailTask{}, false
		}
		w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		return models.MailTask{}, false
	}
	if len(res) != 2 {
		return models.MailTask{}, false
	}
	var task models.MailTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.MailTask{}, false
	}
	return task, true
}

func (w *MailWorker) processTask(ctx context.Context, task *models.MailTask) {
	// задача могла прийти и из очереди, и из поллинга
	current, err := w.store.GetMailTask(ctx, task.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("reload mail task")
		return
	}
	if current.Status == models.TaskStatusCompleted || current.Status == models.TaskStatusFailed {
		return
	}
	task = current

	log := w.logger.With().Int64("task_id", task.ID).Str("job", task.JobKey).Logger()

	h, ok := w.handler(task.JobKey)
	if !ok {
		w.failTask(ctx, task, fmt.Errorf("no handler for job %q", task.JobKey))
		return
	}

	if err := h(ctx, []byte(task.Payload)); err != nil {
		log.Warn().Err(err).Int("attempt", task.RetryCount+1).Msg("mail job failed")
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.store.UpdateMailTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		log.Error().Err(err).Msg("mark completed")
	}
	metrics.IncMailJob(models.TaskStatusCompleted)
	log.Info().Msg("mail job completed")
}

func (w *MailWorker) retryOrFail(ctx context.Context, task *models.MailTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateMailTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	metrics.IncMailJob(models.TaskStatusRetry)
}

func (w *MailWorker) failTask(ctx context.Context, task *models.MailTask, cause error) {
	if err := w.store.UpdateMailTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	metrics.IncMailJob(models.TaskStatusFailed)
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("job", task.JobKey).Msg("mail job failed permanently")
	w.pushDeadLetter(ctx, task)
}

func (w *MailWorker) pushRedis(ctx context.Context, task models.MailTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, redisQueueKey, data).Err()
}

func (w *MailWorker) pushDeadLetter(ctx context.Context, task *models.MailTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
