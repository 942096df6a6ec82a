package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskify/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type JobType string

const (
	JobTypeDueReminder JobType = "task_due_reminder"
)

const (
	DefaultQueue = "default"
	retryQueue   = "retry_queue"
	deadQueue    = "dead_queue"

	defaultMaxTries = 3
	jobTimeout      = 30 * time.Second
	reminderLead    = time.Hour
)

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

// Worker drains redis list queues with a pool of goroutines. Jobs that are
// not yet due are requeued; failures retry with exponential backoff and land
// in the dead queue after max tries.
type Worker struct {
	client   *redis.Client
	handlers map[JobType]JobHandler
	queues   []string
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type Config struct {
	RedisClient *redis.Client
	Queues      []string
}

func NewWorker(config Config) *Worker {
	queues := config.Queues
	if len(queues) == 0 {
		queues = []string{DefaultQueue}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		client:   config.RedisClient,
		handlers: make(map[JobType]JobHandler),
		queues:   queues,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(concurrency int) {
	log.Info().Int("concurrency", concurrency).Msg("starting worker")

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop()
	}
}

func (w *Worker) Stop() {
	log.Info().Msg("stopping worker")
	w.cancel()
	w.wg.Wait()
	log.Info().Msg("worker stopped")
}

func (w *Worker) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.processNext(); err != nil {
				log.Error().Err(err).Msg("job processing failed")
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) processNext() error {
	result, err := w.client.BLPop(w.ctx, 5*time.Second, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("unexpected BLPop result")
	}

	queue, raw := result[0], result[1]

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if time.Now().Before(job.ProcessAt) {
		return w.push(queue, &job)
	}

	return w.execute(&job)
}

func (w *Worker) execute(job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for job type %s", job.Type)
	}

	ctx, cancel := context.WithTimeout(w.ctx, jobTimeout)
	defer cancel()

	if err := handler(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			log.Warn().
				Str("job_id", job.ID).
				Int("attempt", job.Attempts).
				Err(err).
				Msg("job failed, retrying")
			job.ProcessAt = time.Now().Add(time.Duration(1<<job.Attempts) * time.Minute)
			return w.push(retryQueue, job)
		}

		log.Error().
			Str("job_id", job.ID).
			Int("attempts", job.Attempts).
			Err(err).
			Msg("job failed permanently")
		return w.moveToDeadQueue(job, err)
	}

	log.Debug().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("job completed")
	return nil
}

func (w *Worker) push(queue string, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return w.client.RPush(w.ctx, queue, data).Err()
}

func (w *Worker) moveToDeadQueue(job *Job, jobErr error) error {
	dead := map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    time.Now(),
	}

	data, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return w.client.RPush(w.ctx, deadQueue, data).Err()
}

// JobQueue is the producer side. It also implements the task service's
// ReminderScheduler so due-date changes queue a reminder ahead of the due time.
type JobQueue struct {
	client *redis.Client
	queue  string
}

func NewJobQueue(client *redis.Client, queue string) *JobQueue {
	if queue == "" {
		queue = DefaultQueue
	}
	return &JobQueue{client: client, queue: queue}
}

func (q *JobQueue) Enqueue(jobType JobType, payload map[string]interface{}) error {
	return q.EnqueueAt(jobType, payload, time.Now())
}

func (q *JobQueue) EnqueueAt(jobType JobType, payload map[string]interface{}, processAt time.Time) error {
	job := &Job{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      jobType,
		Payload:   payload,
		MaxTries:  defaultMaxTries,
		CreatedAt: time.Now(),
		ProcessAt: processAt,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return q.client.RPush(ctx, q.queue, data).Err()
}

func (q *JobQueue) ScheduleDueReminder(task *models.Task) error {
	if task.DueDate == nil {
		return nil
	}

	processAt := task.DueDate.Add(-reminderLead)
	if processAt.Before(time.Now()) {
		processAt = time.Now()
	}

	return q.EnqueueAt(JobTypeDueReminder, map[string]interface{}{
		"task_id":  task.ID.String(),
		"user_id":  task.UserID.String(),
		"title":    task.Title,
		"due_date": task.DueDate.Format(time.RFC3339),
	}, processAt)
}

func (q *JobQueue) Size() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, q.queue).Result()
}

// DueReminderHandler logs the reminder. Delivery channels (mail, push) hang
// off this handler when they exist.
func DueReminderHandler(ctx context.Context, job *Job) error {
	title, _ := job.Payload["title"].(string)
	dueDate, _ := job.Payload["due_date"].(string)

	log.Info().
		Str("job_id", job.ID).
		Str("title", title).
		Str("due_date", dueDate).
		Msg("task due soon")
	return nil
}
