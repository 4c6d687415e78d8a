package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gateway/internal/domain"
)

// JobQueue is a FIFO work queue per queue name, backed by Redis lists.
// Jobs are pushed on the left and popped from the right.
type JobQueue struct {
	client *redis.Client
}

// NewJobQueue creates a new JobQueue.
func NewJobQueue(client *redis.Client) *JobQueue {
	return &JobQueue{client: client}
}

// Enqueue appends a job to the tail of its queue.
func (q *JobQueue) Enqueue(ctx context.Context, job domain.Job) error {
	if job.Queue == "" || job.EntityID == "" {
		return fmt.Errorf("enqueue: incomplete job %+v", job)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return q.client.LPush(ctx, string(job.Queue), data).Err()
}

// Dequeue blocks until a job is available on queue or timeout elapses.
// It returns nil, nil on timeout. The pop is atomic, so a job is handed to
// at most one consumer.
func (q *JobQueue) Dequeue(ctx context.Context, queue domain.QueueName, timeout time.Duration) (*domain.Job, error) {
	result, err := q.client.BRPop(ctx, timeout, string(queue)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	// BRPOP replies with [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("dequeue %s: unexpected reply %v", queue, result)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("dequeue %s: decode job: %w", queue, err)
	}
	if job.Queue == "" {
		job.Queue = queue
	}

	return &job, nil
}

// Size returns the number of jobs waiting on queue.
func (q *JobQueue) Size(ctx context.Context, queue domain.QueueName) (int64, error) {
	return q.client.LLen(ctx, string(queue)).Result()
}
