package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gbv_reporter/logging"
)

// HandlerFunc processes the data of one task.
type HandlerFunc func(ctx context.Context, data json.RawMessage) error

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Worker pops tasks from a Redis list and routes them by type.
type Worker struct {
	rdb      *redis.Client
	queue    string
	handlers map[string]HandlerFunc
	poll     time.Duration
	backoff  time.Duration
}

// NewWorker returns a Worker popping from queue, or DefaultQueue when
// queue is empty.
func NewWorker(rdb *redis.Client, queue string) *Worker {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Worker{
		rdb:      rdb,
		queue:    queue,
		handlers: make(map[string]HandlerFunc),
		poll:     time.Second,
		backoff:  time.Second,
	}
}

// Handle registers h for tasks of type taskType.
func (w *Worker) Handle(taskType string, h HandlerFunc) {
	w.handlers[taskType] = h
}

// Run processes tasks until ctx is cancelled. A failing task is logged
// and dropped.
func (w *Worker) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("🛠 Worker started", "queue", w.queue)

	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := w.rdb.BRPop(ctx, w.poll, w.queue).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			log.Error("failed to read queue", "queue", w.queue, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.backoff):
			}
			continue
		}

		// res is [queue, payload].
		if err := w.Process(ctx, []byte(res[1])); err != nil {
			log.Error("task failed", "error", err)
		}
	}
}

// Process runs the handler for one encoded task.
func (w *Worker) Process(ctx context.Context, payload []byte) error {
	var task envelope
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}
	h, ok := w.handlers[task.Type]
	if !ok {
		return fmt.Errorf("no handler for task type %q", task.Type)
	}
	if err := h(ctx, task.Data); err != nil {
		return fmt.Errorf("%s: %w", task.Type, err)
	}
	return nil
}
