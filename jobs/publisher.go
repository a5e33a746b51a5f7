package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/redis/go-redis/v9"

	"gbv_reporter/logging"
)

// DefaultQueue is the Redis list tasks are pushed to.
const DefaultQueue = "queue:tasks"

// InboundQueue is the base name of the inbound message shards.
const InboundQueue = "queue:inbound"

// Task types.
const (
	TaskInboundMessage = "inbound_message"
	TaskEscalateReport = "escalate_report"
)

// Task is a unit of background work.
type Task struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher pushes tasks onto a Redis list.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewPublisher returns a Publisher for queue, or DefaultQueue when queue
// is empty.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Publish enqueues task. Workers pop from the other end, so tasks are
// processed in publish order.
func (p *Publisher) Publish(ctx context.Context, task Task) error {
	return p.PublishTo(ctx, p.queue, task)
}

// PublishTo enqueues task on queue instead of the publisher's own queue.
func (p *Publisher) PublishTo(ctx context.Context, queue string, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	if err := p.rdb.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push task to queue: %w", err)
	}

	logging.FromContext(ctx).Debug("task queued", "type", task.Type, "queue", queue)
	return nil
}

// ShardName is the name of shard i of base.
func ShardName(base string, i int) string {
	return fmt.Sprintf("%s:%d", base, i)
}

// ShardFor picks the shard of base that key always maps to. Giving each
// shard a single worker keeps one key's tasks in publish order.
func ShardFor(base, key string, shards int) string {
	if shards < 1 {
		shards = 1
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return ShardName(base, int(h.Sum32()%uint32(shards)))
}
