package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

type payload struct {
	ReferenceID string `json:"referenceId"`
}

func TestPublishPushesJSON(t *testing.T) {
	mr, rdb := newRedis(t)
	pub := NewPublisher(rdb, "")

	err := pub.Publish(context.Background(), Task{Type: TaskEscalateReport, Data: payload{"GBV-1-A"}})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	items, err := mr.List(DefaultQueue)
	if err != nil || len(items) != 1 {
		t.Fatalf("queue = %v, %v", items, err)
	}
	var got envelope
	if err := json.Unmarshal([]byte(items[0]), &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != TaskEscalateReport || string(got.Data) != `{"referenceId":"GBV-1-A"}` {
		t.Errorf("task = %s %s", got.Type, got.Data)
	}
}

func TestWorkerRunsTasksInOrder(t *testing.T) {
	_, rdb := newRedis(t)
	pub := NewPublisher(rdb, "queue:test")
	w := NewWorker(rdb, "queue:test")
	w.poll = 50 * time.Millisecond

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	w.Handle(TaskEscalateReport, func(_ context.Context, data json.RawMessage) error {
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p.ReferenceID)
		if len(got) == 3 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, ref := range []string{"a", "b", "c"} {
		if err := pub.Publish(ctx, Task{Type: TaskEscalateReport, Data: payload{ref}}); err != nil {
			t.Fatal(err)
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks not processed")
	}
	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("processed = %v, want [a b c]", got)
	}
}

func TestProcessErrors(t *testing.T) {
	_, rdb := newRedis(t)
	w := NewWorker(rdb, "")
	boom := errors.New("boom")
	w.Handle("fails", func(context.Context, json.RawMessage) error { return boom })

	if err := w.Process(context.Background(), []byte("not json")); err == nil {
		t.Error("Process() accepted invalid JSON")
	}
	if err := w.Process(context.Background(), []byte(`{"type":"unknown"}`)); err == nil {
		t.Error("Process() accepted an unknown task type")
	}
	if err := w.Process(context.Background(), []byte(`{"type":"fails","data":null}`)); !errors.Is(err, boom) {
		t.Errorf("Process() error = %v, want boom", err)
	}
}

func TestShardFor(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		key := ShardName("user", i)
		q := ShardFor(InboundQueue, key, 4)
		if q != ShardFor(InboundQueue, key, 4) {
			t.Fatalf("ShardFor(%q) is not stable", key)
		}
		seen[q] = true
	}
	if len(seen) != 4 {
		t.Errorf("used %d shards, want 4: %v", len(seen), seen)
	}
	for q := range seen {
		switch q {
		case "queue:inbound:0", "queue:inbound:1", "queue:inbound:2", "queue:inbound:3":
		default:
			t.Errorf("unexpected shard %q", q)
		}
	}
	if got := ShardFor(InboundQueue, "u1", 0); got != "queue:inbound:0" {
		t.Errorf("ShardFor with no shards = %q", got)
	}
}

func TestPublishToShard(t *testing.T) {
	mr, rdb := newRedis(t)
	pub := NewPublisher(rdb, "")
	queue := ShardFor(InboundQueue, "2348011111111", 2)

	if err := pub.PublishTo(context.Background(), queue, Task{Type: TaskInboundMessage, Data: payload{"x"}}); err != nil {
		t.Fatalf("PublishTo() error = %v", err)
	}
	if items, _ := mr.List(queue); len(items) != 1 {
		t.Errorf("shard %s holds %d tasks", queue, len(items))
	}
	if mr.Exists(DefaultQueue) {
		t.Error("task leaked onto the default queue")
	}
}
