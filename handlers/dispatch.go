package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"gbv_reporter/dialog"
	"gbv_reporter/jobs"
)

// Inline runs the dialogue turn inside the webhook request.
func Inline(m dialog.DialogManager) Dispatcher {
	return DispatchFunc(m.HandleMessage)
}

// TaskPublisher is satisfied by *jobs.Publisher.
type TaskPublisher interface {
	PublishTo(ctx context.Context, queue string, task jobs.Task) error
}

// Queued pushes each event as an inbound_message task onto the inbound
// shard of its sender, so one user's messages share one queue.
func Queued(p TaskPublisher, shards int) Dispatcher {
	return DispatchFunc(func(ctx context.Context, ev dialog.Event) error {
		queue := jobs.ShardFor(jobs.InboundQueue, ev.SenderID, shards)
		return p.PublishTo(ctx, queue, jobs.Task{Type: jobs.TaskInboundMessage, Data: ev})
	})
}

// InboundTask is the jobs.HandlerFunc for inbound_message tasks.
func InboundTask(m dialog.DialogManager) jobs.HandlerFunc {
	return func(ctx context.Context, data json.RawMessage) error {
		var ev dialog.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode inbound message: %w", err)
		}
		return m.HandleMessage(ctx, ev)
	}
}
