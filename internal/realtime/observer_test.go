package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/observability"
	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/internal/realtime"
)

func TestTaskObserver(t *testing.T) {
	hub := realtime.NewHub(discardLogger())
	conn := connect(t, hub, "watcher")
	ctx := context.Background()

	parent := uuid.New()
	child := uuid.New()
	hub.Subscribe(ctx, "watcher", realtime.TaskTopic(parent))

	observer := realtime.NewTaskObserver(hub, discardLogger())
	events := []observability.Event{
		{
			Type:      observability.EventNodeStart,
			Timestamp: time.Now(),
			Source:    "tasks.engine",
			Data:      map[string]any{"task_id": parent.String(), "title": "Root", "depth": 0},
		},
		{
			Type:      observability.EventEdgeTransition,
			Timestamp: time.Now(),
			Source:    "tasks.engine",
			Data:      map[string]any{"from": parent.String(), "to": child.String()},
		},
		{
			Type:      observability.EventNodeComplete,
			Timestamp: time.Now(),
			Source:    "tasks.engine",
			Data:      map[string]any{"task_id": child.String(), "success": true, "execution_time": 0.5},
		},
		{
			Type:      observability.EventNodeComplete,
			Timestamp: time.Now(),
			Source:    "tasks.engine",
			Data:      map[string]any{"task_id": parent.String(), "success": false, "execution_time": 0.5, "error": "All subtasks failed"},
		},
	}
	for _, e := range events {
		observer.OnEvent(ctx, e)
	}

	updates := conn.ofType("task_update")
	if len(updates) != 3 {
		t.Fatalf("task updates = %d, want 3", len(updates))
	}

	data := func(i int) map[string]any {
		d, _ := updates[i]["data"].(map[string]any)
		return d
	}

	if data(0)["status"] != "in_progress" || data(0)["title"] != "Root" {
		t.Errorf("start update = %v", data(0))
	}
	if data(1)["subtask_id"] != child.String() {
		t.Errorf("edge update = %v", data(1))
	}
	if data(2)["status"] != "failed" || data(2)["error"] != "All subtasks failed" {
		t.Errorf("complete update = %v", data(2))
	}
	for i := range updates {
		if updates[i]["task_id"] != parent.String() || updates[i]["topic"] != realtime.TaskTopic(parent) {
			t.Errorf("update %d routed to %v/%v", i, updates[i]["task_id"], updates[i]["topic"])
		}
	}
}

func TestTaskObserver_BadDataIgnored(t *testing.T) {
	hub := realtime.NewHub(discardLogger())
	connect(t, hub, "watcher")

	observer := realtime.NewTaskObserver(hub, discardLogger())
	observer.OnEvent(context.Background(), observability.Event{
		Type: observability.EventNodeStart,
		Data: map[string]any{"task_id": "not-a-uuid"},
	})

	if hub.ClientCount() != 1 {
		t.Error("bad event data affected the hub")
	}
}
