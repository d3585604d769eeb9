package realtime

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/go-agents-orchestration/pkg/observability"
	"github.com/google/uuid"

	"github.com/TAPUZE/project-chimera/pkg/decode"
)

type taskStartData struct {
	TaskID uuid.UUID `json:"task_id"`
	Title  string    `json:"title"`
	Depth  int       `json:"depth"`
}

type taskCompleteData struct {
	TaskID        uuid.UUID `json:"task_id"`
	Success       bool      `json:"success"`
	ExecutionTime float64   `json:"execution_time"`
	Error         string    `json:"error,omitempty"`
}

type edgeTransitionData struct {
	From uuid.UUID `json:"from"`
	To   uuid.UUID `json:"to"`
}

// TaskObserver turns task engine events into task_update publications.
type TaskObserver struct {
	hub    *Hub
	logger *slog.Logger
}

func NewTaskObserver(hub *Hub, logger *slog.Logger) *TaskObserver {
	return &TaskObserver{
		hub:    hub,
		logger: logger.With("system", "realtime-observer"),
	}
}

func (o *TaskObserver) OnEvent(ctx context.Context, event observability.Event) {
	switch event.Type {
	case observability.EventNodeStart:
		o.handleStart(ctx, event)
	case observability.EventNodeComplete:
		o.handleComplete(ctx, event)
	case observability.EventEdgeTransition:
		o.handleEdge(ctx, event)
	default:
		o.logger.Debug("unhandled event", "type", event.Type, "source", event.Source)
	}
}

func (o *TaskObserver) handleStart(ctx context.Context, event observability.Event) {
	data, err := decode.FromMap[taskStartData](event.Data)
	if err != nil {
		o.logger.Error("failed to decode task start data", "error", err)
		return
	}

	o.hub.BroadcastTaskUpdate(ctx, data.TaskID, map[string]any{
		"status": "in_progress",
		"title":  data.Title,
		"depth":  data.Depth,
	})
}

func (o *TaskObserver) handleComplete(ctx context.Context, event observability.Event) {
	data, err := decode.FromMap[taskCompleteData](event.Data)
	if err != nil {
		o.logger.Error("failed to decode task complete data", "error", err)
		return
	}

	status := "completed"
	if !data.Success {
		status = "failed"
	}

	update := map[string]any{
		"status":         status,
		"success":        data.Success,
		"execution_time": data.ExecutionTime,
	}
	if data.Error != "" {
		update["error"] = data.Error
	}
	o.hub.BroadcastTaskUpdate(ctx, data.TaskID, update)
}

func (o *TaskObserver) handleEdge(ctx context.Context, event observability.Event) {
	data, err := decode.FromMap[edgeTransitionData](event.Data)
	if err != nil {
		o.logger.Error("failed to decode edge transition data", "error", err)
		return
	}

	o.hub.BroadcastTaskUpdate(ctx, data.From, map[string]any{
		"subtask_id": data.To.String(),
	})
}
