package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const SystemTopic = "system"

func AgentTopic(id uuid.UUID) string { return fmt.Sprintf("agent_%s", id) }
func TaskTopic(id uuid.UUID) string  { return fmt.Sprintf("task_%s", id) }

// HandleMessage dispatches one inbound frame from clientID. Malformed
// frames are answered with an error message; unknown types are dropped.
func (h *Hub) HandleMessage(ctx context.Context, clientID string, raw []byte) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		h.logger.Warn("invalid realtime frame", "client_id", clientID)
		h.SendPersonal(ctx, clientID, Message{
			"type":    "error",
			"message": "Invalid JSON format",
		})
		return
	}

	frame := gjson.ParseBytes(raw)

	switch kind := frame.Get("type").String(); kind {
	case "subscribe":
		if topic := frame.Get("topic").String(); topic != "" {
			h.Subscribe(ctx, clientID, topic)
		}
	case "unsubscribe":
		if topic := frame.Get("topic").String(); topic != "" {
			h.Unsubscribe(clientID, topic)
		}
	case "ping":
		h.SendPersonal(ctx, clientID, Message{"type": "pong"})
	case "chat_message":
		h.SendPersonal(ctx, clientID, Message{
			"type":       "chat_response",
			"message":    "Received: " + frame.Get("message").String(),
			"session_id": frame.Get("session_id").Value(),
		})
	case "agent_command":
		h.SendPersonal(ctx, clientID, Message{
			"type":     "agent_response",
			"command":  frame.Get("command").Value(),
			"agent_id": frame.Get("agent_id").Value(),
			"status":   "processed",
		})
	case "task_command":
		h.SendPersonal(ctx, clientID, Message{
			"type":    "task_response",
			"command": frame.Get("command").Value(),
			"task_id": frame.Get("task_id").Value(),
			"status":  "processed",
		})
	default:
		h.logger.Warn("unknown realtime message type", "client_id", clientID, "type", kind)
	}
}

// BroadcastAgentUpdate publishes data to the agent's topic.
func (h *Hub) BroadcastAgentUpdate(ctx context.Context, agentID uuid.UUID, data map[string]any) {
	h.Publish(ctx, AgentTopic(agentID), Message{
		"type":     "agent_update",
		"agent_id": agentID.String(),
		"data":     data,
	})
}

// BroadcastTaskUpdate publishes data to the task's topic.
func (h *Hub) BroadcastTaskUpdate(ctx context.Context, taskID uuid.UUID, data map[string]any) {
	h.Publish(ctx, TaskTopic(taskID), Message{
		"type":    "task_update",
		"task_id": taskID.String(),
		"data":    data,
	})
}

// BroadcastSystemNotification publishes notification to the system topic.
func (h *Hub) BroadcastSystemNotification(ctx context.Context, notification map[string]any) {
	h.Publish(ctx, SystemTopic, Message{
		"type":         "system_notification",
		"notification": notification,
	})
}

// NotifyAgent publishes a registry notification for agentID.
func (h *Hub) NotifyAgent(agentID uuid.UUID, data map[string]any) {
	h.BroadcastAgentUpdate(context.Background(), agentID, data)
}
