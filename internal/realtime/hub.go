// Package realtime tracks WebSocket clients and their topic subscriptions
// and delivers personal, broadcast and topic messages to them.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Conn is the transport of one connected client.
type Conn interface {
	Write(ctx context.Context, data []byte) error
	Close(reason string) error
}

// Message is an outbound envelope. Every delivered message carries type
// and timestamp.
type Message map[string]any

type session struct {
	conn          Conn
	connectedAt   time.Time
	lastActivity  time.Time
	subscriptions map[string]struct{}
}

type target struct {
	id   string
	sess *session
}

// Hub owns every client session and the topic index. A client appears in
// a topic's subscriber set iff the topic is in the client's own
// subscription set.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*session
	topics  map[string]map[string]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("system", "realtime"),
		clients: make(map[string]*session),
		topics:  make(map[string]map[string]struct{}),
	}
}

// Connect registers conn under clientID and sends the welcome message.
// A prior connection under the same id is unlinked and closed first.
func (h *Hub) Connect(ctx context.Context, clientID string, conn Conn) {
	h.connect(ctx, clientID, conn)
}

func (h *Hub) connect(ctx context.Context, clientID string, conn Conn) *session {
	now := time.Now().UTC()
	sess := &session{
		conn:          conn,
		connectedAt:   now,
		lastActivity:  now,
		subscriptions: make(map[string]struct{}),
	}

	h.mu.Lock()
	prev := h.remove(clientID)
	h.clients[clientID] = sess
	h.mu.Unlock()

	if prev != nil {
		h.logger.Warn("client id reconnected, closing prior connection", "client_id", clientID)
		if err := prev.conn.Close("replaced by a new connection"); err != nil {
			h.logger.Debug("close replaced connection", "client_id", clientID, "error", err)
		}
	}

	h.logger.Info("client connected", "client_id", clientID)

	h.SendPersonal(ctx, clientID, Message{
		"type":      "welcome",
		"message":   "Connected to Project Chimera",
		"client_id": clientID,
	})
	return sess
}

// Disconnect forgets clientID and all of its subscriptions. Unknown ids
// are ignored.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	sess := h.remove(clientID)
	h.mu.Unlock()

	if sess != nil {
		h.logger.Info("client disconnected", "client_id", clientID)
	}
}

// release removes sess only while it is still the session registered for
// clientID, so a replaced connection cannot evict its successor.
func (h *Hub) release(clientID string, sess *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[clientID] != sess {
		return false
	}
	h.remove(clientID)
	return true
}

// remove requires h.mu.
func (h *Hub) remove(clientID string) *session {
	sess, ok := h.clients[clientID]
	if !ok {
		return nil
	}
	for topic := range sess.subscriptions {
		h.unlink(topic, clientID)
	}
	delete(h.clients, clientID)
	return sess
}

// unlink requires h.mu.
func (h *Hub) unlink(topic, clientID string) {
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subs, clientID)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// SendPersonal delivers msg to one client. A failed write disconnects it.
func (h *Hub) SendPersonal(ctx context.Context, clientID string, msg Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.Lock()
	sess, ok := h.clients[clientID]
	h.mu.Unlock()

	if !ok {
		return
	}
	h.deliver(ctx, []target{{id: clientID, sess: sess}}, data)
}

// Broadcast delivers msg to every connected client except exclude.
func (h *Hub) Broadcast(ctx context.Context, msg Message, exclude string) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.Lock()
	targets := make([]target, 0, len(h.clients))
	for id, sess := range h.clients {
		if id != exclude {
			targets = append(targets, target{id: id, sess: sess})
		}
	}
	h.mu.Unlock()

	h.deliver(ctx, targets, data)
}

// Subscribe adds clientID to topic and confirms to the client. Unknown
// clients are ignored.
func (h *Hub) Subscribe(ctx context.Context, clientID, topic string) {
	h.mu.Lock()
	sess, ok := h.clients[clientID]
	if ok {
		sess.subscriptions[topic] = struct{}{}
		subs, exists := h.topics[topic]
		if !exists {
			subs = make(map[string]struct{})
			h.topics[topic] = subs
		}
		subs[clientID] = struct{}{}
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	h.logger.Info("client subscribed", "client_id", clientID, "topic", topic)
	h.SendPersonal(ctx, clientID, Message{
		"type":  "subscription_confirmed",
		"topic": topic,
	})
}

// Unsubscribe removes clientID from topic.
func (h *Hub) Unsubscribe(clientID, topic string) {
	h.mu.Lock()
	if sess, ok := h.clients[clientID]; ok {
		delete(sess.subscriptions, topic)
	}
	h.unlink(topic, clientID)
	h.mu.Unlock()

	h.logger.Info("client unsubscribed", "client_id", clientID, "topic", topic)
}

// Publish delivers msg, tagged with topic, to every subscriber of topic.
func (h *Hub) Publish(ctx context.Context, topic string, msg Message) {
	h.mu.Lock()
	subs := h.topics[topic]
	targets := make([]target, 0, len(subs))
	for id := range subs {
		if sess, ok := h.clients[id]; ok {
			targets = append(targets, target{id: id, sess: sess})
		}
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	tagged := Message{"topic": topic}
	maps.Copy(tagged, msg)
	tagged["topic"] = topic

	data, ok := h.encode(tagged)
	if !ok {
		return
	}
	h.deliver(ctx, targets, data)
}

// CloseAll closes every connection and empties the hub.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*session)
	h.topics = make(map[string]map[string]struct{})
	h.mu.Unlock()

	var g errgroup.Group
	for id, sess := range clients {
		g.Go(func() error {
			if err := sess.conn.Close("server shutting down"); err != nil {
				h.logger.Debug("close connection", "client_id", id, "error", err)
			}
			return nil
		})
	}
	g.Wait()

	h.logger.Info("realtime hub closed", "clients", len(clients))
}

func (h *Hub) encode(msg Message) ([]byte, bool) {
	out := maps.Clone(msg)
	if out == nil {
		out = Message{}
	}
	if _, ok := out["timestamp"]; !ok {
		out["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(out)
	if err != nil {
		h.logger.Error("encode realtime message", "type", out["type"], "error", err)
		return nil, false
	}
	return data, true
}

// deliver writes data to each target without holding h.mu and drops the
// targets whose write failed.
func (h *Hub) deliver(ctx context.Context, targets []target, data []byte) {
	// Caller cancellation is not a transport failure.
	ctx = context.WithoutCancel(ctx)

	var failed []target
	for _, t := range targets {
		if err := t.sess.conn.Write(ctx, data); err != nil {
			h.logger.Warn("realtime write failed", "client_id", t.id, "error", err)
			failed = append(failed, t)
			continue
		}
		h.touch(t.sess)
	}

	for _, t := range failed {
		if h.release(t.id, t.sess) {
			h.logger.Info("client disconnected", "client_id", t.id, "reason", "write failed")
		}
		t.sess.conn.Close("write failed")
	}
}

func (h *Hub) touch(sess *session) {
	h.mu.Lock()
	sess.lastActivity = time.Now().UTC()
	h.mu.Unlock()
}

// ConnectedClients returns the sorted ids of connected clients.
func (h *Hub) ConnectedClients() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Sorted(maps.Keys(h.clients))
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// TopicSubscribers returns the sorted ids subscribed to topic.
func (h *Hub) TopicSubscribers(topic string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Sorted(maps.Keys(h.topics[topic]))
}

// ClientInfo describes one connected client.
type ClientInfo struct {
	ClientID      string    `json:"client_id"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastActivity  time.Time `json:"last_activity"`
	Subscriptions []string  `json:"subscriptions"`
}

func (h *Hub) ClientInfo(clientID string) (ClientInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.clients[clientID]
	if !ok {
		return ClientInfo{}, false
	}
	return ClientInfo{
		ClientID:      clientID,
		ConnectedAt:   sess.connectedAt,
		LastActivity:  sess.lastActivity,
		Subscriptions: slices.Sorted(maps.Keys(sess.subscriptions)),
	}, true
}

// Stats summarizes the hub.
type Stats struct {
	ConnectedClients   int       `json:"connected_clients"`
	TotalSubscriptions int       `json:"total_subscriptions"`
	Topics             []string  `json:"topics"`
	Timestamp          time.Time `json:"timestamp"`
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, subs := range h.topics {
		total += len(subs)
	}
	return Stats{
		ConnectedClients:   len(h.clients),
		TotalSubscriptions: total,
		Topics:             slices.Sorted(maps.Keys(h.topics)),
		Timestamp:          time.Now().UTC(),
	}
}
