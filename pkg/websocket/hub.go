// Package websocket fans server events out to connected browser clients.
package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/upi-guard/pkg/logger"
	"go.uber.org/zap"
)

const (
	sendBufferSize      = 64
	broadcastBufferSize = 256
)

// MessageSubscribed acknowledges a subscribe request to the client that sent it.
const MessageSubscribed = "subscribed"

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "upiguard",
		Name:      "feed_connected_clients",
		Help:      "Websocket clients connected to the live feed",
	})
	droppedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "upiguard",
		Name:      "feed_dropped_messages_total",
		Help:      "Messages dropped because a client send buffer was full",
	})
)

// ErrHubStopped is returned by Serve once the hub no longer accepts clients.
var ErrHubStopped = errors.New("websocket: hub stopped")

// Message is the frame exchanged with feed clients. Topic scopes a message
// to clients watching one UPI id; empty means every client.
type Message struct {
	Type      string                 `json:"type"`
	Topic     string                 `json:"topic,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// HandlerFunc handles a message received from a client.
type HandlerFunc func(c *Client, msg *Message)

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	clients  map[string]*Client
	topics   map[string]map[string]bool
	handlers map[string]HandlerFunc
	mu       sync.RWMutex

	Register   chan *Client
	Unregister chan *Client
	// Broadcast carries one batch per slot so related messages are queued
	// together or not at all.
	Broadcast chan []*Message

	done chan struct{}
	once sync.Once
}

// NewHub creates a hub with the subscribe and unsubscribe handlers
// registered. Call Run to start it.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		topics:     make(map[string]map[string]bool),
		handlers:   make(map[string]HandlerFunc),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []*Message, broadcastBufferSize),
		done:       make(chan struct{}),
	}

	h.RegisterHandler("subscribe", func(c *Client, msg *Message) {
		if topic, ok := msg.Data["upi_id"].(string); ok && topic != "" {
			h.AddClientToTopic(c.ID, topic)
			h.SendToUser(c.ID, &Message{Type: MessageSubscribed, Topic: topic, Timestamp: time.Now().UTC()})
		}
	})
	h.RegisterHandler("unsubscribe", func(c *Client, msg *Message) {
		if topic, ok := msg.Data["upi_id"].(string); ok && topic != "" {
			h.RemoveClientFromTopic(c.ID, topic)
		}
	})
	return h
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case batch := <-h.Broadcast:
			for _, msg := range batch {
				h.deliver(msg)
			}
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[client.ID]; ok && existing != client {
		h.removeLocked(existing)
	}
	h.clients[client.ID] = client
	connectedClients.Set(float64(len(h.clients)))
	logger.Debug("feed client connected", zap.String("client_id", client.ID))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// a replaced client must not evict its successor
	if current, ok := h.clients[client.ID]; ok && current == client {
		h.removeLocked(client)
		connectedClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client.ID)
	for topic, members := range h.topics {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	client.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.removeLocked(c)
	}
	connectedClients.Set(0)
}

func (h *Hub) deliver(msg *Message) {
	if msg.Topic == "" {
		h.SendToAll(msg)
		return
	}
	h.SendToTopic(msg.Topic, msg)
}

// AddClientToTopic subscribes a registered client to topic.
func (h *Hub) AddClientToTopic(clientID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]bool)
	}
	h.topics[topic][clientID] = true
}

// RemoveClientFromTopic drops a subscription; empty topics are removed.
func (h *Hub) RemoveClientFromTopic(clientID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.topics[topic]; ok {
		delete(members, clientID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
}

// SendToUser queues msg for a single client.
func (h *Hub) SendToUser(clientID string, msg *Message) {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if ok {
		client.enqueue(msg)
	}
}

// SendToTopic queues msg for every client subscribed to topic.
func (h *Hub) SendToTopic(topic string, msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.topics[topic] {
		if client, ok := h.clients[id]; ok {
			client.enqueue(msg)
		}
	}
}

// SendToAll queues msg for every client.
func (h *Hub) SendToAll(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.enqueue(msg)
	}
}

// Publish hands msgs to the Run loop as one batch without blocking. It
// reports false, queueing none of them, when the broadcast buffer is full.
func (h *Hub) Publish(msgs ...*Message) bool {
	now := time.Now().UTC()
	for _, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
	}
	select {
	case h.Broadcast <- msgs:
		return true
	default:
		droppedMessages.Inc()
		return false
	}
}

// RegisterHandler routes client messages of msgType to handler.
func (h *Hub) RegisterHandler(msgType string, handler HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// HandleMessage dispatches a client message to its handler.
func (h *Hub) HandleMessage(c *Client, msg *Message) {
	h.mu.RLock()
	handler, ok := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !ok {
		c.log.Debug("unknown feed message type", zap.String("type", msg.Type))
		return
	}
	handler(c, msg)
}

// GetClientsInTopic lists the clients subscribed to topic.
func (h *Hub) GetClientsInTopic(topic string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		if c, ok := h.clients[id]; ok {
			clients = append(clients, c)
		}
	}
	return clients
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetTopicCount returns the number of topics with at least one subscriber.
func (h *Hub) GetTopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}
