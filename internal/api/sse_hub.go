package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gocoherence/internal"
)

// Event types pushed to SSE clients
const (
	EventReportReady    = "report_ready"
	EventAnalysisFailed = "analysis_failed"
)

// TopicReports carries every report event
const TopicReports = "reports"

// SSEClient represents a connected SSE client
type SSEClient struct {
	Topic   string
	Channel chan RunEvent
}

// RunEvent is an analysis event streamed to report viewers
type RunEvent struct {
	Topic     string                 `json:"topic"`
	EventType string                 `json:"event_type"`
	RunID     string                 `json:"run_id,omitempty"`
	Label     string                 `json:"label,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SSEHub fans analysis events out to Server-Sent Events clients, grouped by topic
type SSEHub struct {
	clients    map[string]map[chan RunEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan RunEvent
	done       chan struct{}
	closeOnce  sync.Once
	logger     *internal.Logger
}

// NewSSEHub creates a hub and starts its dispatch loop
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &SSEHub{
		clients:    make(map[string]map[chan RunEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan RunEvent, 100),
		done:       make(chan struct{}),
		logger:     logger.With("sse"),
	}

	go hub.run()
	return hub
}

func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.Topic] == nil {
				h.clients[client.Topic] = make(map[chan RunEvent]bool)
			}
			h.clients[client.Topic][client.Channel] = true
			h.logger.Debug("client registered for %s (total clients: %d)", client.Topic, len(h.clients[client.Topic]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.Topic]; exists {
				delete(clients, client.Channel)
				h.logger.Debug("client unregistered from %s (remaining clients: %d)", client.Topic, len(clients))
				if len(clients) == 0 {
					delete(h.clients, client.Topic)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.Topic] {
				select {
				case clientChan <- event:
				default:
					h.logger.Warn("client channel full for %s, skipping event", event.Topic)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast queues an event for every client of its topic. A full queue drops the event.
func (h *SSEHub) Broadcast(event RunEvent) {
	if event.Topic == "" {
		event.Topic = TopicReports
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event: %s", event.EventType)
	}
}

// Close stops the dispatch loop
func (h *SSEHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// HandleSSE streams events for ?topic= (default "reports")
func (h *SSEHub) HandleSSE(c *gin.Context) {
	topic := c.DefaultQuery("topic", TopicReports)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	clientChan := make(chan RunEvent, 10)
	select {
	case h.register <- SSEClient{Topic: topic, Channel: clientChan}:
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SSE hub registration failed"})
		return
	}
	defer func() {
		select {
		case h.unregister <- SSEClient{Topic: topic, Channel: clientChan}:
		default:
		}
	}()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-clientChan:
			eventJSON, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.EventType, string(eventJSON))
			return true

		case <-time.After(30 * time.Second):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// ClientCount returns the number of active clients for a topic
func (h *SSEHub) ClientCount(topic string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[topic])
}
