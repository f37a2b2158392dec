package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/razvandimescu/molesk/internal/logger"
)

const (
	keepaliveInterval = 10 * time.Second
	replayBufferSize  = 50
)

// liveMessage is the JSON payload of every live-reload event.
type liveMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count,omitempty"`
}

// eventRecord stores a single SSE event with ID for replay
type eventRecord struct {
	id   string
	data string
}

// eventBuffer keeps the most recent events so reconnecting clients can
// catch up via Last-Event-ID.
type eventBuffer struct {
	mu      sync.RWMutex
	events  []eventRecord
	counter uint64
	maxSize int
}

func newEventBuffer(maxSize int) *eventBuffer {
	return &eventBuffer{
		events:  make([]eventRecord, 0, maxSize),
		maxSize: maxSize,
	}
}

// add assigns an event ID, stores the event, and returns the ID
func (eb *eventBuffer) add(data string) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.counter++
	id := fmt.Sprintf("%d", eb.counter)

	if len(eb.events) >= eb.maxSize {
		eb.events = eb.events[1:]
	}
	eb.events = append(eb.events, eventRecord{id: id, data: data})
	return id
}

// getAfter returns all events after the specified ID
func (eb *eventBuffer) getAfter(lastID string) []eventRecord {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var result []eventRecord
	foundLast := false
	for _, evt := range eb.events {
		if foundLast {
			result = append(result, evt)
		}
		if evt.id == lastID {
			foundLast = true
		}
	}
	return result
}

// liveHub fans content-change notifications out to connected browsers.
type liveHub struct {
	mu      sync.RWMutex
	clients map[chan string]bool
	buffer  *eventBuffer
	metrics Metrics

	keepalive time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

func newLiveHub(m Metrics) *liveHub {
	return &liveHub{
		clients:   make(map[chan string]bool),
		buffer:    newEventBuffer(replayBufferSize),
		metrics:   m,
		keepalive: keepaliveInterval,
		done:      make(chan struct{}),
	}
}

func (h *liveHub) serveSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("SSE error: ResponseWriter doesn't support flushing")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan string, 10)

	h.mu.Lock()
	h.clients[clientChan] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetLiveClients(count)
	h.broadcastConnectionStatus(count)

	defer func() {
		h.mu.Lock()
		delete(h.clients, clientChan)
		count := len(h.clients)
		h.mu.Unlock()
		h.metrics.SetLiveClients(count)
		h.broadcastConnectionStatus(count)
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		missed := h.buffer.getAfter(lastEventID)
		logger.Debug("Client reconnected with Last-Event-ID %s, replaying %d events", lastEventID, len(missed))
		for _, evt := range missed {
			fmt.Fprintf(w, "id: %s\ndata: %s\n\n", evt.id, evt.data)
		}
		if len(missed) > 0 {
			flusher.Flush()
		}
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case message := <-clientChan:
			if _, err := fmt.Fprintf(w, "%s\n\n", message); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		}
	}
}

// notify records message for replay and offers it to every client. Slow
// clients whose buffers are full miss the message.
func (h *liveHub) notify(message string) {
	id := h.buffer.add(message)
	formatted := fmt.Sprintf("id: %s\ndata: %s", id, message)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for clientChan := range h.clients {
		select {
		case clientChan <- formatted:
		default:
		}
	}
}

func (h *liveHub) send(msg liveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Error marshaling %s message: %v", msg.Type, err)
		return
	}
	h.notify(string(data))
}

func (h *liveHub) broadcastConnectionStatus(count int) {
	h.send(liveMessage{Type: "connection_status", Count: count})
}

func (h *liveHub) contentChanged() {
	h.send(liveMessage{Type: "content_changed"})
}

// close ends every open stream so graceful shutdown is not held up.
func (h *liveHub) close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *liveHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
