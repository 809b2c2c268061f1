// Package websocket fans job progress events out to live subscribers. Status
// polling stays read-only; the hub is strictly a mirror of what the worker
// writes to the job record.
package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/reelcraft/api/internal/model"
)

// Hub tracks per-job subscriber connections.
type Hub struct {
	mu        sync.RWMutex
	jobs      map[string]map[*websocket.Conn]bool
	broadcast chan outbound
	done      chan struct{}
}

type outbound struct {
	jobID   string
	payload interface{}
}

func NewHub() *Hub {
	return &Hub{
		jobs:      make(map[string]map[*websocket.Conn]bool),
		broadcast: make(chan outbound, 64),
		done:      make(chan struct{}),
	}
}

// Run pumps broadcast messages to subscribers until Stop.
func (h *Hub) Run() {
	for {
		select {
		case msg := <-h.broadcast:
			h.send(msg)
		case <-h.done:
			return
		}
	}
}

// Stop shuts the pump down.
func (h *Hub) Stop() {
	close(h.done)
}

// HandleConnection registers a subscriber for one job and blocks until the
// connection closes. Client frames are drained and ignored except pings.
func (h *Hub) HandleConnection(conn *websocket.Conn, jobID string) {
	h.mu.Lock()
	if h.jobs[jobID] == nil {
		h.jobs[jobID] = make(map[*websocket.Conn]bool)
	}
	h.jobs[jobID][conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.jobs[jobID], conn)
		if len(h.jobs[jobID]) == 0 {
			delete(h.jobs, jobID)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == model.WSMessageTypePing {
			_ = conn.WriteJSON(map[string]string{"type": model.WSMessageTypePong})
		}
	}
}

// BroadcastProgress publishes a progress event for a job.
func (h *Hub) BroadcastProgress(jobID string, percent int, status model.JobStatus, step string) {
	if h == nil {
		return
	}
	h.publish(jobID, model.WSProgressMessage{
		Type:        model.WSMessageTypeProgress,
		JobID:       jobID,
		Progress:    percent,
		Status:      status,
		CurrentStep: step,
	})
}

// BroadcastComplete publishes the final status view for a job.
func (h *Hub) BroadcastComplete(jobID string, result model.JobStatusResponse) {
	if h == nil {
		return
	}
	h.publish(jobID, model.WSCompleteMessage{
		Type:   model.WSMessageTypeComplete,
		JobID:  jobID,
		Result: result,
	})
}

// BroadcastError publishes a terminal failure for a job.
func (h *Hub) BroadcastError(jobID, code, message string) {
	if h == nil {
		return
	}
	h.publish(jobID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{Code: code, Message: message},
	})
}

func (h *Hub) publish(jobID string, payload interface{}) {
	select {
	case h.broadcast <- outbound{jobID: jobID, payload: payload}:
	default:
		// Subscribers lagging behind lose events; the job record remains the
		// source of truth.
		log.Printf("Dropping websocket event for job %s: broadcast queue full", jobID)
	}
}

func (h *Hub) send(msg outbound) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.jobs[msg.jobID]))
	for conn := range h.jobs[msg.jobID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(msg.payload); err != nil {
			conn.Close()
		}
	}
}
