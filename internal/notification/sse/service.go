// Package sse provides Server-Sent Events support for real-time manager
// notifications.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nashcrm_backend/platform/logger"
)

// EventType names the SSE event kinds pushed to managers.
type EventType string

const (
	EventLeadCreated       EventType = "lead_created"
	EventLeadStatusChanged EventType = "lead_status_changed"
	EventTaskCreated       EventType = "task_created"
)

// Event is an SSE event payload.
type Event struct {
	Type    EventType   `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type client struct {
	managerID uuid.UUID
	events    chan Event
}

// Service manages SSE connections and per-manager event delivery.
type Service struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
}

func New(log *logger.Logger) *Service {
	return &Service{
		log:     log,
		clients: make(map[uuid.UUID][]*client),
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	s.clients[c.managerID] = append(s.clients[c.managerID], c)
	s.mu.Unlock()
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.managerID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.managerID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.managerID]) == 0 {
		delete(s.clients, c.managerID)
	}

	close(c.events)
}

// Publish delivers an event to every open connection of one manager. A slow
// connection drops the event rather than blocking the publisher.
func (s *Service) Publish(managerID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := s.clients[managerID]
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event buffer full", "managerId", managerID.String())
		}
	}
}

// ConnectionCount reports open connections for a manager.
func (s *Service) ConnectionCount(managerID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[managerID])
}

// Handler returns a gin handler holding an SSE connection open for the
// authenticated manager.
func (s *Service) Handler(getManagerID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		managerID, ok := getManagerID(c)
		if !ok {
			c.AbortWithStatus(401)
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			managerID: managerID,
			events:    make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"managerId": managerID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close drops every connection.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
