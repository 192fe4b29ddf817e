// Package notification pushes realtime events to managers over SSE and
// sends alert mail. It subscribes to domain events so the leads and clients
// modules never talk to transports directly.
package notification

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nashcrm_backend/internal/email"
	"nashcrm_backend/internal/events"
	apphttp "nashcrm_backend/internal/http"
	"nashcrm_backend/internal/notification/sse"
	"nashcrm_backend/platform/httpkit"
	"nashcrm_backend/platform/logger"
)

// Notifier delivers an event to one manager's open connections.
type Notifier interface {
	Publish(managerID uuid.UUID, event sse.Event)
}

// ManagerDirectory resolves a manager's email address for alert mail.
type ManagerDirectory interface {
	ManagerEmail(ctx context.Context, id uuid.UUID) (string, error)
}

// ClientMessenger confirms to a client that their enquiry was registered.
// A nil WhatsApp gateway client satisfies it as a no-op.
type ClientMessenger interface {
	SendLeadReceived(ctx context.Context, phoneNumber, clientName string) error
}

// Module wires domain events to SSE topics, alert email and client messaging.
type Module struct {
	sse       *sse.Service
	notifier  Notifier
	sender    email.Sender
	messenger ClientMessenger
	managers  ManagerDirectory
	log       *logger.Logger
}

func NewModule(sender email.Sender, messenger ClientMessenger, log *logger.Logger) *Module {
	s := sse.New(log)
	return &Module{
		sse:       s,
		notifier:  s,
		sender:    sender,
		messenger: messenger,
		log:       log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// SetManagerDirectory wires the manager email lookup used for alert mail.
func (m *Module) SetManagerDirectory(dir ManagerDirectory) {
	m.managers = dir
}

// SSE exposes the connection service for shutdown handling.
func (m *Module) SSE() *sse.Service { return m.sse }

// RegisterRoutes mounts the SSE stream endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.sse.Handler(func(c *gin.Context) (uuid.UUID, bool) {
		identity := httpkit.GetIdentity(c)
		if !identity.IsAuthenticated() {
			return uuid.Nil, false
		}
		return identity.UserID(), true
	}))
}

// RegisterHandlers subscribes the module to the events it relays.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), m)
	bus.Subscribe(events.ClientTaskCreated{}.EventName(), m)
}

// Handle routes events to the appropriate notification.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.LeadStatusChanged:
		return m.handleStatusChanged(e)
	case events.ClientTaskCreated:
		return m.handleTaskCreated(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	if m.messenger != nil && e.Phone != "" {
		if err := m.messenger.SendLeadReceived(ctx, e.Phone, e.FullName); err != nil {
			m.log.EffectError("send lead confirmation", err)
		}
	}

	if e.ManagerID == nil {
		return nil
	}
	m.notifier.Publish(*e.ManagerID, sse.Event{
		Type: sse.EventLeadCreated,
		Data: map[string]interface{}{
			"id":        e.LeadID,
			"full_name": e.FullName,
			"status":    e.Status,
		},
	})
	return nil
}

func (m *Module) handleStatusChanged(e events.LeadStatusChanged) error {
	if e.ManagerID == nil {
		return nil
	}
	m.notifier.Publish(*e.ManagerID, sse.Event{
		Type: sse.EventLeadStatusChanged,
		Data: map[string]interface{}{
			"id":         e.LeadID,
			"full_name":  e.FullName,
			"old_status": e.OldStatus,
			"status":     e.NewStatus,
		},
	})
	return nil
}

// handleTaskCreated pushes the task to its assignee. Urgent tasks
// additionally trigger an alert mail, best-effort.
func (m *Module) handleTaskCreated(ctx context.Context, e events.ClientTaskCreated) error {
	if e.ManagerID == nil {
		return nil
	}
	m.notifier.Publish(*e.ManagerID, sse.Event{
		Type: sse.EventTaskCreated,
		Data: map[string]interface{}{
			"id":       e.TaskID,
			"title":    e.Title,
			"priority": e.Priority,
		},
	})

	if e.Priority != "urgent" || m.managers == nil {
		return nil
	}
	toEmail, err := m.managers.ManagerEmail(ctx, *e.ManagerID)
	if err != nil || toEmail == "" {
		return nil
	}
	if err := m.sender.SendCustomEmail(ctx, toEmail, "Urgent task: "+e.Title,
		"<p>An urgent follow-up task was assigned to you: <strong>"+e.Title+"</strong></p>"); err != nil {
		m.log.EffectError("send urgent task mail", err)
	}
	return nil
}

var _ apphttp.Module = (*Module)(nil)
