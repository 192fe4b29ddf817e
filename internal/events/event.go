// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"nashcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published after a new lead row is committed.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	ManagerID  *uuid.UUID `json:"managerId,omitempty"`
	FullName   string     `json:"fullName"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email,omitempty"`
	Source     string     `json:"source,omitempty"`
	Status     string     `json:"status"`
	PriceCents int64      `json:"priceCents"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadUpdated is published after any committed change to a lead that is not
// a pure status transition.
type LeadUpdated struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	ManagerID *uuid.UUID `json:"managerId,omitempty"`
	FullName  string     `json:"fullName"`
	Phone     string     `json:"phone"`
	Status    string     `json:"status"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// LeadStatusChanged is published after a committed status transition.
type LeadStatusChanged struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	ManagerID       *uuid.UUID `json:"managerId,omitempty"`
	FullName        string     `json:"fullName"`
	Phone           string     `json:"phone"`
	OldStatus       string     `json:"oldStatus"`
	NewStatus       string     `json:"newStatus"`
	PriceCents      int64      `json:"priceCents"`
	ActualCashCents *int64     `json:"actualCashCents,omitempty"`
	ChangedAt       time.Time  `json:"changedAt"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// PaymentRecorded is published after a payment operation row is committed.
type PaymentRecorded struct {
	BaseEvent
	OperationID   uuid.UUID `json:"operationId"`
	LeadID        uuid.UUID `json:"leadId"`
	LeadStatus    string    `json:"leadStatus"`
	LeadPhone     string    `json:"leadPhone"`
	OperationType string    `json:"operationType"`
	AmountCents   int64     `json:"amountCents"`
	Comment       string    `json:"comment,omitempty"`
}

func (e PaymentRecorded) EventName() string { return "leads.payment.recorded" }

// =============================================================================
// Clients Domain Events
// =============================================================================

// ClientSaved is published after a client row is created or updated.
type ClientSaved struct {
	BaseEvent
	ClientID uuid.UUID `json:"clientId"`
	Phone    string    `json:"phone"`
	FullName string    `json:"fullName"`
	IsNew    bool      `json:"isNew"`
}

func (e ClientSaved) EventName() string { return "clients.client.saved" }

// ClientTaskCreated is published when a follow-up task is generated for a
// client, either by the pipeline or the scheduler.
type ClientTaskCreated struct {
	BaseEvent
	TaskID    uuid.UUID  `json:"taskId"`
	ClientID  uuid.UUID  `json:"clientId"`
	ManagerID *uuid.UUID `json:"managerId,omitempty"`
	Title     string     `json:"title"`
	Priority  string     `json:"priority"`
}

func (e ClientTaskCreated) EventName() string { return "clients.task.created" }
