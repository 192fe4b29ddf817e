// Package pipeline reacts to lead and payment events with the follow-on
// effects that keep the CRM consistent: client cards, payment records,
// queue advancement, metric refreshes and report cache invalidation.
// Subscribing here inverts the dependency: the leads and clients services
// publish facts and never call each other's side effects directly.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"nashcrm_backend/internal/clients/metrics"
	clientrepo "nashcrm_backend/internal/clients/repository"
	"nashcrm_backend/internal/events"
	"nashcrm_backend/internal/leads/domain"
	leadtransport "nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/apperr"
	"nashcrm_backend/platform/cache"
	"nashcrm_backend/platform/logger"
)

// LeadOps is the slice of the leads service the pipeline drives.
type LeadOps interface {
	EnsureExpectedPayment(ctx context.Context, leadID uuid.UUID) error
	RecordCompletionPayment(ctx context.Context, leadID uuid.UUID, actualCashCents *int64) error
	AutoCompleteIfPaid(ctx context.Context, leadID uuid.UUID) (bool, error)
	AssignNextLead(ctx context.Context, managerID uuid.UUID) (leadtransport.LeadResponse, error)
}

// ClientOps is the slice of the clients service the pipeline drives.
type ClientOps interface {
	FindOrCreate(ctx context.Context, phone, fullName string, email *string) (clientrepo.Client, bool, error)
	Card(ctx context.Context, clientID uuid.UUID) (clientrepo.Client, error)
	AssignManager(ctx context.Context, clientID uuid.UUID, managerID *uuid.UUID) error
	RefreshMetrics(ctx context.Context, phone string) (before, after clientrepo.Client, err error)
	EnsureUrgentContactTask(ctx context.Context, client clientrepo.Client) (bool, error)
	EnsureChurnRiskTask(ctx context.Context, client clientrepo.Client) (bool, error)
	CompleteContactTasks(ctx context.Context, clientID uuid.UUID) (int64, error)
}

// ReportCache invalidates derived report data after writes.
type ReportCache interface {
	InvalidateEntity(ctx context.Context, entity cache.Entity)
}

// Module wires the reactive effects onto the event bus.
type Module struct {
	leads   LeadOps
	clients ClientOps
	cache   ReportCache
	log     *logger.Logger

	mu         sync.Mutex
	processing map[uuid.UUID]struct{}
}

func NewModule(leads LeadOps, clients ClientOps, reportCache ReportCache, log *logger.Logger) *Module {
	return &Module{
		leads:      leads,
		clients:    clients,
		cache:      reportCache,
		log:        log,
		processing: make(map[uuid.UUID]struct{}),
	}
}

// RegisterHandlers subscribes the pipeline to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadUpdated{}.EventName(), m)
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), m)
	bus.Subscribe(events.PaymentRecorded{}.EventName(), m)
	bus.Subscribe(events.ClientSaved{}.EventName(), m)
}

// Handle routes events to the appropriate effect.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.LeadUpdated:
		return m.handleLeadUpdated(ctx, e)
	case events.LeadStatusChanged:
		return m.handleStatusChanged(ctx, e)
	case events.PaymentRecorded:
		return m.handlePaymentRecorded(ctx, e)
	case events.ClientSaved:
		return m.handleClientSaved(ctx, e)
	default:
		return nil
	}
}

// handleLeadCreated keeps the client base in sync with incoming leads: every
// lead gets a client card behind its phone, a fresh card inherits the lead's
// manager, a queued lead is promoted when its manager is idle, and the card
// is reclassified so repeat enquiries heat the contact up.
func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	if !m.begin(e.LeadID) {
		return nil
	}
	defer m.end(e.LeadID)

	client, created, err := m.clients.FindOrCreate(ctx, e.Phone, e.FullName, optional(e.Email))
	if err != nil {
		m.log.EffectError("sync client from lead", err)
		return err
	}
	if created && e.ManagerID != nil {
		if err := m.clients.AssignManager(ctx, client.ID, e.ManagerID); err != nil {
			m.log.EffectError("assign manager to new client", err)
		}
	}

	if domain.Status(e.Status) == domain.StatusQueued {
		m.assignNext(ctx, e.ManagerID)
	}
	m.refreshClient(ctx, e.Phone)

	m.cache.InvalidateEntity(ctx, cache.EntityLead)
	m.cache.InvalidateEntity(ctx, cache.EntityClient)
	return nil
}

func (m *Module) handleLeadUpdated(ctx context.Context, e events.LeadUpdated) error {
	m.refreshClient(ctx, e.Phone)
	m.cache.InvalidateEntity(ctx, cache.EntityLead)
	return nil
}

func (m *Module) handleStatusChanged(ctx context.Context, e events.LeadStatusChanged) error {
	if !m.begin(e.LeadID) {
		return nil
	}
	defer m.end(e.LeadID)

	switch domain.Status(e.NewStatus) {
	case domain.StatusOnTheWay:
		if err := m.leads.EnsureExpectedPayment(ctx, e.LeadID); err != nil {
			m.log.EffectError("ensure expected payment", err)
			return err
		}
	case domain.StatusCompleted:
		if err := m.leads.RecordCompletionPayment(ctx, e.LeadID, e.ActualCashCents); err != nil {
			m.log.EffectError("record completion payment", err)
			return err
		}
		m.assignNext(ctx, e.ManagerID)
		m.refreshClient(ctx, e.Phone)
	case domain.StatusDeclined:
		m.assignNext(ctx, e.ManagerID)
		m.refreshClient(ctx, e.Phone)
	}

	m.cache.InvalidateEntity(ctx, cache.EntityLead)
	return nil
}

// handlePaymentRecorded reacts to money coming in: outreach tasks close,
// metrics refresh, and a fully paid lead completes on its own.
func (m *Module) handlePaymentRecorded(ctx context.Context, e events.PaymentRecorded) error {
	m.cache.InvalidateEntity(ctx, cache.EntityPayment)
	if e.OperationType != "received" {
		return nil
	}

	if m.begin(e.LeadID) {
		completed, err := m.leads.AutoCompleteIfPaid(ctx, e.LeadID)
		if err != nil {
			m.log.EffectError("auto-complete paid lead", err)
		}
		if completed {
			m.log.StatusChange(e.LeadID.String(), e.LeadStatus, string(domain.StatusCompleted))
		}
		m.end(e.LeadID)
	}

	_, after, err := m.clients.RefreshMetrics(ctx, e.LeadPhone)
	if err != nil {
		m.log.EffectError("refresh client metrics", err)
		return nil
	}
	if _, err := m.clients.CompleteContactTasks(ctx, after.ID); err != nil {
		m.log.EffectError("complete contact tasks", err)
	}
	return nil
}

// assignNext hands the manager their next queued lead once the current one
// leaves the board.
func (m *Module) assignNext(ctx context.Context, managerID *uuid.UUID) {
	if managerID == nil {
		return
	}
	if _, err := m.leads.AssignNextLead(ctx, *managerID); err != nil {
		if apperr.GetKind(err) != apperr.KindNotFound {
			m.log.EffectError("assign next queued lead", err)
		}
	}
}

// refreshClient recomputes the client behind a phone and escalates a contact
// that just turned hot with an urgent outreach task.
func (m *Module) refreshClient(ctx context.Context, phone string) {
	before, after, err := m.clients.RefreshMetrics(ctx, phone)
	if err != nil {
		m.log.EffectError("refresh client metrics", err)
		return
	}
	if after.Temperature == metrics.TemperatureHot && before.Temperature != metrics.TemperatureHot {
		if _, err := m.clients.EnsureUrgentContactTask(ctx, after); err != nil {
			m.log.EffectError("create urgent contact task", err)
		}
	}
	m.cache.InvalidateEntity(ctx, cache.EntityClient)
}

// handleClientSaved runs the retention check every time a card is created
// or its metrics change: a buyer gone quiet too long gets a reactivation
// task. The handler never calls RefreshMetrics, which publishes this event.
func (m *Module) handleClientSaved(ctx context.Context, e events.ClientSaved) error {
	client, err := m.clients.Card(ctx, e.ClientID)
	if err != nil {
		m.log.EffectError("load client card", err)
		return nil
	}
	if _, err := m.clients.EnsureChurnRiskTask(ctx, client); err != nil {
		m.log.EffectError("create churn risk task", err)
	}
	return nil
}

// begin claims a lead for effect processing so a status change produced by
// the pipeline itself does not re-enter it. Returns false when the lead is
// already being processed.
func (m *Module) begin(leadID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.processing[leadID]; busy {
		return false
	}
	m.processing[leadID] = struct{}{}
	return true
}

func (m *Module) end(leadID uuid.UUID) {
	m.mu.Lock()
	delete(m.processing, leadID)
	m.mu.Unlock()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
