package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"nashcrm_backend/internal/clients/metrics"
	clientrepo "nashcrm_backend/internal/clients/repository"
	"nashcrm_backend/internal/events"
	leadtransport "nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/apperr"
	"nashcrm_backend/platform/cache"
	"nashcrm_backend/platform/logger"
)

type fakeLeadOps struct {
	expectedEnsured   []uuid.UUID
	completionsBooked []uuid.UUID
	autoCompleted     []uuid.UUID
	autoCompleteHit   bool
	assignedManagers  []uuid.UUID
	assignNextErr     error
}

func (f *fakeLeadOps) EnsureExpectedPayment(_ context.Context, leadID uuid.UUID) error {
	f.expectedEnsured = append(f.expectedEnsured, leadID)
	return nil
}

func (f *fakeLeadOps) RecordCompletionPayment(_ context.Context, leadID uuid.UUID, _ *int64) error {
	f.completionsBooked = append(f.completionsBooked, leadID)
	return nil
}

func (f *fakeLeadOps) AutoCompleteIfPaid(_ context.Context, leadID uuid.UUID) (bool, error) {
	f.autoCompleted = append(f.autoCompleted, leadID)
	return f.autoCompleteHit, nil
}

func (f *fakeLeadOps) AssignNextLead(_ context.Context, managerID uuid.UUID) (leadtransport.LeadResponse, error) {
	f.assignedManagers = append(f.assignedManagers, managerID)
	return leadtransport.LeadResponse{}, f.assignNextErr
}

type fakeClientOps struct {
	clients     map[string]clientrepo.Client
	created     []string
	managersSet []uuid.UUID
	refreshed   []string
	before      clientrepo.Client
	after       clientrepo.Client
	card        clientrepo.Client
	cardErr     error
	urgentTasks []uuid.UUID
	churnTasks  []uuid.UUID
	tasksClosed []uuid.UUID
}

func newFakeClientOps() *fakeClientOps {
	return &fakeClientOps{clients: make(map[string]clientrepo.Client)}
}

func (f *fakeClientOps) FindOrCreate(_ context.Context, phone, fullName string, _ *string) (clientrepo.Client, bool, error) {
	if c, ok := f.clients[phone]; ok {
		return c, false, nil
	}
	c := clientrepo.Client{ID: uuid.New(), Phone: phone, FullName: fullName}
	f.clients[phone] = c
	f.created = append(f.created, phone)
	return c, true, nil
}

func (f *fakeClientOps) Card(_ context.Context, clientID uuid.UUID) (clientrepo.Client, error) {
	if f.cardErr != nil {
		return clientrepo.Client{}, f.cardErr
	}
	c := f.card
	c.ID = clientID
	return c, nil
}

func (f *fakeClientOps) AssignManager(_ context.Context, _ uuid.UUID, managerID *uuid.UUID) error {
	f.managersSet = append(f.managersSet, *managerID)
	return nil
}

func (f *fakeClientOps) RefreshMetrics(_ context.Context, phone string) (clientrepo.Client, clientrepo.Client, error) {
	f.refreshed = append(f.refreshed, phone)
	return f.before, f.after, nil
}

func (f *fakeClientOps) EnsureUrgentContactTask(_ context.Context, client clientrepo.Client) (bool, error) {
	f.urgentTasks = append(f.urgentTasks, client.ID)
	return true, nil
}

func (f *fakeClientOps) EnsureChurnRiskTask(_ context.Context, client clientrepo.Client) (bool, error) {
	f.churnTasks = append(f.churnTasks, client.ID)
	return false, nil
}

func (f *fakeClientOps) CompleteContactTasks(_ context.Context, clientID uuid.UUID) (int64, error) {
	f.tasksClosed = append(f.tasksClosed, clientID)
	return 1, nil
}

type fakeCache struct {
	invalidated []cache.Entity
}

func (f *fakeCache) InvalidateEntity(_ context.Context, entity cache.Entity) {
	f.invalidated = append(f.invalidated, entity)
}

func newTestModule(leads *fakeLeadOps, clients *fakeClientOps) (*Module, *fakeCache) {
	c := &fakeCache{}
	return NewModule(leads, clients, c, logger.New("test")), c
}

func TestLeadCreatedSyncsClient(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	m, rc := newTestModule(leads, clients)

	manager := uuid.New()
	err := m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		ManagerID: &manager,
		FullName:  "Ivan Petrov",
		Phone:     "380671234567",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(clients.created) != 1 || clients.created[0] != "380671234567" {
		t.Fatalf("expected client created for the lead phone, got %v", clients.created)
	}
	if len(clients.managersSet) != 1 || clients.managersSet[0] != manager {
		t.Fatal("expected the new client pinned to the lead's manager")
	}
	if len(rc.invalidated) == 0 {
		t.Fatal("expected report cache invalidation")
	}
}

func TestQueuedLeadTriggersAutoAdvance(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	m, _ := newTestModule(leads, clients)

	manager := uuid.New()
	err := m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		ManagerID: &manager,
		Phone:     "380671234567",
		Status:    "queued",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(leads.assignedManagers) != 1 || leads.assignedManagers[0] != manager {
		t.Fatal("expected an auto-advance attempt for the queued lead's manager")
	}
	if len(clients.refreshed) != 1 {
		t.Fatal("expected client metrics refreshed on lead creation")
	}
}

func TestLeadCreatedExistingClientKeepsManager(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	clients.clients["380671234567"] = clientrepo.Client{ID: uuid.New(), Phone: "380671234567"}
	m, _ := newTestModule(leads, clients)

	manager := uuid.New()
	err := m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		ManagerID: &manager,
		Phone:     "380671234567",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(clients.managersSet) != 0 {
		t.Fatal("expected the existing client's manager untouched")
	}
}

func TestShippingCreatesExpectedPayment(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	m, _ := newTestModule(leads, clients)

	leadID := uuid.New()
	err := m.Handle(context.Background(), events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		OldStatus: "warehouse_ready",
		NewStatus: "on_the_way",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(leads.expectedEnsured) != 1 || leads.expectedEnsured[0] != leadID {
		t.Fatal("expected an expected-payment record for the shipped lead")
	}
}

func TestCompletionBooksPaymentAndAdvancesQueue(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	clients.before = clientrepo.Client{Temperature: metrics.TemperatureWarm}
	clients.after = clientrepo.Client{Temperature: metrics.TemperatureCustomer}
	m, _ := newTestModule(leads, clients)

	leadID := uuid.New()
	manager := uuid.New()
	err := m.Handle(context.Background(), events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		ManagerID: &manager,
		Phone:     "380671234567",
		OldStatus: "on_the_way",
		NewStatus: "completed",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(leads.completionsBooked) != 1 {
		t.Fatal("expected completion payment booked")
	}
	if len(leads.assignedManagers) != 1 || leads.assignedManagers[0] != manager {
		t.Fatal("expected the manager handed their next lead")
	}
	if len(clients.refreshed) != 1 {
		t.Fatal("expected client metrics refreshed")
	}
	if len(clients.urgentTasks) != 0 {
		t.Fatal("expected no escalation without a hot transition")
	}
}

func TestDeclineAdvancesQueueQuietlyOnEmptyQueue(t *testing.T) {
	leads := &fakeLeadOps{assignNextErr: apperr.NotFound("queue is empty")}
	clients := newFakeClientOps()
	m, _ := newTestModule(leads, clients)

	manager := uuid.New()
	err := m.Handle(context.Background(), events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		ManagerID: &manager,
		Phone:     "380671234567",
		OldStatus: "in_work",
		NewStatus: "declined",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(leads.assignedManagers) != 1 {
		t.Fatal("expected an assign-next attempt")
	}
	if len(leads.completionsBooked) != 0 {
		t.Fatal("expected no payment booked on decline")
	}
}

func TestHotEscalationCreatesUrgentTask(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	hotClient := clientrepo.Client{ID: uuid.New(), Temperature: metrics.TemperatureHot}
	clients.before = clientrepo.Client{Temperature: metrics.TemperatureWarm}
	clients.after = hotClient
	m, _ := newTestModule(leads, clients)

	err := m.Handle(context.Background(), events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		Phone:     "380671234567",
		OldStatus: "in_work",
		NewStatus: "declined",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(clients.urgentTasks) != 1 || clients.urgentTasks[0] != hotClient.ID {
		t.Fatal("expected an urgent contact task for the newly hot client")
	}
}

func TestReceivedPaymentAutoCompletesAndClosesTasks(t *testing.T) {
	leads := &fakeLeadOps{autoCompleteHit: true}
	clients := newFakeClientOps()
	card := clientrepo.Client{ID: uuid.New(), Temperature: metrics.TemperatureCustomer}
	clients.before = card
	clients.after = card
	m, rc := newTestModule(leads, clients)

	leadID := uuid.New()
	err := m.Handle(context.Background(), events.PaymentRecorded{
		BaseEvent:     events.NewBaseEvent(),
		OperationID:   uuid.New(),
		LeadID:        leadID,
		LeadStatus:    "on_the_way",
		LeadPhone:     "380671234567",
		OperationType: "received",
		AmountCents:   100000,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(leads.autoCompleted) != 1 || leads.autoCompleted[0] != leadID {
		t.Fatal("expected auto-completion attempt")
	}
	if len(clients.tasksClosed) != 1 || clients.tasksClosed[0] != card.ID {
		t.Fatal("expected outreach tasks closed for the paying client")
	}
	if len(rc.invalidated) == 0 || rc.invalidated[0] != cache.EntityPayment {
		t.Fatal("expected payment cache invalidation")
	}
}

func TestExpectedPaymentOnlyInvalidatesCache(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	m, rc := newTestModule(leads, clients)

	err := m.Handle(context.Background(), events.PaymentRecorded{
		BaseEvent:     events.NewBaseEvent(),
		OperationID:   uuid.New(),
		LeadID:        uuid.New(),
		OperationType: "expected",
		AmountCents:   100000,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(leads.autoCompleted) != 0 {
		t.Fatal("expected no auto-completion for an expected record")
	}
	if len(rc.invalidated) != 1 {
		t.Fatal("expected a single cache invalidation")
	}
}

func TestSavedClientGetsChurnRiskCheck(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	recency := 120
	clients.card = clientrepo.Client{TotalOrders: 3, RFMRecency: &recency}
	m, _ := newTestModule(leads, clients)

	clientID := uuid.New()
	err := m.Handle(context.Background(), events.ClientSaved{
		BaseEvent: events.NewBaseEvent(),
		ClientID:  clientID,
		Phone:     "380671234567",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(clients.churnTasks) != 1 || clients.churnTasks[0] != clientID {
		t.Fatal("expected a churn risk check for the saved client")
	}
}

func TestSavedClientCardLoadFailureIsSwallowed(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	clients.cardErr = errors.New("connection reset")
	m, _ := newTestModule(leads, clients)

	err := m.Handle(context.Background(), events.ClientSaved{
		BaseEvent: events.NewBaseEvent(),
		ClientID:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(clients.churnTasks) != 0 {
		t.Fatal("expected no churn risk check without a card")
	}
}

func TestProcessingGuardStopsReentry(t *testing.T) {
	leads := &fakeLeadOps{}
	clients := newFakeClientOps()
	m, _ := newTestModule(leads, clients)

	leadID := uuid.New()
	m.begin(leadID)
	defer m.end(leadID)

	err := m.Handle(context.Background(), events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		OldStatus: "warehouse_ready",
		NewStatus: "on_the_way",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(leads.expectedEnsured) != 0 {
		t.Fatal("expected no effects while the lead is already being processed")
	}
}
