package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"nashcrm_backend/internal/email"
	"nashcrm_backend/internal/events"
	"nashcrm_backend/internal/notification/sse"
	"nashcrm_backend/platform/logger"
)

type recordedEvent struct {
	managerID uuid.UUID
	event     sse.Event
}

type fakeNotifier struct {
	published []recordedEvent
}

func (f *fakeNotifier) Publish(managerID uuid.UUID, event sse.Event) {
	f.published = append(f.published, recordedEvent{managerID: managerID, event: event})
}

type fakeSender struct {
	email.NoopSender
	custom []string
}

func (f *fakeSender) SendCustomEmail(_ context.Context, toEmail, subject, _ string) error {
	f.custom = append(f.custom, toEmail+": "+subject)
	return nil
}

type fakeDirectory struct {
	emails map[uuid.UUID]string
}

func (f *fakeDirectory) ManagerEmail(_ context.Context, id uuid.UUID) (string, error) {
	return f.emails[id], nil
}

type fakeMessenger struct {
	sent []string
}

func (f *fakeMessenger) SendLeadReceived(_ context.Context, phoneNumber, _ string) error {
	f.sent = append(f.sent, phoneNumber)
	return nil
}

func newTestModule() (*Module, *fakeNotifier, *fakeSender, *fakeDirectory) {
	notifier := &fakeNotifier{}
	sender := &fakeSender{}
	dir := &fakeDirectory{emails: make(map[uuid.UUID]string)}
	m := NewModule(sender, &fakeMessenger{}, logger.New("test"))
	m.notifier = notifier
	m.SetManagerDirectory(dir)
	return m, notifier, sender, dir
}

func TestLeadCreatedNotifiesAssignedManager(t *testing.T) {
	m, notifier, _, _ := newTestModule()

	manager := uuid.New()
	leadID := uuid.New()
	err := m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		ManagerID: &manager,
		FullName:  "Ivan Petrov",
		Status:    "in_work",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(notifier.published) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.published))
	}
	got := notifier.published[0]
	if got.managerID != manager {
		t.Fatal("expected delivery to the assigned manager")
	}
	if got.event.Type != sse.EventLeadCreated {
		t.Fatalf("expected lead_created, got %s", got.event.Type)
	}
	data := got.event.Data.(map[string]interface{})
	if data["id"] != leadID || data["full_name"] != "Ivan Petrov" || data["status"] != "in_work" {
		t.Fatalf("unexpected payload: %v", data)
	}
}

func TestLeadCreatedUnassignedIsSilent(t *testing.T) {
	m, notifier, _, _ := newTestModule()

	err := m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		FullName:  "Ivan Petrov",
		Status:    "queued",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notifier.published) != 0 {
		t.Fatal("expected no notification for an unassigned lead")
	}
}

func TestLeadCreatedConfirmsToClient(t *testing.T) {
	m, _, _, _ := newTestModule()
	messenger := &fakeMessenger{}
	m.messenger = messenger

	err := m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		FullName:  "Ivan Petrov",
		Phone:     "380671234567",
		Status:    "queued",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(messenger.sent) != 1 || messenger.sent[0] != "380671234567" {
		t.Fatalf("expected one confirmation to the client phone, got %v", messenger.sent)
	}
}

func TestUrgentTaskSendsAlertMail(t *testing.T) {
	m, notifier, sender, dir := newTestModule()

	manager := uuid.New()
	dir.emails[manager] = "manager@example.com"

	err := m.Handle(context.Background(), events.ClientTaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    uuid.New(),
		ClientID:  uuid.New(),
		ManagerID: &manager,
		Title:     "Urgent contact: Ivan Petrov",
		Priority:  "urgent",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(notifier.published) != 1 {
		t.Fatal("expected an SSE notification")
	}
	if len(sender.custom) != 1 {
		t.Fatalf("expected 1 alert mail, got %d", len(sender.custom))
	}
}

func TestMediumTaskSkipsMail(t *testing.T) {
	m, _, sender, dir := newTestModule()

	manager := uuid.New()
	dir.emails[manager] = "manager@example.com"

	err := m.Handle(context.Background(), events.ClientTaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    uuid.New(),
		ClientID:  uuid.New(),
		ManagerID: &manager,
		Title:     "Reactivation: Ivan Petrov",
		Priority:  "medium",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.custom) != 0 {
		t.Fatal("expected no mail for a medium priority task")
	}
}
