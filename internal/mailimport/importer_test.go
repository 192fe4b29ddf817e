package mailimport

import (
	"context"
	"errors"
	"testing"
	"time"

	leadtransport "nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/logger"
)

type fakeMailbox struct {
	messages  []Message
	processed []int
	closed    bool
	fetchErr  error
}

func (m *fakeMailbox) Fetch() ([]Message, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.messages, nil
}

func (m *fakeMailbox) MarkProcessed(uid int) error {
	m.processed = append(m.processed, uid)
	return nil
}

func (m *fakeMailbox) Close() error {
	m.closed = true
	return nil
}

type fakeLeadCreator struct {
	created  []leadtransport.CreateLeadRequest
	existing map[string]bool
}

func (f *fakeLeadCreator) Create(_ context.Context, req leadtransport.CreateLeadRequest) (leadtransport.LeadResponse, error) {
	f.created = append(f.created, req)
	return leadtransport.LeadResponse{}, nil
}

func (f *fakeLeadCreator) HasDeliveryNumber(_ context.Context, deliveryNumber string) (bool, error) {
	return f.existing[deliveryNumber], nil
}

type fakeSettings struct {
	rows []Settings
}

func (f *fakeSettings) ListEnabled(context.Context) ([]Settings, error) {
	return f.rows, nil
}

type testMailConfig struct {
	enabled bool
	user    string
}

func (c testMailConfig) GetIMAPHost() string                  { return "imap.test" }
func (c testMailConfig) GetIMAPPort() int                     { return 993 }
func (c testMailConfig) GetIMAPUser() string                  { return c.user }
func (c testMailConfig) GetIMAPPassword() string              { return "secret" }
func (c testMailConfig) GetIMAPFolder() string                { return "INBOX" }
func (c testMailConfig) GetMailImportInterval() time.Duration { return time.Minute }
func (c testMailConfig) IsMailImportEnabled() bool            { return c.enabled }

func newTestImporter(box *fakeMailbox, creator *fakeLeadCreator, settings SettingsSource) *Importer {
	imp := New(testMailConfig{enabled: true, user: "crm@test"}, settings, creator, logger.New("test"))
	imp.dial = func(Settings) (Mailbox, error) { return box, nil }
	return imp
}

func leadMessage(uid int, leadID string) Message {
	return Message{
		UID:     uid,
		Subject: "New Lead from website",
		Sender:  "forms@site.example",
		Body: "**form_id:** 77\n**Lead Id:** " + leadID +
			"\n**Name:** Taras Melnyk\n**Phone Number:** 0671234567\n",
	}
}

func TestRunOnceCreatesLeads(t *testing.T) {
	box := &fakeMailbox{messages: []Message{leadMessage(1, "L-100"), leadMessage(2, "L-101")}}
	creator := &fakeLeadCreator{existing: map[string]bool{}}
	imp := newTestImporter(box, creator, nil)

	if err := imp.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(creator.created) != 2 {
		t.Fatalf("created %d leads, want 2", len(creator.created))
	}
	got := creator.created[0]
	if got.DeliveryNumber != "L-100" {
		t.Fatalf("delivery number = %q", got.DeliveryNumber)
	}
	if got.OrderNumber != "77" {
		t.Fatalf("order number = %q", got.OrderNumber)
	}
	if got.Source != "email" {
		t.Fatalf("source = %q", got.Source)
	}
	if len(box.processed) != 2 {
		t.Fatalf("marked %d messages, want 2", len(box.processed))
	}
	if !box.closed {
		t.Fatal("mailbox was not closed")
	}
}

func TestRunOnceSkipsDuplicates(t *testing.T) {
	box := &fakeMailbox{messages: []Message{leadMessage(1, "L-100")}}
	creator := &fakeLeadCreator{existing: map[string]bool{"L-100": true}}
	imp := newTestImporter(box, creator, nil)

	if err := imp.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(creator.created) != 0 {
		t.Fatalf("created %d leads, want none", len(creator.created))
	}
	if len(box.processed) != 1 {
		t.Fatal("duplicate should still be marked processed")
	}
}

func TestRunOnceIgnoresNonLeadMail(t *testing.T) {
	box := &fakeMailbox{messages: []Message{{
		UID:     5,
		Subject: "Weekly digest",
		Sender:  "friend@site.example",
		Body:    "how are you",
	}}}
	creator := &fakeLeadCreator{existing: map[string]bool{}}
	imp := newTestImporter(box, creator, nil)

	if err := imp.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(creator.created) != 0 {
		t.Fatalf("created %d leads, want none", len(creator.created))
	}
}

func TestDatabaseSettingsWinOverFallback(t *testing.T) {
	var dialed []string
	imp := New(testMailConfig{enabled: true, user: "fallback@test"},
		&fakeSettings{rows: []Settings{{Email: "db@test", Enabled: true}}},
		&fakeLeadCreator{existing: map[string]bool{}}, logger.New("test"))
	imp.dial = func(s Settings) (Mailbox, error) {
		dialed = append(dialed, s.Email)
		return &fakeMailbox{}, nil
	}

	if err := imp.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(dialed) != 1 || dialed[0] != "db@test" {
		t.Fatalf("dialed %v, want the database mailbox only", dialed)
	}
}

func TestDisabledImportDialsNothing(t *testing.T) {
	dialedCount := 0
	imp := New(testMailConfig{enabled: false, user: "fallback@test"}, nil,
		&fakeLeadCreator{existing: map[string]bool{}}, logger.New("test"))
	imp.dial = func(Settings) (Mailbox, error) {
		dialedCount++
		return &fakeMailbox{}, nil
	}

	if err := imp.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if dialedCount != 0 {
		t.Fatal("disabled importer should not dial")
	}
}

func TestFetchErrorDoesNotFailTheRun(t *testing.T) {
	box := &fakeMailbox{fetchErr: errors.New("connection reset")}
	creator := &fakeLeadCreator{existing: map[string]bool{}}
	imp := newTestImporter(box, creator, nil)

	if err := imp.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce should swallow per-mailbox errors, got %v", err)
	}
}
