package service

import (
	"context"
	"testing"

	"nashcrm_backend/internal/events"
	"nashcrm_backend/internal/leads/domain"
	"nashcrm_backend/internal/leads/repository"
	"nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/apperr"
	"nashcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository implementation for service tests.
type fakeRepo struct {
	leads       map[uuid.UUID]repository.Lead
	payments    map[uuid.UUID][]repository.PaymentOperation
	files       map[uuid.UUID]repository.LeadFile
	freeManager *uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:    make(map[uuid.UUID]repository.Lead),
		payments: make(map[uuid.UUID][]repository.PaymentOperation),
		files:    make(map[uuid.UUID]repository.LeadFile),
	}
}

func (f *fakeRepo) ExistsByDeliveryNumber(_ context.Context, deliveryNumber string) (bool, error) {
	for _, lead := range f.leads {
		if lead.DeliveryNumber != nil && *lead.DeliveryNumber == deliveryNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateFile(_ context.Context, params repository.CreateFileParams) (repository.LeadFile, error) {
	file := repository.LeadFile{
		ID:          uuid.New(),
		LeadID:      params.LeadID,
		FileName:    params.FileName,
		FileKey:     params.FileKey,
		ContentType: params.ContentType,
		SizeBytes:   params.SizeBytes,
		UploadedBy:  params.UploadedBy,
	}
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeRepo) GetFile(_ context.Context, id uuid.UUID) (repository.LeadFile, error) {
	file, ok := f.files[id]
	if !ok {
		return repository.LeadFile{}, repository.ErrNotFound
	}
	return file, nil
}

func (f *fakeRepo) ListFilesByLead(_ context.Context, leadID uuid.UUID) ([]repository.LeadFile, error) {
	out := make([]repository.LeadFile, 0)
	for _, file := range f.files {
		if file.LeadID == leadID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteFile(_ context.Context, id uuid.UUID) error {
	if _, ok := f.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	lead := repository.Lead{
		ID:             uuid.New(),
		FullName:       params.FullName,
		Phone:          params.Phone,
		Email:          params.Email,
		Source:         params.Source,
		PriceCents:     params.PriceCents,
		Status:         params.Status,
		AssignedTo:     params.AssignedTo,
		QueuedPosition: params.QueuedPosition,
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.FullName = params.FullName
	lead.Phone = params.Phone
	lead.PriceCents = params.PriceCents
	lead.AssignedTo = params.AssignedTo
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, actualCash *int64) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Status = status
	if status != string(domain.StatusQueued) {
		lead.QueuedPosition = nil
	}
	if actualCash != nil {
		lead.ActualCashCents = actualCash
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.leads, id)
	return nil
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListLeadsParams) ([]repository.Lead, int, error) {
	out := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		out = append(out, lead)
	}
	return out, len(out), nil
}

func (f *fakeRepo) CreatePayment(_ context.Context, params repository.CreatePaymentParams) (repository.PaymentOperation, error) {
	op := repository.PaymentOperation{
		ID:            uuid.New(),
		LeadID:        params.LeadID,
		OperationType: params.OperationType,
		AmountCents:   params.AmountCents,
		Comment:       params.Comment,
	}
	f.payments[params.LeadID] = append(f.payments[params.LeadID], op)
	return op, nil
}

func (f *fakeRepo) ListPayments(_ context.Context, leadID uuid.UUID) ([]repository.PaymentOperation, error) {
	return f.payments[leadID], nil
}

func (f *fakeRepo) PaymentSnapshot(_ context.Context, leadID uuid.UUID) (domain.PaymentSnapshot, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return domain.PaymentSnapshot{}, repository.ErrNotFound
	}
	snap := domain.PaymentSnapshot{PriceCents: lead.PriceCents}
	for _, op := range f.payments[leadID] {
		snap.HasPaymentRecord = true
		switch op.OperationType {
		case repository.OperationExpected:
			snap.ExpectedCents += op.AmountCents
		case repository.OperationReceived:
			snap.ReceivedCents += op.AmountCents
		}
	}
	return snap, nil
}

func (f *fakeRepo) HasActiveLead(_ context.Context, managerID uuid.UUID) (bool, error) {
	for _, lead := range f.leads {
		if lead.AssignedTo != nil && *lead.AssignedTo == managerID && lead.Status == string(domain.StatusInWork) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ActiveLead(_ context.Context, managerID uuid.UUID) (repository.Lead, error) {
	for _, lead := range f.leads {
		if lead.AssignedTo != nil && *lead.AssignedTo == managerID && lead.Status == string(domain.StatusInWork) {
			return lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (f *fakeRepo) QueuedCount(_ context.Context, managerID uuid.UUID) (int, error) {
	count := 0
	for _, lead := range f.leads {
		if lead.AssignedTo != nil && *lead.AssignedTo == managerID && lead.Status == string(domain.StatusQueued) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) NextQueuedLead(_ context.Context, managerID uuid.UUID) (repository.Lead, error) {
	var (
		best  repository.Lead
		found bool
	)
	for _, lead := range f.leads {
		if lead.AssignedTo == nil || *lead.AssignedTo != managerID || lead.Status != string(domain.StatusQueued) {
			continue
		}
		if !found || lead.CreatedAt.Before(best.CreatedAt) {
			best = lead
			found = true
		}
	}
	if !found {
		return repository.Lead{}, repository.ErrNotFound
	}
	return best, nil
}

func (f *fakeRepo) FreeManager(_ context.Context) (uuid.UUID, error) {
	if f.freeManager == nil {
		return uuid.Nil, repository.ErrNotFound
	}
	return *f.freeManager, nil
}

// recordingBus captures published events for assertions.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(repo *fakeRepo) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(repo, bus, logger.New("test")), bus
}

func TestCreateAssignsFreeManagerDirectlyToWork(t *testing.T) {
	repo := newFakeRepo()
	manager := uuid.New()
	repo.freeManager = &manager
	svc, bus := newTestService(repo)

	resp, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		FullName: "Олена Шевченко",
		Phone:    "067 123 45 67",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if resp.Status != string(domain.StatusInWork) {
		t.Errorf("status = %s, want in_work", resp.Status)
	}
	if resp.AssignedTo == nil || *resp.AssignedTo != manager {
		t.Errorf("assigned to %v, want %s", resp.AssignedTo, manager)
	}
	if resp.Phone != "380671234567" {
		t.Errorf("phone = %s, want canonical 380671234567", resp.Phone)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.LeadCreated); !ok {
		t.Errorf("published %T, want LeadCreated", bus.published[0])
	}
}

func TestCreateQueuesWhenManagerBusy(t *testing.T) {
	repo := newFakeRepo()
	manager := uuid.New()
	repo.freeManager = &manager
	svc, _ := newTestService(repo)

	first, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		FullName: "Перший", Phone: "0501112233",
	})
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if first.Status != string(domain.StatusInWork) {
		t.Fatalf("first lead status = %s, want in_work", first.Status)
	}

	second, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		FullName: "Другий", Phone: "0502223344", AssignedTo: &manager,
	})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.Status != string(domain.StatusQueued) {
		t.Errorf("second lead status = %s, want queued", second.Status)
	}
	if second.QueuedPosition == nil || *second.QueuedPosition != 1 {
		t.Errorf("queued position = %v, want 1", second.QueuedPosition)
	}
}

func TestCreateWithoutManagerStaysQueued(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	resp, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		FullName: "Без менеджера", Phone: "0993334455",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Status != string(domain.StatusQueued) {
		t.Errorf("status = %s, want queued", resp.Status)
	}
	if resp.AssignedTo != nil {
		t.Errorf("assigned to %v, want nil", resp.AssignedTo)
	}
}

func TestCreateRejectsEmptyPhone(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{FullName: "X", Phone: "   "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestChangeStatusRejectionCarriesDetails(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)

	lead, _ := repo.Create(context.Background(), repository.CreateLeadParams{
		FullName: "Тест", Phone: "380501234567",
		Status: string(domain.StatusPreparation), PriceCents: 0,
	})

	_, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{
		Status: string(domain.StatusWarehouseProcessing),
	}, domain.RoleAdmin)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	var appErr *apperr.Error
	if !isAppErr(err, &appErr) || appErr.Details == nil {
		t.Fatal("rejection should carry details")
	}
	if len(bus.published) != 0 {
		t.Errorf("rejected transition published %d events", len(bus.published))
	}
}

func TestChangeStatusIdentityIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)

	lead, _ := repo.Create(context.Background(), repository.CreateLeadParams{
		FullName: "Тест", Phone: "380501234567", Status: string(domain.StatusInWork),
	})

	resp, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{
		Status: string(domain.StatusInWork),
	}, domain.RoleManager)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if resp.Status != string(domain.StatusInWork) {
		t.Errorf("status = %s", resp.Status)
	}
	if len(bus.published) != 0 {
		t.Errorf("identity transition published %d events", len(bus.published))
	}
}

func TestChangeStatusPublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)

	lead, _ := repo.Create(context.Background(), repository.CreateLeadParams{
		FullName: "Тест", Phone: "380501234567", Status: string(domain.StatusQueued),
	})

	resp, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{
		Status: string(domain.StatusInWork),
	}, domain.RoleManager)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if resp.Status != string(domain.StatusInWork) {
		t.Errorf("status = %s, want in_work", resp.Status)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	changed, ok := bus.published[0].(events.LeadStatusChanged)
	if !ok {
		t.Fatalf("published %T, want LeadStatusChanged", bus.published[0])
	}
	if changed.OldStatus != string(domain.StatusQueued) || changed.NewStatus != string(domain.StatusInWork) {
		t.Errorf("event statuses %s -> %s", changed.OldStatus, changed.NewStatus)
	}
}

func TestChangeStatusEnforcesRole(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	lead, _ := repo.Create(context.Background(), repository.CreateLeadParams{
		FullName: "Тест", Phone: "380501234567", Status: string(domain.StatusOnTheWay),
	})
	repo.payments[lead.ID] = []repository.PaymentOperation{
		{OperationType: repository.OperationReceived, AmountCents: 100000},
	}
	updated := repo.leads[lead.ID]
	updated.PriceCents = 100000
	repo.leads[lead.ID] = updated

	_, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{
		Status: string(domain.StatusCompleted),
	}, domain.RoleManager)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("manager completing a lead: err = %v, want forbidden", err)
	}

	if _, err := svc.ChangeStatus(context.Background(), lead.ID, transport.ChangeStatusRequest{
		Status: string(domain.StatusCompleted),
	}, domain.RoleAccountant); err != nil {
		t.Errorf("accountant completing a paid lead: %v", err)
	}
}

func TestRecordPaymentAndAutoSnapshot(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)

	lead, _ := repo.Create(context.Background(), repository.CreateLeadParams{
		FullName: "Тест", Phone: "380501234567",
		Status: string(domain.StatusOnTheWay), PriceCents: 1000,
	})

	if _, err := svc.RecordPayment(context.Background(), lead.ID, transport.RecordPaymentRequest{
		OperationType: repository.OperationReceived, AmountCents: 600,
	}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	info, err := svc.PaymentInfo(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("PaymentInfo: %v", err)
	}
	if info.ShortageCents != 400 {
		t.Errorf("shortage = %d, want 400", info.ShortageCents)
	}
	if info.PaymentPercentage != 60 {
		t.Errorf("percentage = %v, want 60", info.PaymentPercentage)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.PaymentRecorded); !ok {
		t.Errorf("published %T, want PaymentRecorded", bus.published[0])
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	lead, _ := repo.Create(context.Background(), repository.CreateLeadParams{
		FullName: "Тест", Phone: "380501234567", Status: string(domain.StatusInWork),
	})

	_, err := svc.RecordPayment(context.Background(), lead.ID, transport.RecordPaymentRequest{
		OperationType: "refund", AmountCents: 100,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad operation type: err = %v, want validation", err)
	}

	_, err = svc.RecordPayment(context.Background(), lead.ID, transport.RecordPaymentRequest{
		OperationType: repository.OperationReceived, AmountCents: 0,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("zero amount: err = %v, want validation", err)
	}
}

func TestAssignNextLeadPromotesOldestQueued(t *testing.T) {
	repo := newFakeRepo()
	svc, bus := newTestService(repo)
	manager := uuid.New()

	queued, _ := repo.Create(context.Background(), repository.CreateLeadParams{
		FullName: "У черзі", Phone: "380501112233",
		Status: string(domain.StatusQueued), AssignedTo: &manager,
	})

	resp, err := svc.AssignNextLead(context.Background(), manager)
	if err != nil {
		t.Fatalf("AssignNextLead: %v", err)
	}
	if resp.ID != queued.ID {
		t.Errorf("assigned lead %s, want %s", resp.ID, queued.ID)
	}
	if resp.Status != string(domain.StatusInWork) {
		t.Errorf("status = %s, want in_work", resp.Status)
	}
	if len(bus.published) != 1 {
		t.Errorf("published %d events, want 1", len(bus.published))
	}

	// Second call returns the now-active lead without touching the queue.
	again, err := svc.AssignNextLead(context.Background(), manager)
	if err != nil {
		t.Fatalf("AssignNextLead again: %v", err)
	}
	if again.ID != queued.ID {
		t.Errorf("second call returned %s, want active lead %s", again.ID, queued.ID)
	}
	if len(bus.published) != 1 {
		t.Errorf("second call should not publish, got %d events", len(bus.published))
	}
}

func TestAssignNextLeadEmptyQueue(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.AssignNextLead(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func isAppErr(err error, target **apperr.Error) bool {
	e, ok := err.(*apperr.Error)
	if ok {
		*target = e
	}
	return ok
}
