// Package service holds the lead lifecycle use cases: creation with queue
// assignment, field updates, listing and deletion. Status transitions and
// payments live in their own files of this package.
package service

import (
	"context"
	"errors"

	"nashcrm_backend/internal/events"
	"nashcrm_backend/internal/leads/domain"
	"nashcrm_backend/internal/leads/repository"
	"nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/apperr"
	"nashcrm_backend/platform/logger"
	"nashcrm_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the leads service.
type Repository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, actualCashCents *int64) (repository.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params repository.ListLeadsParams) ([]repository.Lead, int, error)
	ExistsByDeliveryNumber(ctx context.Context, deliveryNumber string) (bool, error)

	CreatePayment(ctx context.Context, params repository.CreatePaymentParams) (repository.PaymentOperation, error)
	ListPayments(ctx context.Context, leadID uuid.UUID) ([]repository.PaymentOperation, error)
	PaymentSnapshot(ctx context.Context, leadID uuid.UUID) (domain.PaymentSnapshot, error)

	CreateFile(ctx context.Context, params repository.CreateFileParams) (repository.LeadFile, error)
	GetFile(ctx context.Context, id uuid.UUID) (repository.LeadFile, error)
	ListFilesByLead(ctx context.Context, leadID uuid.UUID) ([]repository.LeadFile, error)
	DeleteFile(ctx context.Context, id uuid.UUID) error

	HasActiveLead(ctx context.Context, managerID uuid.UUID) (bool, error)
	ActiveLead(ctx context.Context, managerID uuid.UUID) (repository.Lead, error)
	QueuedCount(ctx context.Context, managerID uuid.UUID) (int, error)
	NextQueuedLead(ctx context.Context, managerID uuid.UUID) (repository.Lead, error)
	FreeManager(ctx context.Context) (uuid.UUID, error)
}

// ClientDirectory resolves the manager already responsible for a client
// phone, so repeat business lands with the same person.
type ClientDirectory interface {
	AssignedManager(ctx context.Context, phone string) (*uuid.UUID, error)
}

// Service handles lead lifecycle operations.
type Service struct {
	repo       Repository
	bus        events.Bus
	log        *logger.Logger
	clients    ClientDirectory
	store      FileStore
	fileBucket string
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// SetClientDirectory wires the optional client lookup used during creation.
func (s *Service) SetClientDirectory(dir ClientDirectory) {
	s.clients = dir
}

// SetFileStore wires the optional attachment storage. Without it the
// file endpoints report attachments as unavailable.
func (s *Service) SetFileStore(store FileStore, bucket string) {
	s.store = store
	s.fileBucket = bucket
}

// Create normalizes the phone, picks a manager and queue slot and persists
// the lead. A free manager gets the lead straight into work; a busy one
// gets it appended to his queue.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	canonical := phone.Normalize(req.Phone)
	if canonical == "" {
		return transport.LeadResponse{}, apperr.Validation("phone is required").WithOp("leads.Create")
	}

	manager := req.AssignedTo
	if manager == nil && s.clients != nil {
		assigned, err := s.clients.AssignedManager(ctx, canonical)
		if err == nil && assigned != nil {
			manager = assigned
		}
	}
	if manager == nil {
		free, err := s.repo.FreeManager(ctx)
		if err == nil {
			manager = &free
		} else if !errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, err
		}
	}

	status := domain.StatusQueued
	var queuedPosition *int32
	if manager != nil {
		active, err := s.repo.HasActiveLead(ctx, *manager)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		if !active {
			status = domain.StatusInWork
		} else {
			count, err := s.repo.QueuedCount(ctx, *manager)
			if err != nil {
				return transport.LeadResponse{}, err
			}
			pos := int32(count + 1)
			queuedPosition = &pos
		}
	}

	params := repository.CreateLeadParams{
		FullName:          req.FullName,
		Phone:             canonical,
		PriceCents:        req.PriceCents,
		AdvanceCents:      req.AdvanceCents,
		DeliveryCostCents: req.DeliveryCostCents,
		Status:            string(status),
		AssignedTo:        manager,
		QueuedPosition:    queuedPosition,
	}
	setOptional(&params.Email, req.Email)
	setOptional(&params.Source, req.Source)
	setOptional(&params.Description, req.Description)
	setOptional(&params.Comment, req.Comment)
	setOptional(&params.OrderNumber, req.OrderNumber)
	setOptional(&params.DeliveryNumber, req.DeliveryNumber)
	setOptional(&params.FullAddress, req.FullAddress)
	setOptional(&params.Country, req.Country)
	setOptional(&params.City, req.City)
	setOptional(&params.PostalCode, req.PostalCode)
	setOptional(&params.Street, req.Street)

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		ManagerID:  lead.AssignedTo,
		FullName:   lead.FullName,
		Phone:      lead.Phone,
		Email:      req.Email,
		Source:     req.Source,
		Status:     lead.Status,
		PriceCents: lead.PriceCents,
	})

	return transport.ToLeadResponse(lead), nil
}

// GetByID retrieves a lead by ID.
// HasDeliveryNumber reports whether a lead carrying the external
// delivery number already exists. The mail importer uses it to skip
// duplicates.
func (s *Service) HasDeliveryNumber(ctx context.Context, deliveryNumber string) (bool, error) {
	if deliveryNumber == "" {
		return false, nil
	}
	return s.repo.ExistsByDeliveryNumber(ctx, deliveryNumber)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

// Update rewrites lead fields. The phone is canonicalized again so lookups
// by phone stay exact.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	canonical := phone.Normalize(req.Phone)
	if canonical == "" {
		return transport.LeadResponse{}, apperr.Validation("phone is required").WithOp("leads.Update")
	}

	params := repository.UpdateLeadParams{
		FullName:          req.FullName,
		Phone:             canonical,
		PriceCents:        req.PriceCents,
		AdvanceCents:      req.AdvanceCents,
		DeliveryCostCents: req.DeliveryCostCents,
		AssignedTo:        req.AssignedTo,
	}
	setOptional(&params.Email, req.Email)
	setOptional(&params.Source, req.Source)
	setOptional(&params.Description, req.Description)
	setOptional(&params.Comment, req.Comment)
	setOptional(&params.OrderNumber, req.OrderNumber)
	setOptional(&params.DeliveryNumber, req.DeliveryNumber)
	setOptional(&params.FullAddress, req.FullAddress)
	setOptional(&params.Country, req.Country)
	setOptional(&params.City, req.City)
	setOptional(&params.PostalCode, req.PostalCode)
	setOptional(&params.Street, req.Street)

	lead, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadUpdated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		ManagerID: lead.AssignedTo,
		FullName:  lead.FullName,
		Phone:     lead.Phone,
		Status:    lead.Status,
	})

	return transport.ToLeadResponse(lead), nil
}

// List returns leads filtered and paginated.
func (s *Service) List(ctx context.Context, params repository.ListLeadsParams) (transport.LeadListResponse, error) {
	if params.Phone != nil {
		canonical := phone.Normalize(*params.Phone)
		params.Phone = &canonical
	}
	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}
	return transport.ToLeadListResponse(leads, total), nil
}

// Delete removes a lead and its payment history (cascade).
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}
	return nil
}

// AssignNextLead moves the manager's oldest queued lead into work. When a
// lead is already in work it is returned unchanged and the queue is left
// alone.
func (s *Service) AssignNextLead(ctx context.Context, managerID uuid.UUID) (transport.LeadResponse, error) {
	active, err := s.repo.ActiveLead(ctx, managerID)
	if err == nil {
		return transport.ToLeadResponse(active), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, err
	}

	next, err := s.repo.NextQueuedLead(ctx, managerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("queue is empty")
		}
		return transport.LeadResponse{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, next.ID, string(domain.StatusInWork), nil)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.StatusChange(updated.ID.String(), next.Status, updated.Status)
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     updated.ID,
		ManagerID:  updated.AssignedTo,
		FullName:   updated.FullName,
		Phone:      updated.Phone,
		OldStatus:  next.Status,
		NewStatus:  updated.Status,
		PriceCents: updated.PriceCents,
		ChangedAt:  nowOrStamp(updated),
	})

	return transport.ToLeadResponse(updated), nil
}

func setOptional(dst **string, value string) {
	if value != "" {
		v := value
		*dst = &v
	}
}
