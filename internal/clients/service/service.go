// Package service holds the client base use cases: find-or-create by phone,
// metric recomputation from purchase history, follow-up tasks and the
// interaction journal.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nashcrm_backend/internal/clients/metrics"
	"nashcrm_backend/internal/clients/repository"
	"nashcrm_backend/internal/clients/transport"
	"nashcrm_backend/internal/events"
	"nashcrm_backend/platform/apperr"
	"nashcrm_backend/platform/logger"
	"nashcrm_backend/platform/phone"
)

// Repository defines the data access interface needed by the clients service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Client, error)
	GetByPhone(ctx context.Context, phone string) (repository.Client, error)
	FindOrCreateByPhone(ctx context.Context, phone, fullName string, email *string) (repository.Client, bool, error)
	FillMissingContact(ctx context.Context, clientID uuid.UUID, fullName string, email *string) error
	List(ctx context.Context, params repository.ListClientsParams) ([]repository.Client, int, error)
	AllPhones(ctx context.Context) ([]string, error)
	AssignedManager(ctx context.Context, phone string) (*uuid.UUID, error)
	SetAssignedManager(ctx context.Context, clientID uuid.UUID, managerID *uuid.UUID) error
	TouchLastContact(ctx context.Context, clientID uuid.UUID, at time.Time) error
	UpdateMetrics(ctx context.Context, clientID uuid.UUID, m repository.MetricsUpdate) error
	HistoryByPhone(ctx context.Context, phone string) (repository.PurchaseHistory, error)

	CreateTask(ctx context.Context, params repository.CreateTaskParams) (repository.ClientTask, error)
	GetTask(ctx context.Context, id uuid.UUID) (repository.ClientTask, error)
	ListTasks(ctx context.Context, params repository.ListTasksParams) ([]repository.ClientTask, error)
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (repository.ClientTask, error)
	HasOpenTaskTitled(ctx context.Context, clientID uuid.UUID, fragment string) (bool, error)
	CompleteOpenTasksMatching(ctx context.Context, clientID uuid.UUID, fragments []string) (int64, error)

	CreateInteraction(ctx context.Context, params repository.CreateInteractionParams) (repository.ClientInteraction, error)
	ListInteractions(ctx context.Context, clientID uuid.UUID) ([]repository.ClientInteraction, error)
}

// Service handles client base operations.
type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// FindOrCreate resolves a client by canonical phone, creating the card on
// first contact. Repeat contact backfills a name or email the card is still
// missing but never overwrites existing data.
func (s *Service) FindOrCreate(ctx context.Context, rawPhone, fullName string, email *string) (repository.Client, bool, error) {
	canonical := phone.Normalize(rawPhone)
	if canonical == "" {
		return repository.Client{}, false, apperr.Validation("phone is required")
	}

	client, created, err := s.repo.FindOrCreateByPhone(ctx, canonical, fullName, email)
	if err != nil {
		return repository.Client{}, false, apperr.Wrap(apperr.KindInternal, "find or create client", err)
	}

	if !created && (client.FullName == "" || client.Email == nil) {
		if err := s.repo.FillMissingContact(ctx, client.ID, fullName, email); err != nil {
			return repository.Client{}, false, apperr.Wrap(apperr.KindInternal, "backfill client contact", err)
		}
		if client.FullName == "" {
			client.FullName = fullName
		}
		if client.Email == nil {
			client.Email = email
		}
	}

	s.bus.Publish(ctx, events.ClientSaved{
		BaseEvent: events.NewBaseEvent(),
		ClientID:  client.ID,
		Phone:     client.Phone,
		FullName:  client.FullName,
		IsNew:     created,
	})
	return client, created, nil
}

// Card returns the raw client row. The pipeline reads it to evaluate
// follow-up rules against the current metrics.
func (s *Service) Card(ctx context.Context, id uuid.UUID) (repository.Client, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Client{}, apperr.NotFound("client not found")
		}
		return repository.Client{}, apperr.Wrap(apperr.KindInternal, "get client", err)
	}
	return client, nil
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (transport.ClientResponse, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ClientResponse{}, apperr.NotFound("client not found")
		}
		return transport.ClientResponse{}, apperr.Wrap(apperr.KindInternal, "get client", err)
	}
	return transport.ToClientResponse(client), nil
}

func (s *Service) GetByPhone(ctx context.Context, rawPhone string) (transport.ClientResponse, error) {
	canonical := phone.Normalize(rawPhone)
	if canonical == "" {
		return transport.ClientResponse{}, apperr.Validation("phone is required")
	}
	client, err := s.repo.GetByPhone(ctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ClientResponse{}, apperr.NotFound("client not found")
		}
		return transport.ClientResponse{}, apperr.Wrap(apperr.KindInternal, "get client by phone", err)
	}
	return transport.ToClientResponse(client), nil
}

func (s *Service) List(ctx context.Context, params repository.ListClientsParams) (transport.ClientListResponse, error) {
	clients, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ClientListResponse{}, apperr.Wrap(apperr.KindInternal, "list clients", err)
	}
	return transport.ToClientListResponse(clients, total), nil
}

// AssignedManager resolves the manager pinned to a phone. Used by lead
// creation so repeat business lands with the same person.
func (s *Service) AssignedManager(ctx context.Context, rawPhone string) (*uuid.UUID, error) {
	canonical := phone.Normalize(rawPhone)
	if canonical == "" {
		return nil, nil
	}
	return s.repo.AssignedManager(ctx, canonical)
}

func (s *Service) AssignManager(ctx context.Context, clientID uuid.UUID, managerID *uuid.UUID) error {
	err := s.repo.SetAssignedManager(ctx, clientID, managerID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("client not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "assign manager", err)
	}
	return nil
}

// RefreshMetrics recomputes spend, temperature, segment and RFM for the
// client behind a phone. Both the previous and the recomputed card are
// returned so callers can react to escalations.
func (s *Service) RefreshMetrics(ctx context.Context, rawPhone string) (before, after repository.Client, err error) {
	canonical := phone.Normalize(rawPhone)
	if canonical == "" {
		return before, after, apperr.Validation("phone is required")
	}

	before, err = s.repo.GetByPhone(ctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return before, after, apperr.NotFound("client not found")
		}
		return before, after, apperr.Wrap(apperr.KindInternal, "get client for refresh", err)
	}

	history, err := s.repo.HistoryByPhone(ctx, canonical)
	if err != nil {
		return before, after, apperr.Wrap(apperr.KindInternal, "load purchase history", err)
	}

	now := s.now()
	update := buildMetricsUpdate(history, now)
	if err := s.repo.UpdateMetrics(ctx, before.ID, update); err != nil {
		return before, after, apperr.Wrap(apperr.KindInternal, "update client metrics", err)
	}

	after = before
	after.TotalSpentCents = update.TotalSpentCents
	after.AvgCheckCents = update.AvgCheckCents
	after.TotalOrders = update.TotalOrders
	after.FirstPurchaseDate = update.FirstPurchaseDate
	after.LastPurchaseDate = update.LastPurchaseDate
	after.Temperature = update.Temperature
	after.AKBSegment = update.AKBSegment
	after.RFMRecency = &update.RFMRecency
	after.RFMFrequency = &update.RFMFrequency
	after.RFMMonetaryCents = &update.RFMMonetaryCents
	after.RFMScore = &update.RFMScore
	after.UpdatedAt = now

	s.bus.Publish(ctx, events.ClientSaved{
		BaseEvent: events.NewBaseEvent(),
		ClientID:  after.ID,
		Phone:     after.Phone,
		FullName:  after.FullName,
		IsNew:     false,
	})
	return before, after, nil
}

func buildMetricsUpdate(h repository.PurchaseHistory, now time.Time) repository.MetricsUpdate {
	in := metrics.Inputs{
		TotalOrders:      h.CompletedOrders,
		TotalSpentCents:  h.ReceivedCents,
		LeadCount:        h.LeadCount,
		LastPurchaseDate: h.LastPurchaseDate,
		Now:              now,
	}

	var avgCheck int64
	if h.CompletedOrders > 0 {
		avgCheck = h.ReceivedCents / int64(h.CompletedOrders)
	}

	rfm := metrics.ComputeRFM(in)
	return repository.MetricsUpdate{
		TotalSpentCents:   h.ReceivedCents,
		AvgCheckCents:     avgCheck,
		TotalOrders:       h.CompletedOrders,
		FirstPurchaseDate: h.FirstPurchaseDate,
		LastPurchaseDate:  h.LastPurchaseDate,
		Temperature:       metrics.Temperature(in),
		AKBSegment:        metrics.AKBSegment(h.CompletedOrders, h.ReceivedCents),
		RFMRecency:        rfm.RecencyDays,
		RFMFrequency:      rfm.Frequency,
		RFMMonetaryCents:  rfm.MonetaryCents,
		RFMScore:          rfm.Score,
	}
}

// RefreshAllMetrics recomputes metrics for the whole client base and
// returns how many cards were refreshed. Individual failures are logged
// and do not stop the sweep.
func (s *Service) RefreshAllMetrics(ctx context.Context) (int, error) {
	phones, err := s.repo.AllPhones(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "list client phones", err)
	}

	refreshed := 0
	for _, p := range phones {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if _, _, err := s.RefreshMetrics(ctx, p); err != nil {
			s.log.EffectError("refresh client metrics", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// RecordInteraction journals a touchpoint and stamps the client's last
// contact date.
func (s *Service) RecordInteraction(ctx context.Context, clientID, createdBy uuid.UUID, req transport.CreateInteractionRequest) (transport.InteractionResponse, error) {
	if _, err := s.repo.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.InteractionResponse{}, apperr.NotFound("client not found")
		}
		return transport.InteractionResponse{}, apperr.Wrap(apperr.KindInternal, "get client", err)
	}

	interaction, err := s.repo.CreateInteraction(ctx, repository.CreateInteractionParams{
		ClientID:        clientID,
		InteractionType: req.InteractionType,
		Direction:       req.Direction,
		Subject:         req.Subject,
		Description:     req.Description,
		Outcome:         req.Outcome,
		CreatedBy:       createdBy,
		FollowUpDate:    req.FollowUpDate,
	})
	if err != nil {
		return transport.InteractionResponse{}, apperr.Wrap(apperr.KindInternal, "create interaction", err)
	}

	if err := s.repo.TouchLastContact(ctx, clientID, s.now()); err != nil {
		s.log.EffectError("touch last contact", err)
	}
	return transport.ToInteractionResponse(interaction), nil
}

func (s *Service) ListInteractions(ctx context.Context, clientID uuid.UUID) ([]transport.InteractionResponse, error) {
	interactions, err := s.repo.ListInteractions(ctx, clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list interactions", err)
	}
	out := make([]transport.InteractionResponse, 0, len(interactions))
	for _, in := range interactions {
		out = append(out, transport.ToInteractionResponse(in))
	}
	return out, nil
}
