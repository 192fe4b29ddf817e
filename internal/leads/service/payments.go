package service

import (
	"context"
	"errors"

	"nashcrm_backend/internal/events"
	"nashcrm_backend/internal/leads/domain"
	"nashcrm_backend/internal/leads/repository"
	"nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// RecordPayment appends a payment operation to the lead's history and
// publishes it for the reactive pipeline (auto-completion, task closing).
func (s *Service) RecordPayment(ctx context.Context, leadID uuid.UUID, req transport.RecordPaymentRequest) (transport.PaymentResponse, error) {
	if req.OperationType != repository.OperationExpected && req.OperationType != repository.OperationReceived {
		return transport.PaymentResponse{}, apperr.Validation("operation_type must be expected or received")
	}
	if req.AmountCents <= 0 {
		return transport.PaymentResponse{}, apperr.Validation("amount must be positive")
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.PaymentResponse{}, apperr.NotFound("lead not found")
		}
		return transport.PaymentResponse{}, err
	}

	op, err := s.repo.CreatePayment(ctx, repository.CreatePaymentParams{
		LeadID:        leadID,
		OperationType: req.OperationType,
		AmountCents:   req.AmountCents,
		Comment:       req.Comment,
	})
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	s.log.PaymentEvent(leadID.String(), op.OperationType, op.AmountCents)
	s.bus.Publish(ctx, events.PaymentRecorded{
		BaseEvent:     events.NewBaseEvent(),
		OperationID:   op.ID,
		LeadID:        leadID,
		LeadStatus:    lead.Status,
		LeadPhone:     lead.Phone,
		OperationType: op.OperationType,
		AmountCents:   op.AmountCents,
		Comment:       op.Comment,
	})

	return transport.ToPaymentResponse(op), nil
}

// ListPayments returns the lead's payment history, oldest first.
func (s *Service) ListPayments(ctx context.Context, leadID uuid.UUID) ([]transport.PaymentResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, err
	}

	ops, err := s.repo.ListPayments(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return transport.ToPaymentResponses(ops), nil
}

// EnsureExpectedPayment makes sure the lead carries an expected payment
// record matching its price. Repeated calls are no-ops, so the shipping
// transition can fire it without bookkeeping.
func (s *Service) EnsureExpectedPayment(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}
	if lead.PriceCents <= 0 {
		return nil
	}

	ops, err := s.repo.ListPayments(ctx, leadID)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.OperationType == repository.OperationExpected {
			return nil
		}
	}

	op, err := s.repo.CreatePayment(ctx, repository.CreatePaymentParams{
		LeadID:        leadID,
		OperationType: repository.OperationExpected,
		AmountCents:   lead.PriceCents,
		Comment:       "expected on shipping",
	})
	if err != nil {
		return err
	}
	s.log.PaymentEvent(leadID.String(), op.OperationType, op.AmountCents)
	return nil
}

// RecordCompletionPayment books the money received on completion: the cash
// actually collected, or the full price when no figure was given. Nothing is
// booked when the lead is already fully paid, which is the auto-completion
// path.
func (s *Service) RecordCompletionPayment(ctx context.Context, leadID uuid.UUID, actualCashCents *int64) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}

	snapshot, err := s.repo.PaymentSnapshot(ctx, leadID)
	if err != nil {
		return err
	}
	if domain.IsFullyPaid(snapshot) {
		return nil
	}

	amount := lead.PriceCents
	if actualCashCents != nil && *actualCashCents > 0 {
		amount = *actualCashCents
	}
	if amount <= 0 {
		return nil
	}

	op, err := s.repo.CreatePayment(ctx, repository.CreatePaymentParams{
		LeadID:        leadID,
		OperationType: repository.OperationReceived,
		AmountCents:   amount,
		Comment:       "received on completion",
	})
	if err != nil {
		return err
	}

	s.log.PaymentEvent(leadID.String(), op.OperationType, op.AmountCents)
	s.bus.Publish(ctx, events.PaymentRecorded{
		BaseEvent:     events.NewBaseEvent(),
		OperationID:   op.ID,
		LeadID:        leadID,
		LeadStatus:    lead.Status,
		LeadPhone:     lead.Phone,
		OperationType: op.OperationType,
		AmountCents:   op.AmountCents,
		Comment:       op.Comment,
	})
	return nil
}

// AutoCompleteIfPaid closes an on_the_way lead once received payments cover
// the price. Reports whether the status was changed.
func (s *Service) AutoCompleteIfPaid(ctx context.Context, leadID uuid.UUID) (bool, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperr.NotFound("lead not found")
		}
		return false, err
	}
	if domain.Status(lead.Status) != domain.StatusOnTheWay {
		return false, nil
	}

	snapshot, err := s.repo.PaymentSnapshot(ctx, leadID)
	if err != nil {
		return false, err
	}
	if !domain.IsFullyPaid(snapshot) {
		return false, nil
	}
	if allowed, _ := domain.CanTransition(domain.StatusOnTheWay, domain.StatusCompleted, snapshot); !allowed {
		return false, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, leadID, string(domain.StatusCompleted), nil)
	if err != nil {
		return false, err
	}

	s.log.StatusChange(updated.ID.String(), lead.Status, updated.Status)
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     updated.ID,
		ManagerID:  updated.AssignedTo,
		FullName:   updated.FullName,
		Phone:      updated.Phone,
		OldStatus:  lead.Status,
		NewStatus:  updated.Status,
		PriceCents: updated.PriceCents,
		ChangedAt:  nowOrStamp(updated),
	})
	return true, nil
}
