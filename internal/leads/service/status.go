package service

import (
	"context"
	"errors"
	"time"

	"nashcrm_backend/internal/events"
	"nashcrm_backend/internal/leads/domain"
	"nashcrm_backend/internal/leads/repository"
	"nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// ChangeStatus validates and applies a status transition. Rejections carry
// the current state, the allowed transitions and the payment summary so the
// caller can explain the refusal without a second round trip.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.ChangeStatusRequest, actorRole domain.Role) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	target := domain.Status(req.Status)
	if !domain.IsKnown(target) {
		return transport.LeadResponse{}, apperr.Validation("unknown status").
			WithDetails(map[string]interface{}{"status": req.Status})
	}

	if actorRole != "" && target != domain.Status(lead.Status) && !domain.RoleCanSet(actorRole, target) {
		return transport.LeadResponse{}, apperr.Forbidden("role may not set this status").
			WithDetails(map[string]interface{}{
				"role":              string(actorRole),
				"allowed_statuses":  domain.StatusesForRole(actorRole),
				"attempted_status":  req.Status,
			})
	}

	snap, err := s.repo.PaymentSnapshot(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	current := domain.Status(lead.Status)
	ok, reason := domain.CanTransition(current, target, snap)
	if !ok {
		return transport.LeadResponse{}, apperr.Conflict(reason).WithDetails(map[string]interface{}{
			"current_status":      lead.Status,
			"attempted_status":    req.Status,
			"allowed_transitions": domain.AllowedTransitions(current, snap),
			"payment_info":        domain.BuildPaymentInfo(snap),
		})
	}

	if current == target {
		// Permitted no-op: no write, no stamp, no event.
		return transport.ToLeadResponse(lead), nil
	}

	updated, err := s.repo.UpdateStatus(ctx, id, string(target), req.ActualCashCents)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.StatusChange(updated.ID.String(), lead.Status, updated.Status)
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          updated.ID,
		ManagerID:       updated.AssignedTo,
		FullName:        updated.FullName,
		Phone:           updated.Phone,
		OldStatus:       lead.Status,
		NewStatus:       updated.Status,
		PriceCents:      updated.PriceCents,
		ActualCashCents: updated.ActualCashCents,
		ChangedAt:       nowOrStamp(updated),
	})

	return transport.ToLeadResponse(updated), nil
}

// AllowedTransitions reports where the lead may move next together with its
// payment summary.
func (s *Service) AllowedTransitions(ctx context.Context, id uuid.UUID) (transport.TransitionsResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.TransitionsResponse{}, apperr.NotFound("lead not found")
		}
		return transport.TransitionsResponse{}, err
	}

	snap, err := s.repo.PaymentSnapshot(ctx, id)
	if err != nil {
		return transport.TransitionsResponse{}, err
	}

	allowed := domain.AllowedTransitions(domain.Status(lead.Status), snap)
	names := make([]string, 0, len(allowed))
	for _, status := range allowed {
		names = append(names, string(status))
	}

	return transport.TransitionsResponse{
		Current:     lead.Status,
		Allowed:     names,
		PaymentInfo: domain.BuildPaymentInfo(snap),
	}, nil
}

// PaymentInfo returns the derived payment summary for a lead.
func (s *Service) PaymentInfo(ctx context.Context, id uuid.UUID) (domain.PaymentInfo, error) {
	snap, err := s.repo.PaymentSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PaymentInfo{}, apperr.NotFound("lead not found")
		}
		return domain.PaymentInfo{}, err
	}
	return domain.BuildPaymentInfo(snap), nil
}

func nowOrStamp(lead repository.Lead) time.Time {
	if lead.StatusUpdatedAt != nil {
		return *lead.StatusUpdatedAt
	}
	return time.Now()
}
