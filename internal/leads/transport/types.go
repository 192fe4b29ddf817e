// Package transport defines the request and response shapes of the leads
// API together with mappers from repository rows.
package transport

import (
	"time"

	"nashcrm_backend/internal/leads/domain"
	"nashcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	FullName          string     `json:"full_name" binding:"required"`
	Phone             string     `json:"phone" binding:"required"`
	Email             string     `json:"email,omitempty" binding:"omitempty,email"`
	Source            string     `json:"source,omitempty"`
	Description       string     `json:"description,omitempty"`
	PriceCents        int64      `json:"price" binding:"min=0"`
	AdvanceCents      *int64     `json:"advance,omitempty"`
	DeliveryCostCents *int64     `json:"delivery_cost,omitempty"`
	Comment           string     `json:"comment,omitempty"`
	OrderNumber       string     `json:"order_number,omitempty"`
	DeliveryNumber    string     `json:"delivery_number,omitempty"`
	AssignedTo        *uuid.UUID `json:"assigned_to,omitempty"`
	FullAddress       string     `json:"full_address,omitempty"`
	Country           string     `json:"country,omitempty"`
	City              string     `json:"city,omitempty"`
	PostalCode        string     `json:"postal_code,omitempty"`
	Street            string     `json:"street,omitempty"`
}

type UpdateLeadRequest struct {
	FullName          string     `json:"full_name" binding:"required"`
	Phone             string     `json:"phone" binding:"required"`
	Email             string     `json:"email,omitempty" binding:"omitempty,email"`
	Source            string     `json:"source,omitempty"`
	Description       string     `json:"description,omitempty"`
	PriceCents        int64      `json:"price" binding:"min=0"`
	AdvanceCents      *int64     `json:"advance,omitempty"`
	DeliveryCostCents *int64     `json:"delivery_cost,omitempty"`
	Comment           string     `json:"comment,omitempty"`
	OrderNumber       string     `json:"order_number,omitempty"`
	DeliveryNumber    string     `json:"delivery_number,omitempty"`
	AssignedTo        *uuid.UUID `json:"assigned_to,omitempty"`
	FullAddress       string     `json:"full_address,omitempty"`
	Country           string     `json:"country,omitempty"`
	City              string     `json:"city,omitempty"`
	PostalCode        string     `json:"postal_code,omitempty"`
	Street            string     `json:"street,omitempty"`
}

type ChangeStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ActualCashCents *int64 `json:"actual_cash,omitempty"`
}

type RecordPaymentRequest struct {
	OperationType string `json:"operation_type" binding:"required,oneof=expected received"`
	AmountCents   int64  `json:"amount" binding:"required,min=1"`
	Comment       string `json:"comment,omitempty"`
}

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	FullName          string     `json:"full_name"`
	Phone             string     `json:"phone"`
	Email             string     `json:"email,omitempty"`
	Source            string     `json:"source,omitempty"`
	Description       string     `json:"description,omitempty"`
	PriceCents        int64      `json:"price"`
	AdvanceCents      *int64     `json:"advance,omitempty"`
	DeliveryCostCents *int64     `json:"delivery_cost,omitempty"`
	Comment           string     `json:"comment,omitempty"`
	OrderNumber       string     `json:"order_number,omitempty"`
	DeliveryNumber    string     `json:"delivery_number,omitempty"`
	Status            string     `json:"status"`
	StatusName        string     `json:"status_name"`
	AssignedTo        *uuid.UUID `json:"assigned_to,omitempty"`
	QueuedPosition    *int32     `json:"queued_position,omitempty"`
	ActualCashCents   *int64     `json:"actual_cash,omitempty"`
	FullAddress       string     `json:"full_address,omitempty"`
	Country           string     `json:"country,omitempty"`
	City              string     `json:"city,omitempty"`
	PostalCode        string     `json:"postal_code,omitempty"`
	Street            string     `json:"street,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StatusUpdatedAt   *time.Time `json:"status_updated_at,omitempty"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

type PaymentResponse struct {
	ID            uuid.UUID `json:"id"`
	LeadID        uuid.UUID `json:"lead_id"`
	OperationType string    `json:"operation_type"`
	AmountCents   int64     `json:"amount"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type TransitionsResponse struct {
	Current     string             `json:"current_status"`
	Allowed     []string           `json:"allowed_transitions"`
	PaymentInfo domain.PaymentInfo `json:"payment_info"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                lead.ID,
		FullName:          lead.FullName,
		Phone:             lead.Phone,
		Email:             deref(lead.Email),
		Source:            deref(lead.Source),
		Description:       deref(lead.Description),
		PriceCents:        lead.PriceCents,
		AdvanceCents:      lead.AdvanceCents,
		DeliveryCostCents: lead.DeliveryCostCents,
		Comment:           deref(lead.Comment),
		OrderNumber:       deref(lead.OrderNumber),
		DeliveryNumber:    deref(lead.DeliveryNumber),
		Status:            lead.Status,
		StatusName:        domain.Name(domain.Status(lead.Status)),
		AssignedTo:        lead.AssignedTo,
		QueuedPosition:    lead.QueuedPosition,
		ActualCashCents:   lead.ActualCashCents,
		FullAddress:       deref(lead.FullAddress),
		Country:           deref(lead.Country),
		City:              deref(lead.City),
		PostalCode:        deref(lead.PostalCode),
		Street:            deref(lead.Street),
		CreatedAt:         lead.CreatedAt,
		StatusUpdatedAt:   lead.StatusUpdatedAt,
	}
}

func ToLeadListResponse(leads []repository.Lead, total int) LeadListResponse {
	items := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead))
	}
	return LeadListResponse{Items: items, Total: total}
}

func ToPaymentResponse(op repository.PaymentOperation) PaymentResponse {
	return PaymentResponse{
		ID:            op.ID,
		LeadID:        op.LeadID,
		OperationType: op.OperationType,
		AmountCents:   op.AmountCents,
		Comment:       op.Comment,
		CreatedAt:     op.CreatedAt,
	}
}

func ToPaymentResponses(ops []repository.PaymentOperation) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(ops))
	for _, op := range ops {
		out = append(out, ToPaymentResponse(op))
	}
	return out
}

type LeadFileResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"lead_id"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToLeadFileResponse(f repository.LeadFile) LeadFileResponse {
	return LeadFileResponse{
		ID:          f.ID,
		LeadID:      f.LeadID,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		SizeBytes:   f.SizeBytes,
		UploadedBy:  f.UploadedBy,
		CreatedAt:   f.CreatedAt,
	}
}

func ToLeadFileResponses(files []repository.LeadFile) []LeadFileResponse {
	out := make([]LeadFileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, ToLeadFileResponse(f))
	}
	return out
}
