// Package transport defines the request and response shapes of the clients
// HTTP API and the mappers from repository models.
package transport

import (
	"time"

	"github.com/google/uuid"

	"nashcrm_backend/internal/clients/repository"
)

type ClientResponse struct {
	ID                uuid.UUID  `json:"id"`
	FullName          string     `json:"full_name"`
	Phone             string     `json:"phone"`
	Email             string     `json:"email"`
	Temperature       string     `json:"temperature"`
	AKBSegment        string     `json:"akb_segment"`
	TotalSpentCents   int64      `json:"total_spent"`
	AvgCheckCents     int64      `json:"avg_check"`
	TotalOrders       int        `json:"total_orders"`
	FirstPurchaseDate *time.Time `json:"first_purchase_date,omitempty"`
	LastPurchaseDate  *time.Time `json:"last_purchase_date,omitempty"`
	LastContactDate   *time.Time `json:"last_contact_date,omitempty"`
	RFMRecency        *int       `json:"rfm_recency,omitempty"`
	RFMFrequency      *int       `json:"rfm_frequency,omitempty"`
	RFMMonetaryCents  *int64     `json:"rfm_monetary,omitempty"`
	RFMScore          *string    `json:"rfm_score,omitempty"`
	AssignedTo        *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ClientListResponse struct {
	Items []ClientResponse `json:"items"`
	Total int              `json:"total"`
}

type AssignManagerRequest struct {
	ManagerID *uuid.UUID `json:"manager_id"`
}

type CreateTaskRequest struct {
	ClientID    uuid.UUID  `json:"client_id" binding:"required"`
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	Priority    string     `json:"priority"`
	DueDate     time.Time  `json:"due_date" binding:"required"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress completed cancelled"`
}

type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     time.Time  `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CreateInteractionRequest struct {
	InteractionType string     `json:"interaction_type" binding:"required,oneof=call email meeting whatsapp other"`
	Direction       string     `json:"direction" binding:"required,oneof=inbound outbound"`
	Subject         string     `json:"subject" binding:"required,max=255"`
	Description     string     `json:"description"`
	Outcome         string     `json:"outcome"`
	FollowUpDate    *time.Time `json:"follow_up_date"`
}

type InteractionResponse struct {
	ID              uuid.UUID  `json:"id"`
	ClientID        uuid.UUID  `json:"client_id"`
	InteractionType string     `json:"interaction_type"`
	Direction       string     `json:"direction"`
	Subject         string     `json:"subject"`
	Description     string     `json:"description"`
	Outcome         string     `json:"outcome"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	FollowUpDate    *time.Time `json:"follow_up_date,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ToClientResponse(c repository.Client) ClientResponse {
	return ClientResponse{
		ID:                c.ID,
		FullName:          c.FullName,
		Phone:             c.Phone,
		Email:             deref(c.Email),
		Temperature:       c.Temperature,
		AKBSegment:        c.AKBSegment,
		TotalSpentCents:   c.TotalSpentCents,
		AvgCheckCents:     c.AvgCheckCents,
		TotalOrders:       c.TotalOrders,
		FirstPurchaseDate: c.FirstPurchaseDate,
		LastPurchaseDate:  c.LastPurchaseDate,
		LastContactDate:   c.LastContactDate,
		RFMRecency:        c.RFMRecency,
		RFMFrequency:      c.RFMFrequency,
		RFMMonetaryCents:  c.RFMMonetaryCents,
		RFMScore:          c.RFMScore,
		AssignedTo:        c.AssignedTo,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func ToClientListResponse(clients []repository.Client, total int) ClientListResponse {
	items := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		items = append(items, ToClientResponse(c))
	}
	return ClientListResponse{Items: items, Total: total}
}

func ToTaskResponse(t repository.ClientTask) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		ClientID:    t.ClientID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func ToTaskResponses(tasks []repository.ClientTask) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToTaskResponse(t))
	}
	return out
}

func ToInteractionResponse(in repository.ClientInteraction) InteractionResponse {
	return InteractionResponse{
		ID:              in.ID,
		ClientID:        in.ClientID,
		InteractionType: in.InteractionType,
		Direction:       in.Direction,
		Subject:         in.Subject,
		Description:     in.Description,
		Outcome:         in.Outcome,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       in.CreatedAt,
		FollowUpDate:    in.FollowUpDate,
	}
}
