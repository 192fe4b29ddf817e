package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ClientInteraction struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	InteractionType string
	Direction       string
	Subject         string
	Description     string
	Outcome         string
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	FollowUpDate    *time.Time
}

type CreateInteractionParams struct {
	ClientID        uuid.UUID
	InteractionType string
	Direction       string
	Subject         string
	Description     string
	Outcome         string
	CreatedBy       uuid.UUID
	FollowUpDate    *time.Time
}

func (r *Repository) CreateInteraction(ctx context.Context, params CreateInteractionParams) (ClientInteraction, error) {
	var in ClientInteraction
	err := r.pool.QueryRow(ctx, `
		INSERT INTO client_interactions
			(client_id, interaction_type, direction, subject, description, outcome, created_by, follow_up_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, client_id, interaction_type, direction, subject, description, outcome,
			created_by, created_at, follow_up_date
	`, params.ClientID, params.InteractionType, params.Direction, params.Subject,
		params.Description, params.Outcome, params.CreatedBy, params.FollowUpDate,
	).Scan(&in.ID, &in.ClientID, &in.InteractionType, &in.Direction, &in.Subject,
		&in.Description, &in.Outcome, &in.CreatedBy, &in.CreatedAt, &in.FollowUpDate)
	return in, err
}

func (r *Repository) ListInteractions(ctx context.Context, clientID uuid.UUID) ([]ClientInteraction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, interaction_type, direction, subject, description, outcome,
			created_by, created_at, follow_up_date
		FROM client_interactions
		WHERE client_id = $1
		ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ClientInteraction, 0)
	for rows.Next() {
		var in ClientInteraction
		if err := rows.Scan(&in.ID, &in.ClientID, &in.InteractionType, &in.Direction, &in.Subject,
			&in.Description, &in.Outcome, &in.CreatedBy, &in.CreatedAt, &in.FollowUpDate); err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}
