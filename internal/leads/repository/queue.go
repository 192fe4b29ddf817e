package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HasActiveLead reports whether the manager already has a lead in work.
func (r *Repository) HasActiveLead(ctx context.Context, managerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM leads WHERE assigned_to = $1 AND status = 'in_work')
	`, managerID).Scan(&exists)
	return exists, err
}

// ActiveLead returns the manager's lead currently in work, or ErrNotFound.
func (r *Repository) ActiveLead(ctx context.Context, managerID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assigned_to = $1 AND status = 'in_work'
		ORDER BY created_at ASC
		LIMIT 1
	`, managerID)
	return scanLead(row)
}

// QueuedCount returns how many leads are queued for the manager.
func (r *Repository) QueuedCount(ctx context.Context, managerID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM leads WHERE assigned_to = $1 AND status = 'queued'
	`, managerID).Scan(&count)
	return count, err
}

// NextQueuedLead returns the manager's oldest queued lead, or ErrNotFound
// when the queue is empty.
func (r *Repository) NextQueuedLead(ctx context.Context, managerID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assigned_to = $1 AND status = 'queued'
		ORDER BY created_at ASC
		LIMIT 1
	`, managerID)
	return scanLead(row)
}

// FreeManager returns the first manager without a lead in work, or
// ErrNotFound when everyone is busy.
func (r *Repository) FreeManager(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT m.id
		FROM managers m
		WHERE m.role = 'manager'
		  AND NOT EXISTS (
			SELECT 1 FROM leads l WHERE l.assigned_to = m.id AND l.status = 'in_work'
		  )
		ORDER BY m.created_at ASC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return id, err
}
