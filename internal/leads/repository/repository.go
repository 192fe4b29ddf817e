package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                uuid.UUID
	FullName          string
	Phone             string
	Email             *string
	Source            *string
	Description       *string
	PriceCents        int64
	AdvanceCents      *int64
	DeliveryCostCents *int64
	Comment           *string
	OrderNumber       *string
	DeliveryNumber    *string
	Status            string
	AssignedTo        *uuid.UUID
	QueuedPosition    *int32
	ActualCashCents   *int64
	FullAddress       *string
	Country           *string
	City              *string
	PostalCode        *string
	Street            *string
	CreatedAt         time.Time
	StatusUpdatedAt   *time.Time
}

const leadColumns = `id, full_name, phone, email, source, description, price_cents, advance_cents,
	delivery_cost_cents, comment, order_number, delivery_number, status, assigned_to,
	queued_position, actual_cash_cents, full_address, country, city, postal_code, street,
	created_at, status_updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.FullName, &l.Phone, &l.Email, &l.Source, &l.Description, &l.PriceCents,
		&l.AdvanceCents, &l.DeliveryCostCents, &l.Comment, &l.OrderNumber, &l.DeliveryNumber,
		&l.Status, &l.AssignedTo, &l.QueuedPosition, &l.ActualCashCents, &l.FullAddress,
		&l.Country, &l.City, &l.PostalCode, &l.Street, &l.CreatedAt, &l.StatusUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

type CreateLeadParams struct {
	FullName          string
	Phone             string
	Email             *string
	Source            *string
	Description       *string
	PriceCents        int64
	AdvanceCents      *int64
	DeliveryCostCents *int64
	Comment           *string
	OrderNumber       *string
	DeliveryNumber    *string
	Status            string
	AssignedTo        *uuid.UUID
	QueuedPosition    *int32
	FullAddress       *string
	Country           *string
	City              *string
	PostalCode        *string
	Street            *string
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			full_name, phone, email, source, description, price_cents, advance_cents,
			delivery_cost_cents, comment, order_number, delivery_number, status, assigned_to,
			queued_position, full_address, country, city, postal_code, street
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+leadColumns,
		params.FullName, params.Phone, params.Email, params.Source, params.Description,
		params.PriceCents, params.AdvanceCents, params.DeliveryCostCents, params.Comment,
		params.OrderNumber, params.DeliveryNumber, params.Status, params.AssignedTo,
		params.QueuedPosition, params.FullAddress, params.Country, params.City,
		params.PostalCode, params.Street,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

type UpdateLeadParams struct {
	FullName          string
	Phone             string
	Email             *string
	Source            *string
	Description       *string
	PriceCents        int64
	AdvanceCents      *int64
	DeliveryCostCents *int64
	Comment           *string
	OrderNumber       *string
	DeliveryNumber    *string
	AssignedTo        *uuid.UUID
	FullAddress       *string
	Country           *string
	City              *string
	PostalCode        *string
	Street            *string
}

// Update rewrites lead fields other than status. Status transitions go
// through UpdateStatus so the stamp and queue position stay consistent.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			full_name = $2, phone = $3, email = $4, source = $5, description = $6,
			price_cents = $7, advance_cents = $8, delivery_cost_cents = $9, comment = $10,
			order_number = $11, delivery_number = $12, assigned_to = $13,
			full_address = $14, country = $15, city = $16, postal_code = $17, street = $18
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.FullName, params.Phone, params.Email, params.Source, params.Description,
		params.PriceCents, params.AdvanceCents, params.DeliveryCostCents, params.Comment,
		params.OrderNumber, params.DeliveryNumber, params.AssignedTo, params.FullAddress,
		params.Country, params.City, params.PostalCode, params.Street,
	)
	return scanLead(row)
}

// UpdateStatus sets the new status and stamps status_updated_at in the same
// statement. Leaving the queue clears the queue position; actual cash is
// written only when provided.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actualCashCents *int64) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			status = $2,
			status_updated_at = now(),
			queued_position = CASE WHEN $2 = 'queued' THEN queued_position ELSE NULL END,
			actual_cash_cents = COALESCE($3, actual_cash_cents)
		WHERE id = $1
		RETURNING `+leadColumns,
		id, status, actualCashCents,
	)
	return scanLead(row)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ListLeadsParams struct {
	Status      *string
	AssignedTo  *uuid.UUID
	Phone       *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// List returns leads matching the filters, newest first, with the total
// count for pagination.
func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if params.Status != nil {
		add("status = $%d", *params.Status)
	}
	if params.AssignedTo != nil {
		add("assigned_to = $%d", *params.AssignedTo)
	}
	if params.Phone != nil {
		add("phone = $%d", *params.Phone)
	}
	if params.CreatedFrom != nil {
		add("created_at >= $%d", *params.CreatedFrom)
	}
	if params.CreatedTo != nil {
		add("created_at < $%d", *params.CreatedTo)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM leads%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

// ExistsByDeliveryNumber reports whether a lead with the external
// delivery number is already stored. Used for import deduplication.
func (r *Repository) ExistsByDeliveryNumber(ctx context.Context, deliveryNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE delivery_number = $1)`, deliveryNumber).Scan(&exists)
	return exists, err
}

