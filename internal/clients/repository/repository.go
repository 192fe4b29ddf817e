// Package repository provides postgres data access for clients, their
// follow-up tasks and interaction history.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("client not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Client struct {
	ID                uuid.UUID
	FullName          string
	Phone             string
	Email             *string
	Temperature       string
	AKBSegment        string
	TotalSpentCents   int64
	AvgCheckCents     int64
	TotalOrders       int
	FirstPurchaseDate *time.Time
	LastPurchaseDate  *time.Time
	LastContactDate   *time.Time
	RFMRecency        *int
	RFMFrequency      *int
	RFMMonetaryCents  *int64
	RFMScore          *string
	AssignedTo        *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const clientColumns = `id, full_name, phone, email, temperature, akb_segment, total_spent_cents,
	avg_check_cents, total_orders, first_purchase_date, last_purchase_date, last_contact_date,
	rfm_recency, rfm_frequency, rfm_monetary_cents, rfm_score, assigned_to, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.FullName, &c.Phone, &c.Email, &c.Temperature, &c.AKBSegment,
		&c.TotalSpentCents, &c.AvgCheckCents, &c.TotalOrders, &c.FirstPurchaseDate,
		&c.LastPurchaseDate, &c.LastContactDate, &c.RFMRecency, &c.RFMFrequency,
		&c.RFMMonetaryCents, &c.RFMScore, &c.AssignedTo, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	return scanClient(row)
}

func (r *Repository) GetByPhone(ctx context.Context, phone string) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE phone = $1`, phone)
	return scanClient(row)
}

// FindOrCreateByPhone returns the client for a canonical phone, creating it
// on first contact. Insert races are settled by the unique phone index: on
// conflict the existing row wins and name/email are left untouched.
func (r *Repository) FindOrCreateByPhone(ctx context.Context, phone, fullName string, email *string) (Client, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (full_name, phone, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO NOTHING
		RETURNING `+clientColumns,
		fullName, phone, email,
	)
	client, err := scanClient(row)
	if err == nil {
		return client, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Client{}, false, err
	}

	client, err = r.GetByPhone(ctx, phone)
	return client, false, err
}

// FillMissingContact backfills an empty name or absent email from a fresh
// lead without overwriting data the client already has.
func (r *Repository) FillMissingContact(ctx context.Context, clientID uuid.UUID, fullName string, email *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE clients SET
			full_name = CASE WHEN full_name = '' AND $2 <> '' THEN $2 ELSE full_name END,
			email = COALESCE(email, $3),
			updated_at = now()
		WHERE id = $1
	`, clientID, fullName, email)
	return err
}

type ListClientsParams struct {
	Temperature *string
	AKBSegment  *string
	AssignedTo  *uuid.UUID
	Limit       int
	Offset      int
}

func (r *Repository) List(ctx context.Context, params ListClientsParams) ([]Client, int, error) {
	where := " WHERE ($1::text IS NULL OR temperature = $1) AND ($2::text IS NULL OR akb_segment = $2) AND ($3::uuid IS NULL OR assigned_to = $3)"

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM clients`+where,
		params.Temperature, params.AKBSegment, params.AssignedTo).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients`+where+` ORDER BY updated_at DESC LIMIT $4 OFFSET $5`,
		params.Temperature, params.AKBSegment, params.AssignedTo, limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, client)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return clients, total, nil
}

// AllPhones returns every client phone key. Used by the nightly metrics
// refresh sweep.
func (r *Repository) AllPhones(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT phone FROM clients ORDER BY updated_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phones := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

// AssignedManager returns the manager responsible for a phone, if any.
func (r *Repository) AssignedManager(ctx context.Context, phone string) (*uuid.UUID, error) {
	var managerID *uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT assigned_to FROM clients WHERE phone = $1`, phone).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return managerID, err
}

// SetAssignedManager pins a client to a manager.
func (r *Repository) SetAssignedManager(ctx context.Context, clientID uuid.UUID, managerID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clients SET assigned_to = $2, updated_at = now() WHERE id = $1`, clientID, managerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastContact stamps the client's last contact date.
func (r *Repository) TouchLastContact(ctx context.Context, clientID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE clients SET last_contact_date = $2, updated_at = now() WHERE id = $1`, clientID, at)
	return err
}

// MetricsUpdate carries the recomputed classification for one client.
type MetricsUpdate struct {
	TotalSpentCents   int64
	AvgCheckCents     int64
	TotalOrders       int
	FirstPurchaseDate *time.Time
	LastPurchaseDate  *time.Time
	Temperature       string
	AKBSegment        string
	RFMRecency        int
	RFMFrequency      int
	RFMMonetaryCents  int64
	RFMScore          string
}

func (r *Repository) UpdateMetrics(ctx context.Context, clientID uuid.UUID, m MetricsUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients SET
			total_spent_cents = $2, avg_check_cents = $3, total_orders = $4,
			first_purchase_date = $5, last_purchase_date = $6,
			temperature = $7, akb_segment = $8,
			rfm_recency = $9, rfm_frequency = $10, rfm_monetary_cents = $11, rfm_score = $12,
			updated_at = now()
		WHERE id = $1
	`, clientID, m.TotalSpentCents, m.AvgCheckCents, m.TotalOrders,
		m.FirstPurchaseDate, m.LastPurchaseDate, m.Temperature, m.AKBSegment,
		m.RFMRecency, m.RFMFrequency, m.RFMMonetaryCents, m.RFMScore)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurchaseHistory aggregates the lead and payment history behind a phone.
type PurchaseHistory struct {
	LeadCount         int
	CompletedOrders   int
	ReceivedCents     int64
	FirstPurchaseDate *time.Time
	LastPurchaseDate  *time.Time
}

// HistoryByPhone collects the inputs for metric recomputation in one query.
func (r *Repository) HistoryByPhone(ctx context.Context, phone string) (PurchaseHistory, error) {
	var h PurchaseHistory
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM leads WHERE phone = $1),
			(SELECT count(*) FROM leads WHERE phone = $1 AND status = 'completed'),
			(SELECT COALESCE(SUM(po.amount_cents), 0)
				FROM lead_payment_operations po
				JOIN leads l ON l.id = po.lead_id
				WHERE l.phone = $1 AND po.operation_type = 'received'),
			(SELECT MIN(created_at) FROM leads WHERE phone = $1 AND status = 'completed'),
			(SELECT MAX(created_at) FROM leads WHERE phone = $1 AND status = 'completed')
	`, phone).Scan(&h.LeadCount, &h.CompletedOrders, &h.ReceivedCents, &h.FirstPurchaseDate, &h.LastPurchaseDate)
	return h, err
}
