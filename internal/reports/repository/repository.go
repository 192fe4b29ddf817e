// Package repository runs the aggregation queries behind the report
// endpoints. All money values are integer cents.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Range filters leads by creation time. Nil bounds are open.
type Range struct {
	From *time.Time
	To   *time.Time
}

// StatusCounts returns lead counts per status within the range,
// optionally narrowed to one manager.
func (r *Repository) StatusCounts(ctx context.Context, rng Range, managerID *uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		  AND ($3::uuid IS NULL OR assigned_to = $3)
		GROUP BY status`,
		rng.From, rng.To, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// PaymentTotals holds the expected vs received sums for leads created in
// a range.
type PaymentTotals struct {
	ExpectedCents int64
	ReceivedCents int64
}

func (r *Repository) PaymentTotals(ctx context.Context, rng Range) (PaymentTotals, error) {
	var t PaymentTotals
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(o.amount_cents) FILTER (WHERE o.operation_type = 'expected'), 0),
			COALESCE(SUM(o.amount_cents) FILTER (WHERE o.operation_type = 'received'), 0)
		FROM lead_payment_operations o
		JOIN leads l ON l.id = o.lead_id
		WHERE ($1::timestamptz IS NULL OR l.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR l.created_at < $2)`,
		rng.From, rng.To).Scan(&t.ExpectedCents, &t.ReceivedCents)
	return t, err
}

// DailyStats are the rolling activity counters shown on the summary.
type DailyStats struct {
	NewToday       int
	CompletedToday int
	LastSevenDays  int
}

func (r *Repository) DailyStats(ctx context.Context, now time.Time) (DailyStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	var s DailyStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE status = 'completed' AND status_updated_at >= $1),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM leads`,
		dayStart, weekAgo).Scan(&s.NewToday, &s.CompletedToday, &s.LastSevenDays)
	return s, err
}

// DailySnapshot is the figure set for the end-of-day report email.
type DailySnapshot struct {
	NewLeads       int
	CompletedLeads int
	DeclinedLeads  int
	ReceivedCents  int64
	QueuedLeads    int
	InWorkLeads    int
}

func (r *Repository) DailySnapshot(ctx context.Context, now time.Time) (DailySnapshot, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var s DailySnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE status = 'completed' AND status_updated_at >= $1),
			COUNT(*) FILTER (WHERE status = 'declined' AND status_updated_at >= $1),
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'in_work')
		FROM leads`,
		dayStart).Scan(&s.NewLeads, &s.CompletedLeads, &s.DeclinedLeads, &s.QueuedLeads, &s.InWorkLeads)
	if err != nil {
		return DailySnapshot{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM lead_payment_operations
		WHERE operation_type = 'received' AND created_at >= $1`,
		dayStart).Scan(&s.ReceivedCents)
	return s, err
}

// Debtor is a client whose completed orders are not fully paid.
type Debtor struct {
	ClientName    string
	Phone         string
	ExpectedCents int64
	ReceivedCents int64
	DebtCents     int64
}

// TopDebtors returns the clients with the largest outstanding balance on
// completed leads, biggest debt first.
func (r *Repository) TopDebtors(ctx context.Context, rng Range, limit int) ([]Debtor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.full_name, l.phone,
			SUM(l.price_cents),
			COALESCE(SUM(p.received_cents), 0),
			SUM(l.price_cents) - COALESCE(SUM(p.received_cents), 0) AS debt_cents
		FROM leads l
		LEFT JOIN (
			SELECT lead_id, SUM(amount_cents) AS received_cents
			FROM lead_payment_operations
			WHERE operation_type = 'received'
			GROUP BY lead_id
		) p ON p.lead_id = l.id
		WHERE l.status = 'completed'
		  AND ($1::timestamptz IS NULL OR l.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR l.created_at < $2)
		GROUP BY l.phone, l.full_name
		HAVING SUM(l.price_cents) - COALESCE(SUM(p.received_cents), 0) > 0
		ORDER BY debt_cents DESC
		LIMIT $3`,
		rng.From, rng.To, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debtors := make([]Debtor, 0)
	for rows.Next() {
		var d Debtor
		if err := rows.Scan(&d.ClientName, &d.Phone, &d.ExpectedCents, &d.ReceivedCents, &d.DebtCents); err != nil {
			return nil, err
		}
		debtors = append(debtors, d)
	}
	return debtors, rows.Err()
}

// ManagerStats aggregates one manager's lead handling within a range.
type ManagerStats struct {
	ManagerID          uuid.UUID
	ManagerName        string
	TotalLeads         int
	Completed          int
	InWork             int
	Queued             int
	CompletedCents     int64
	AvgCheckCents      int64
	AvgDurationMinutes *int
}

func (r *Repository) ManagerActivity(ctx context.Context, rng Range) ([]ManagerStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.assigned_to, m.full_name,
			COUNT(*),
			COUNT(*) FILTER (WHERE l.status = 'completed'),
			COUNT(*) FILTER (WHERE l.status = 'in_work'),
			COUNT(*) FILTER (WHERE l.status = 'queued'),
			COALESCE(SUM(l.price_cents) FILTER (WHERE l.status = 'completed'), 0),
			COALESCE(AVG(l.price_cents) FILTER (WHERE l.status = 'completed'), 0)::bigint,
			(AVG(EXTRACT(EPOCH FROM (l.status_updated_at - l.created_at)))
				FILTER (WHERE l.status = 'completed' AND l.status_updated_at IS NOT NULL) / 60)::int
		FROM leads l
		JOIN managers m ON m.id = l.assigned_to
		WHERE l.assigned_to IS NOT NULL
		  AND ($1::timestamptz IS NULL OR l.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR l.created_at < $2)
		GROUP BY l.assigned_to, m.full_name
		ORDER BY COUNT(*) DESC`,
		rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]ManagerStats, 0)
	for rows.Next() {
		var s ManagerStats
		if err := rows.Scan(&s.ManagerID, &s.ManagerName, &s.TotalLeads, &s.Completed,
			&s.InWork, &s.Queued, &s.CompletedCents, &s.AvgCheckCents, &s.AvgDurationMinutes); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
