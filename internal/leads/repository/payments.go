package repository

import (
	"context"
	"errors"
	"time"

	"nashcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Payment operation types. The table is append-only: corrections are made
// with compensating records, never by editing history.
const (
	OperationExpected = "expected"
	OperationReceived = "received"
)

type PaymentOperation struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	OperationType string
	AmountCents   int64
	Comment       string
	CreatedAt     time.Time
}

type CreatePaymentParams struct {
	LeadID        uuid.UUID
	OperationType string
	AmountCents   int64
	Comment       string
}

func (r *Repository) CreatePayment(ctx context.Context, params CreatePaymentParams) (PaymentOperation, error) {
	var op PaymentOperation
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_payment_operations (lead_id, operation_type, amount_cents, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, operation_type, amount_cents, comment, created_at
	`, params.LeadID, params.OperationType, params.AmountCents, params.Comment).Scan(
		&op.ID, &op.LeadID, &op.OperationType, &op.AmountCents, &op.Comment, &op.CreatedAt,
	)
	return op, err
}

func (r *Repository) ListPayments(ctx context.Context, leadID uuid.UUID) ([]PaymentOperation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, operation_type, amount_cents, comment, created_at
		FROM lead_payment_operations
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := make([]PaymentOperation, 0)
	for rows.Next() {
		var op PaymentOperation
		if err := rows.Scan(&op.ID, &op.LeadID, &op.OperationType, &op.AmountCents, &op.Comment, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// PaymentSnapshot aggregates the lead's price and payment records into the
// snapshot the transition rules evaluate.
func (r *Repository) PaymentSnapshot(ctx context.Context, leadID uuid.UUID) (domain.PaymentSnapshot, error) {
	var snap domain.PaymentSnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT
			l.price_cents,
			COALESCE(SUM(po.amount_cents) FILTER (WHERE po.operation_type = 'expected'), 0),
			COALESCE(SUM(po.amount_cents) FILTER (WHERE po.operation_type = 'received'), 0),
			COUNT(po.id) > 0
		FROM leads l
		LEFT JOIN lead_payment_operations po ON po.lead_id = l.id
		WHERE l.id = $1
		GROUP BY l.id
	`, leadID).Scan(&snap.PriceCents, &snap.ExpectedCents, &snap.ReceivedCents, &snap.HasPaymentRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentSnapshot{}, ErrNotFound
	}
	return snap, err
}
