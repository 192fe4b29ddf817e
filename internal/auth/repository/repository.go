package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("manager not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Manager is a staff account. Role controls which lead statuses the
// account may set and whether admin routes are reachable.
type Manager struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

const managerColumns = `id, email, full_name, role, password_hash, is_active, created_at`

func scanManager(row pgx.Row) (Manager, error) {
	var m Manager
	err := row.Scan(&m.ID, &m.Email, &m.FullName, &m.Role, &m.PasswordHash, &m.IsActive, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Manager{}, ErrNotFound
	}
	return m, err
}

type CreateManagerParams struct {
	Email        string
	FullName     string
	Role         string
	PasswordHash string
}

func (r *Repository) CreateManager(ctx context.Context, p CreateManagerParams) (Manager, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO managers (email, full_name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+managerColumns,
		p.Email, p.FullName, p.Role, p.PasswordHash)
	return scanManager(row)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Manager, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+managerColumns+` FROM managers WHERE email = $1`, email)
	return scanManager(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Manager, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+managerColumns+` FROM managers WHERE id = $1`, id)
	return scanManager(row)
}

func (r *Repository) List(ctx context.Context) ([]Manager, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+managerColumns+` FROM managers ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	managers := make([]Manager, 0)
	for rows.Next() {
		m, err := scanManager(rows)
		if err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}
	return managers, rows.Err()
}

func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE managers SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE managers SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE managers SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CreateRefreshToken(ctx context.Context, managerID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (manager_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`,
		managerID, tokenHash, expiresAt)
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var managerID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT manager_id, expires_at FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash).Scan(&managerID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, ErrNotFound
	}
	return managerID, expiresAt, err
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash)
	return err
}

func (r *Repository) RevokeAllRefreshTokens(ctx context.Context, managerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE manager_id = $1 AND revoked_at IS NULL`, managerID)
	return err
}
