package mailimport

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is one mailbox the importer polls. Rows stored in the
// database take precedence over the environment fallback.
type Settings struct {
	ID          uuid.UUID
	Email       string
	AppPassword string
	IMAPHost    string
	IMAPPort    int
	Folder      string
	Enabled     bool
	CreatedAt   time.Time
}

type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// ListEnabled returns every mailbox configured for import.
func (r *SettingsRepository) ListEnabled(ctx context.Context) ([]Settings, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, app_password, imap_host, imap_port, folder, enabled, created_at
		FROM email_integration_settings
		WHERE enabled
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Settings, 0)
	for rows.Next() {
		var s Settings
		if err := rows.Scan(&s.ID, &s.Email, &s.AppPassword, &s.IMAPHost, &s.IMAPPort,
			&s.Folder, &s.Enabled, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
