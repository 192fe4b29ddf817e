package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LeadFile is one attachment uploaded for a lead.
type LeadFile struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	FileName    string
	FileKey     string
	ContentType string
	SizeBytes   int64
	UploadedBy  *uuid.UUID
	CreatedAt   time.Time
}

const leadFileColumns = `id, lead_id, file_name, file_key, content_type, size_bytes, uploaded_by, created_at`

func scanLeadFile(row pgx.Row) (LeadFile, error) {
	var f LeadFile
	err := row.Scan(&f.ID, &f.LeadID, &f.FileName, &f.FileKey, &f.ContentType,
		&f.SizeBytes, &f.UploadedBy, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadFile{}, ErrNotFound
	}
	return f, err
}

type CreateFileParams struct {
	LeadID      uuid.UUID
	FileName    string
	FileKey     string
	ContentType string
	SizeBytes   int64
	UploadedBy  *uuid.UUID
}

func (r *Repository) CreateFile(ctx context.Context, p CreateFileParams) (LeadFile, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO lead_files (lead_id, file_name, file_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+leadFileColumns,
		p.LeadID, p.FileName, p.FileKey, p.ContentType, p.SizeBytes, p.UploadedBy)
	return scanLeadFile(row)
}

func (r *Repository) GetFile(ctx context.Context, id uuid.UUID) (LeadFile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadFileColumns+` FROM lead_files WHERE id = $1`, id)
	return scanLeadFile(row)
}

func (r *Repository) ListFilesByLead(ctx context.Context, leadID uuid.UUID) ([]LeadFile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadFileColumns+` FROM lead_files WHERE lead_id = $1 ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make([]LeadFile, 0)
	for rows.Next() {
		f, err := scanLeadFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *Repository) DeleteFile(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lead_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
