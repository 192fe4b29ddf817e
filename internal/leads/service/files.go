package service

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"nashcrm_backend/internal/leads/repository"
	"nashcrm_backend/internal/leads/transport"
	"nashcrm_backend/internal/storage"
	"nashcrm_backend/platform/apperr"
)

// FileStore is the slice of object storage the leads service needs for
// attachments.
type FileStore interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
	DeleteObject(ctx context.Context, bucket, fileKey string) error
}

// AttachFile streams an upload into object storage and records the
// attachment row. The object key is namespaced by lead ID.
func (s *Service) AttachFile(ctx context.Context, leadID uuid.UUID, fileName, contentType string, r io.Reader, size int64, uploadedBy *uuid.UUID) (transport.LeadFileResponse, error) {
	if s.store == nil {
		return transport.LeadFileResponse{}, apperr.Internal("attachment storage is not configured").WithOp("leads.AttachFile")
	}
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadFileResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadFileResponse{}, err
	}

	fileKey, err := s.store.UploadFile(ctx, s.fileBucket, leadID.String(), fileName, contentType, r, size)
	if err != nil {
		return transport.LeadFileResponse{}, apperr.Wrap(apperr.KindValidation, "upload rejected", err).WithOp("leads.AttachFile")
	}

	file, err := s.repo.CreateFile(ctx, repository.CreateFileParams{
		LeadID:      leadID,
		FileName:    fileName,
		FileKey:     fileKey,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedBy:  uploadedBy,
	})
	if err != nil {
		// Best effort cleanup so the bucket does not accumulate
		// rows-less objects.
		if delErr := s.store.DeleteObject(ctx, s.fileBucket, fileKey); delErr != nil {
			s.log.EffectError("remove orphaned upload", delErr)
		}
		return transport.LeadFileResponse{}, err
	}

	s.log.Info("lead file attached", "lead_id", leadID, "file_id", file.ID, "size", size)
	return transport.ToLeadFileResponse(file), nil
}

// ListFiles returns the attachment metadata for a lead.
func (s *Service) ListFiles(ctx context.Context, leadID uuid.UUID) ([]transport.LeadFileResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, err
	}
	files, err := s.repo.ListFilesByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return transport.ToLeadFileResponses(files), nil
}

// FileDownloadURL produces a short-lived presigned link for one attachment.
func (s *Service) FileDownloadURL(ctx context.Context, fileID uuid.UUID) (*storage.PresignedURL, error) {
	if s.store == nil {
		return nil, apperr.Internal("attachment storage is not configured").WithOp("leads.FileDownloadURL")
	}
	file, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("file not found")
		}
		return nil, err
	}
	return s.store.GenerateDownloadURL(ctx, s.fileBucket, file.FileKey)
}

// DeleteFile removes the attachment row and its stored object.
func (s *Service) DeleteFile(ctx context.Context, fileID uuid.UUID) error {
	file, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("file not found")
		}
		return err
	}
	if err := s.repo.DeleteFile(ctx, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("file not found")
		}
		return err
	}
	if s.store != nil {
		if err := s.store.DeleteObject(ctx, s.fileBucket, file.FileKey); err != nil {
			s.log.EffectError("delete stored attachment", err)
		}
	}
	return nil
}
