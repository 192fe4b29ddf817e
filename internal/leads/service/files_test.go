package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"nashcrm_backend/internal/leads/repository"
	"nashcrm_backend/internal/storage"
	"nashcrm_backend/platform/apperr"
)

type fakeFileStore struct {
	uploaded []string
	deleted  []string
	failNext bool
}

func (f *fakeFileStore) UploadFile(_ context.Context, _, folder, fileName, _ string, _ io.Reader, _ int64) (string, error) {
	if f.failNext {
		return "", fmt.Errorf("content type not allowed")
	}
	key := folder + "/" + fileName
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeFileStore) GenerateDownloadURL(_ context.Context, bucket, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{
		URL:       "https://minio.local/" + bucket + "/" + fileKey,
		FileKey:   fileKey,
		ExpiresAt: time.Now().Add(storage.DownloadURLTTL),
	}, nil
}

func (f *fakeFileStore) DeleteObject(_ context.Context, _, fileKey string) error {
	f.deleted = append(f.deleted, fileKey)
	return nil
}

func seedLead(repo *fakeRepo) repository.Lead {
	lead := repository.Lead{ID: uuid.New(), FullName: "Олена Шевченко", Phone: "380671234567", Status: "in_work"}
	repo.leads[lead.ID] = lead
	return lead
}

func TestAttachFileStoresObjectAndRow(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo)
	svc, _ := newTestService(repo)
	store := &fakeFileStore{}
	svc.SetFileStore(store, "lead-files")

	manager := uuid.New()
	resp, err := svc.AttachFile(context.Background(), lead.ID, "invoice.pdf", "application/pdf",
		strings.NewReader("%PDF-"), 5, &manager)
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	if len(store.uploaded) != 1 || store.uploaded[0] != lead.ID.String()+"/invoice.pdf" {
		t.Fatalf("unexpected uploads: %v", store.uploaded)
	}
	if resp.FileName != "invoice.pdf" || resp.LeadID != lead.ID {
		t.Fatalf("unexpected response: %+v", resp)
	}

	files, err := svc.ListFiles(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
}

func TestAttachFileUnknownLead(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	svc.SetFileStore(&fakeFileStore{}, "lead-files")

	_, err := svc.AttachFile(context.Background(), uuid.New(), "invoice.pdf", "application/pdf",
		strings.NewReader("x"), 1, nil)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttachFileRejectedUpload(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo)
	svc, _ := newTestService(repo)
	svc.SetFileStore(&fakeFileStore{failNext: true}, "lead-files")

	_, err := svc.AttachFile(context.Background(), lead.ID, "virus.exe", "application/octet-stream",
		strings.NewReader("x"), 1, nil)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFileDownloadURLAndDelete(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo)
	svc, _ := newTestService(repo)
	store := &fakeFileStore{}
	svc.SetFileStore(store, "lead-files")

	resp, err := svc.AttachFile(context.Background(), lead.ID, "photo.png", "image/png",
		strings.NewReader("png"), 3, nil)
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	link, err := svc.FileDownloadURL(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("FileDownloadURL: %v", err)
	}
	if !strings.Contains(link.URL, "lead-files") {
		t.Fatalf("unexpected URL: %s", link.URL)
	}

	if err := svc.DeleteFile(context.Background(), resp.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected stored object removal, got %v", store.deleted)
	}
	if _, err := svc.FileDownloadURL(context.Background(), resp.ID); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestAttachFileWithoutStorageConfigured(t *testing.T) {
	repo := newFakeRepo()
	lead := seedLead(repo)
	svc, _ := newTestService(repo)

	_, err := svc.AttachFile(context.Background(), lead.ID, "invoice.pdf", "application/pdf",
		strings.NewReader("x"), 1, nil)
	if apperr.GetKind(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}
