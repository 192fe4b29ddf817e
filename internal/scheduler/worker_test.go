package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"nashcrm_backend/internal/clients/service"
	"nashcrm_backend/internal/email"
	"nashcrm_backend/internal/reports/repository"
	"nashcrm_backend/platform/logger"
)

type fakeSweeper struct {
	sweepDays   []int
	refreshRuns int
	summary     service.FollowUpSummary
}

func (f *fakeSweeper) CreateFollowUpTasks(_ context.Context, daysInactive int) (service.FollowUpSummary, error) {
	f.sweepDays = append(f.sweepDays, daysInactive)
	return f.summary, nil
}

func (f *fakeSweeper) RefreshAllMetrics(context.Context) (int, error) {
	f.refreshRuns++
	return 7, nil
}

type fakeReports struct {
	snapshot repository.DailySnapshot
	err      error
}

func (f *fakeReports) DailySnapshot(context.Context, time.Time) (repository.DailySnapshot, error) {
	return f.snapshot, f.err
}

type fakeSender struct {
	email.NoopSender
	reports []email.DailyReportData
	to      []string
}

func (f *fakeSender) SendDailyReport(_ context.Context, toEmail string, data email.DailyReportData) error {
	f.to = append(f.to, toEmail)
	f.reports = append(f.reports, data)
	return nil
}

func newTestWorker(sweeper *fakeSweeper, reports *fakeReports, sender *fakeSender, recipient string) *Worker {
	return &Worker{
		clients:   sweeper,
		reports:   reports,
		sender:    sender,
		recipient: recipient,
		log:       logger.New("test"),
		now:       func() time.Time { return time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC) },
	}
}

func TestDailyReportSendsSnapshot(t *testing.T) {
	sender := &fakeSender{}
	reports := &fakeReports{snapshot: repository.DailySnapshot{
		NewLeads:       12,
		CompletedLeads: 4,
		DeclinedLeads:  1,
		ReceivedCents:  150_000_00,
		QueuedLeads:    3,
		InWorkLeads:    8,
	}}
	w := newTestWorker(&fakeSweeper{}, reports, sender, "boss@crm.test")

	if err := w.handleDailyReport(context.Background(), NewDailyReportTask()); err != nil {
		t.Fatalf("handleDailyReport: %v", err)
	}
	if len(sender.reports) != 1 {
		t.Fatalf("sent %d reports, want 1", len(sender.reports))
	}
	if sender.to[0] != "boss@crm.test" {
		t.Fatalf("recipient = %q", sender.to[0])
	}
	got := sender.reports[0]
	if got.Date != "2026-03-14" {
		t.Fatalf("date = %q", got.Date)
	}
	if got.NewLeads != 12 || got.ReceivedCents != 150_000_00 {
		t.Fatalf("snapshot not carried through: %+v", got)
	}
}

func TestDailyReportSkippedWithoutRecipient(t *testing.T) {
	sender := &fakeSender{}
	w := newTestWorker(&fakeSweeper{}, &fakeReports{}, sender, "")

	if err := w.handleDailyReport(context.Background(), NewDailyReportTask()); err != nil {
		t.Fatalf("handleDailyReport: %v", err)
	}
	if len(sender.reports) != 0 {
		t.Fatal("report should not be sent without a recipient")
	}
}

func TestDailyReportPropagatesSnapshotError(t *testing.T) {
	w := newTestWorker(&fakeSweeper{}, &fakeReports{err: errors.New("db down")}, &fakeSender{}, "boss@crm.test")

	if err := w.handleDailyReport(context.Background(), NewDailyReportTask()); err == nil {
		t.Fatal("expected the snapshot error to surface for retry")
	}
}

func TestFollowUpSweepPassesDaysInactive(t *testing.T) {
	sweeper := &fakeSweeper{}
	w := newTestWorker(sweeper, &fakeReports{}, &fakeSender{}, "")

	task, err := NewFollowUpSweepTask(FollowUpSweepPayload{DaysInactive: 45})
	if err != nil {
		t.Fatalf("NewFollowUpSweepTask: %v", err)
	}
	if err := w.handleFollowUpSweep(context.Background(), task); err != nil {
		t.Fatalf("handleFollowUpSweep: %v", err)
	}
	if len(sweeper.sweepDays) != 1 || sweeper.sweepDays[0] != 45 {
		t.Fatalf("sweep days = %v, want [45]", sweeper.sweepDays)
	}
}

func TestMetricsRefreshRunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{}
	w := newTestWorker(sweeper, &fakeReports{}, &fakeSender{}, "")

	if err := w.handleMetricsRefresh(context.Background(), NewMetricsRefreshTask()); err != nil {
		t.Fatalf("handleMetricsRefresh: %v", err)
	}
	if sweeper.refreshRuns != 1 {
		t.Fatalf("refresh runs = %d, want 1", sweeper.refreshRuns)
	}
}
