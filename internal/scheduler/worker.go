package scheduler

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"nashcrm_backend/internal/clients/service"
	"nashcrm_backend/internal/email"
	"nashcrm_backend/internal/reports/repository"
	"nashcrm_backend/platform/config"
	"nashcrm_backend/platform/logger"
)

// ClientSweeper is the slice of the clients service the worker needs.
type ClientSweeper interface {
	CreateFollowUpTasks(ctx context.Context, daysInactive int) (service.FollowUpSummary, error)
	RefreshAllMetrics(ctx context.Context) (int, error)
}

// ReportSource supplies the figures for the daily report email.
type ReportSource interface {
	DailySnapshot(ctx context.Context, now time.Time) (repository.DailySnapshot, error)
}

// Worker runs the background maintenance jobs: the nightly metrics
// refresh, the follow-up sweep and the end-of-day report email.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	clients   ClientSweeper
	reports   ReportSource
	sender    email.Sender
	recipient string
	log       *logger.Logger
	now       func() time.Time
}

func NewWorker(cfg config.SchedulerConfig, clients ClientSweeper, reports ReportSource,
	sender email.Sender, reportRecipient string, log *logger.Logger) (*Worker, error) {

	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{}),
		mux:       mux,
		clients:   clients,
		reports:   reports,
		sender:    sender,
		recipient: reportRecipient,
		log:       log,
		now:       time.Now,
	}

	mux.HandleFunc(TaskDailyReport, w.handleDailyReport)
	mux.HandleFunc(TaskFollowUpSweep, w.handleFollowUpSweep)
	mux.HandleFunc(TaskMetricsRefresh, w.handleMetricsRefresh)

	if err := w.registerSchedule(queue); err != nil {
		return nil, err
	}
	return w, nil
}

// registerSchedule wires the recurring jobs. Metrics refresh runs before
// the follow-up sweep so the sweep sees fresh temperatures.
func (w *Worker) registerSchedule(queue string) error {
	followUp, err := NewFollowUpSweepTask(FollowUpSweepPayload{})
	if err != nil {
		return err
	}

	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{"0 3 * * *", NewMetricsRefreshTask()},
		{"0 9 * * *", followUp},
		{"0 18 * * *", NewDailyReportTask()},
	}
	for _, e := range entries {
		if _, err := w.scheduler.Register(e.spec, e.task, asynq.Queue(queue)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) handleDailyReport(ctx context.Context, _ *asynq.Task) error {
	if w.recipient == "" {
		w.log.Warn("daily report skipped, no recipient configured")
		return nil
	}

	now := w.now()
	snapshot, err := w.reports.DailySnapshot(ctx, now)
	if err != nil {
		return err
	}

	err = w.sender.SendDailyReport(ctx, w.recipient, email.DailyReportData{
		Date:           now.Format("2006-01-02"),
		NewLeads:       snapshot.NewLeads,
		CompletedLeads: snapshot.CompletedLeads,
		DeclinedLeads:  snapshot.DeclinedLeads,
		ReceivedCents:  snapshot.ReceivedCents,
		QueuedLeads:    snapshot.QueuedLeads,
		InWorkLeads:    snapshot.InWorkLeads,
	})
	if err != nil {
		return err
	}

	w.log.Info("daily report sent",
		"recipient", w.recipient,
		"new_leads", snapshot.NewLeads,
		"completed", snapshot.CompletedLeads)
	return nil
}

func (w *Worker) handleFollowUpSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpSweepPayload(task)
	if err != nil {
		return err
	}

	summary, err := w.clients.CreateFollowUpTasks(ctx, payload.DaysInactive)
	if err != nil {
		return err
	}

	w.log.Info("follow-up sweep finished",
		"reactivation", summary.Reactivation,
		"hot_contact", summary.HotContact,
		"vip_care", summary.VIPCare)
	return nil
}

func (w *Worker) handleMetricsRefresh(ctx context.Context, _ *asynq.Task) error {
	refreshed, err := w.clients.RefreshAllMetrics(ctx)
	if err != nil {
		return err
	}

	w.log.Info("client metrics refreshed", "clients", refreshed)
	return nil
}

// Run starts the cron scheduler and the task server. It blocks until
// the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("cron scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
