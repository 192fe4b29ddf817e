package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nashcrm_backend/internal/clients/metrics"
	"nashcrm_backend/internal/clients/repository"
	"nashcrm_backend/internal/clients/transport"
	"nashcrm_backend/internal/events"
	"nashcrm_backend/platform/apperr"
)

// Title fragments of tasks that count as "reaching out". Recording a
// successful payment closes any open task carrying one of these.
var contactTaskFragments = []string{"contact", "follow-up", "reactivation", "hot"}

var validPriorities = map[string]bool{
	repository.PriorityLow:    true,
	repository.PriorityMedium: true,
	repository.PriorityHigh:   true,
	repository.PriorityUrgent: true,
}

// CreateTask records a follow-up task for a client and announces it so the
// assignee can be notified.
func (s *Service) CreateTask(ctx context.Context, req transport.CreateTaskRequest) (transport.TaskResponse, error) {
	priority := req.Priority
	if priority == "" {
		priority = repository.PriorityMedium
	}
	if !validPriorities[priority] {
		return transport.TaskResponse{}, apperr.Validation("unknown task priority: " + priority)
	}

	client, err := s.repo.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.TaskResponse{}, apperr.NotFound("client not found")
		}
		return transport.TaskResponse{}, apperr.Wrap(apperr.KindInternal, "get client", err)
	}

	assignedTo := req.AssignedTo
	if assignedTo == nil {
		assignedTo = client.AssignedTo
	}

	task, err := s.repo.CreateTask(ctx, repository.CreateTaskParams{
		ClientID:    req.ClientID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  assignedTo,
		Priority:    priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return transport.TaskResponse{}, apperr.Wrap(apperr.KindInternal, "create task", err)
	}

	s.bus.Publish(ctx, events.ClientTaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    task.ID,
		ClientID:  task.ClientID,
		ManagerID: task.AssignedTo,
		Title:     task.Title,
		Priority:  task.Priority,
	})
	return transport.ToTaskResponse(task), nil
}

func (s *Service) ListTasks(ctx context.Context, params repository.ListTasksParams) ([]transport.TaskResponse, error) {
	tasks, err := s.repo.ListTasks(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list tasks", err)
	}
	return transport.ToTaskResponses(tasks), nil
}

func (s *Service) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (transport.TaskResponse, error) {
	task, err := s.repo.UpdateTaskStatus(ctx, id, status)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return transport.TaskResponse{}, apperr.NotFound("task not found")
	}
	if err != nil {
		return transport.TaskResponse{}, apperr.Wrap(apperr.KindInternal, "update task status", err)
	}
	return transport.ToTaskResponse(task), nil
}

// CompleteContactTasks closes the client's open outreach tasks after the
// contact clearly happened, e.g. a payment came in.
func (s *Service) CompleteContactTasks(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return s.repo.CompleteOpenTasksMatching(ctx, clientID, contactTaskFragments)
}

// EnsureUrgentContactTask creates an urgent outreach task for a hot client
// unless one is already open. Returns true when a task was created.
func (s *Service) EnsureUrgentContactTask(ctx context.Context, client repository.Client) (bool, error) {
	return s.ensureTask(ctx, client, taskTemplate{
		fragment:    "Urgent contact",
		title:       fmt.Sprintf("Urgent contact: %s", client.FullName),
		description: fmt.Sprintf("Hot lead with %d enquiries on record. Call within a day.", client.TotalOrders),
		priority:    repository.PriorityUrgent,
		due:         24 * time.Hour,
	})
}

// Churn-risk thresholds: days without a purchase before a buyer is at risk,
// and the lifetime spend above which the task is escalated.
const (
	churnRecencyDays    = 90
	churnHighValueCents = 20_000_00
)

// EnsureChurnRiskTask creates a churn-risk follow-up for a buyer who has
// gone quiet, unless one is already open. Returns true when a task was
// created.
func (s *Service) EnsureChurnRiskTask(ctx context.Context, client repository.Client) (bool, error) {
	if client.TotalOrders < 1 || client.RFMRecency == nil || *client.RFMRecency <= churnRecencyDays {
		return false, nil
	}

	priority := repository.PriorityMedium
	if client.TotalSpentCents > churnHighValueCents {
		priority = repository.PriorityHigh
	}

	return s.ensureTask(ctx, client, taskTemplate{
		fragment: "Churn risk",
		title:    fmt.Sprintf("Churn risk follow-up: %s", client.FullName),
		description: fmt.Sprintf("No purchase for %d days across %d orders. Reach out before the client is lost.",
			*client.RFMRecency, client.TotalOrders),
		priority: priority,
		due:      2 * 24 * time.Hour,
	})
}

// FollowUpSummary counts the tasks generated by one follow-up sweep.
type FollowUpSummary struct {
	Reactivation int
	HotContact   int
	VIPCare      int
}

// CreateFollowUpTasks sweeps the client base and creates follow-up tasks for
// sleeping buyers, hot contacts and VIP clients left without contact for a
// month. Each category is skipped for clients that already carry an open
// task of that kind.
func (s *Service) CreateFollowUpTasks(ctx context.Context, daysInactive int) (FollowUpSummary, error) {
	if daysInactive <= 0 {
		daysInactive = 90
	}
	var summary FollowUpSummary
	now := s.now()

	sleeping, err := s.listByTemperature(ctx, metrics.TemperatureSleeping)
	if err != nil {
		return summary, err
	}
	for _, client := range sleeping {
		if client.TotalOrders == 0 || client.RFMRecency == nil || *client.RFMRecency < daysInactive {
			continue
		}
		created, err := s.ensureTask(ctx, client, taskTemplate{
			fragment: "Reactivation",
			title:    fmt.Sprintf("Reactivation: %s", client.FullName),
			description: fmt.Sprintf("No purchase for %d days. Lifetime spend %d.%02d.",
				*client.RFMRecency, client.TotalSpentCents/100, client.TotalSpentCents%100),
			priority: repository.PriorityMedium,
			due:      3 * 24 * time.Hour,
		})
		if err != nil {
			return summary, err
		}
		if created {
			summary.Reactivation++
		}
	}

	hot, err := s.listByTemperature(ctx, metrics.TemperatureHot)
	if err != nil {
		return summary, err
	}
	for _, client := range hot {
		created, err := s.EnsureUrgentContactTask(ctx, client)
		if err != nil {
			return summary, err
		}
		if created {
			summary.HotContact++
		}
	}

	vips, err := s.listBySegment(ctx, metrics.SegmentVIP)
	if err != nil {
		return summary, err
	}
	cutoff := now.Add(-30 * 24 * time.Hour)
	for _, client := range vips {
		if client.LastContactDate == nil || !client.LastContactDate.Before(cutoff) {
			continue
		}
		created, err := s.ensureTask(ctx, client, taskTemplate{
			fragment: "VIP care",
			title:    fmt.Sprintf("VIP care: %s", client.FullName),
			description: fmt.Sprintf("VIP client without contact for over a month. Lifetime spend %d.%02d.",
				client.TotalSpentCents/100, client.TotalSpentCents%100),
			priority: repository.PriorityHigh,
			due:      24 * time.Hour,
		})
		if err != nil {
			return summary, err
		}
		if created {
			summary.VIPCare++
		}
	}
	return summary, nil
}

type taskTemplate struct {
	fragment    string
	title       string
	description string
	priority    string
	due         time.Duration
}

func (s *Service) ensureTask(ctx context.Context, client repository.Client, tpl taskTemplate) (bool, error) {
	open, err := s.repo.HasOpenTaskTitled(ctx, client.ID, tpl.fragment)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "check open tasks", err)
	}
	if open {
		return false, nil
	}

	task, err := s.repo.CreateTask(ctx, repository.CreateTaskParams{
		ClientID:    client.ID,
		Title:       tpl.title,
		Description: tpl.description,
		AssignedTo:  client.AssignedTo,
		Priority:    tpl.priority,
		DueDate:     s.now().Add(tpl.due),
	})
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "create follow-up task", err)
	}

	s.bus.Publish(ctx, events.ClientTaskCreated{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    task.ID,
		ClientID:  task.ClientID,
		ManagerID: task.AssignedTo,
		Title:     task.Title,
		Priority:  task.Priority,
	})
	return true, nil
}

func (s *Service) listByTemperature(ctx context.Context, temperature string) ([]repository.Client, error) {
	clients, _, err := s.repo.List(ctx, repository.ListClientsParams{Temperature: &temperature, Limit: 200})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list clients by temperature", err)
	}
	return clients, nil
}

func (s *Service) listBySegment(ctx context.Context, segment string) ([]repository.Client, error) {
	clients, _, err := s.repo.List(ctx, repository.ListClientsParams{AKBSegment: &segment, Limit: 200})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list clients by segment", err)
	}
	return clients, nil
}
