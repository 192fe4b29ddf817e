package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDailyReport = "reports.daily_email"

const TaskFollowUpSweep = "clients.followup_sweep"

const TaskMetricsRefresh = "clients.metrics_refresh"

type FollowUpSweepPayload struct {
	DaysInactive int `json:"daysInactive"`
}

func NewDailyReportTask() *asynq.Task {
	return asynq.NewTask(TaskDailyReport, nil)
}

func NewFollowUpSweepTask(payload FollowUpSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpSweep, data), nil
}

func ParseFollowUpSweepPayload(task *asynq.Task) (FollowUpSweepPayload, error) {
	var payload FollowUpSweepPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpSweepPayload{}, err
	}
	return payload, nil
}

func NewMetricsRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskMetricsRefresh, nil)
}
