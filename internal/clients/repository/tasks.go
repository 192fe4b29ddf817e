package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrTaskNotFound = errors.New("task not found")

// Task priorities and statuses.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskCancelled  = "cancelled"
)

type ClientTask struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Title       string
	Description string
	AssignedTo  *uuid.UUID
	Priority    string
	Status      string
	DueDate     time.Time
	CreatedAt   time.Time
	CompletedAt *time.Time
}

const taskColumns = `id, client_id, title, description, assigned_to, priority, status, due_date, created_at, completed_at`

func scanTask(row pgx.Row) (ClientTask, error) {
	var t ClientTask
	err := row.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.AssignedTo,
		&t.Priority, &t.Status, &t.DueDate, &t.CreatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ClientTask{}, ErrTaskNotFound
	}
	return t, err
}

type CreateTaskParams struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	AssignedTo  *uuid.UUID
	Priority    string
	DueDate     time.Time
}

func (r *Repository) CreateTask(ctx context.Context, params CreateTaskParams) (ClientTask, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO client_tasks (client_id, title, description, assigned_to, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+taskColumns,
		params.ClientID, params.Title, params.Description, params.AssignedTo, params.Priority, params.DueDate,
	)
	return scanTask(row)
}

func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (ClientTask, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM client_tasks WHERE id = $1`, id)
	return scanTask(row)
}

type ListTasksParams struct {
	ClientID   *uuid.UUID
	AssignedTo *uuid.UUID
	Status     *string
	DueBefore  *time.Time
	Limit      int
	Offset     int
}

func (r *Repository) ListTasks(ctx context.Context, params ListTasksParams) ([]ClientTask, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM client_tasks
		WHERE ($1::uuid IS NULL OR client_id = $1)
		  AND ($2::uuid IS NULL OR assigned_to = $2)
		  AND ($3::text IS NULL OR status = $3)
		  AND ($4::timestamptz IS NULL OR due_date <= $4)
		ORDER BY due_date ASC, priority DESC
		LIMIT $5 OFFSET $6
	`, params.ClientID, params.AssignedTo, params.Status, params.DueBefore, limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]ClientTask, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus moves a task between statuses and stamps completion.
func (r *Repository) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (ClientTask, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE client_tasks SET
			status = $2,
			completed_at = CASE WHEN $2 IN ('completed', 'cancelled') THEN now() ELSE NULL END
		WHERE id = $1
		RETURNING `+taskColumns,
		id, status,
	)
	return scanTask(row)
}

// HasOpenTaskTitled reports whether the client has a pending or in-progress
// task whose title contains the given fragment.
func (r *Repository) HasOpenTaskTitled(ctx context.Context, clientID uuid.UUID, fragment string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM client_tasks
			WHERE client_id = $1
			  AND status IN ('pending', 'in_progress')
			  AND title ILIKE '%' || $2 || '%'
		)
	`, clientID, fragment).Scan(&exists)
	return exists, err
}

// CompleteOpenTasksMatching closes the client's open tasks whose titles
// match any of the fragments, and returns how many were closed. Used when a
// received payment makes contact tasks moot.
func (r *Repository) CompleteOpenTasksMatching(ctx context.Context, clientID uuid.UUID, fragments []string) (int64, error) {
	if len(fragments) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE client_tasks SET status = 'completed', completed_at = now()
		WHERE client_id = $1
		  AND status IN ('pending', 'in_progress')
		  AND title ILIKE ANY (SELECT '%' || unnest($2::text[]) || '%')
	`, clientID, fragments)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
