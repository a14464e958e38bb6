package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"studyplan/internal/models"
)

// TaskInput holds the writable fields of a task.
type TaskInput struct {
	SubjectID        string
	Title            string
	Description      string
	Priority         models.TaskPriority
	Status           models.TaskStatus // Only sent on update
	Deadline         time.Time
	EstimatedMinutes int
}

func (in TaskInput) toDTO() taskDTO {
	return taskDTO{
		SubjectID:        wireID(in.SubjectID),
		Title:            in.Title,
		Description:      in.Description,
		Status:           string(in.Status),
		Priority:         string(in.Priority),
		Deadline:         wireTime{Time: in.Deadline},
		EstimatedMinutes: in.EstimatedMinutes,
	}
}

// ListTasks returns the user's tasks, optionally restricted to one subject.
func (c *Client) ListTasks(ctx context.Context, subjectID string) ([]models.Task, error) {
	var q url.Values
	if subjectID != "" {
		q = url.Values{"subject_id": {subjectID}}
	}
	var items []taskDTO
	if err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &items); err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, item.toModel())
	}
	return tasks, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	in.Status = ""
	var resp taskDTO
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, in.toDTO(), &resp); err != nil {
		return models.Task{}, err
	}
	return resp.toModel(), nil
}

// UpdateTask replaces the writable fields of a task.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (models.Task, error) {
	var resp taskDTO
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, in.toDTO(), &resp); err != nil {
		return models.Task{}, err
	}
	return resp.toModel(), nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

// ExportTasksCSV writes the backend's CSV export of all tasks to w and
// returns the number of bytes written.
func (c *Client) ExportTasksCSV(ctx context.Context, w io.Writer) (int64, error) {
	return c.download(ctx, "/tasks/csv", "text/csv", w)
}
