package planner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"studyplan/internal/api"
	"studyplan/internal/models"
	"studyplan/internal/querycache"
)

// Subjects returns the user's subjects through the query cache.
func (p *Planner) Subjects(ctx context.Context) ([]models.Subject, error) {
	return querycache.Fetch(ctx, p.cache, querycache.NewKey(querycache.ResourceSubjects), p.client.ListSubjects)
}

// Tasks returns the user's tasks, optionally restricted to one subject.
func (p *Planner) Tasks(ctx context.Context, subjectID string) ([]models.Task, error) {
	var key querycache.Key
	if subjectID == "" {
		key = querycache.NewKey(querycache.ResourceTasks)
	} else {
		key = querycache.NewKey(querycache.ResourceTasks, "subject_id", subjectID)
	}
	return querycache.Fetch(ctx, p.cache, key, func(ctx context.Context) ([]models.Task, error) {
		return p.client.ListTasks(ctx, subjectID)
	})
}

// Statistics returns the progress summary for period.
func (p *Planner) Statistics(ctx context.Context, period string) (models.Statistics, error) {
	if period == "" {
		period = api.PeriodWeek
	}
	key := querycache.NewKey(querycache.ResourceStatistics, "period", period)
	return querycache.Fetch(ctx, p.cache, key, func(ctx context.Context) (models.Statistics, error) {
		return p.client.GetStatistics(ctx, period)
	})
}

// SubjectNames maps subject IDs to names for labelling events.
func (p *Planner) SubjectNames(ctx context.Context) (map[string]models.Subject, error) {
	subjects, err := p.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Subject, len(subjects))
	for _, s := range subjects {
		out[s.ID] = s
	}
	return out, nil
}

func (p *Planner) CreateSubject(ctx context.Context, name, description string) (models.Subject, error) {
	s, err := p.client.CreateSubject(ctx, name, description)
	if err != nil {
		return models.Subject{}, fmt.Errorf("failed to create subject: %w", err)
	}
	p.cache.Invalidate(querycache.ResourceSubjects, querycache.ResourceStatistics)
	p.logger.Info("Created subject", "id", s.ID, "name", s.Name)
	return s, nil
}

// UpdateSubject renames a subject. Events take their label from the subject,
// so the schedule is refetched too.
func (p *Planner) UpdateSubject(ctx context.Context, id, name, description string) (models.Subject, error) {
	if strings.TrimSpace(name) == "" {
		return models.Subject{}, &models.ValidationError{Field: "name", Message: "subject name is required"}
	}
	s, err := p.client.UpdateSubject(ctx, id, name, description)
	if err != nil {
		return models.Subject{}, fmt.Errorf("failed to update subject: %w", err)
	}
	p.cache.Invalidate(querycache.ResourceSubjects, querycache.ResourceSchedule, querycache.ResourceStatistics)
	p.logger.Info("Updated subject", "id", s.ID, "name", s.Name)
	return s, nil
}

// DeleteSubject removes a subject. The backend deletes its tasks and sessions too.
func (p *Planner) DeleteSubject(ctx context.Context, id string) error {
	if err := p.client.DeleteSubject(ctx, id); err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}
	p.cache.Invalidate(querycache.ResourceSubjects, querycache.ResourceTasks,
		querycache.ResourceSchedule, querycache.ResourceStatistics)
	p.logger.Info("Deleted subject", "id", id)
	return nil
}

func (p *Planner) CreateTask(ctx context.Context, in api.TaskInput) (models.Task, error) {
	t, err := p.client.CreateTask(ctx, in)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	p.invalidateTasks()
	p.logger.Info("Created task", "id", t.ID, "title", t.Title)
	return t, nil
}

func (p *Planner) UpdateTask(ctx context.Context, id string, in api.TaskInput) (models.Task, error) {
	t, err := p.client.UpdateTask(ctx, id, in)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	p.invalidateTasks()
	p.logger.Info("Updated task", "id", t.ID, "status", t.Status)
	return t, nil
}

func (p *Planner) DeleteTask(ctx context.Context, id string) error {
	if err := p.client.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	p.invalidateTasks()
	p.logger.Info("Deleted task", "id", id)
	return nil
}

func (p *Planner) invalidateTasks() {
	p.cache.Invalidate(querycache.ResourceTasks, querycache.ResourceSchedule, querycache.ResourceStatistics)
}

// ExportTasksCSV writes the task export to w. Exports are not cached.
func (p *Planner) ExportTasksCSV(ctx context.Context, w io.Writer) (int64, error) {
	n, err := p.client.ExportTasksCSV(ctx, w)
	if err != nil {
		return n, fmt.Errorf("failed to export tasks: %w", err)
	}
	return n, nil
}

// validateEntry checks a manual entry before it is sent. On update only the
// fields being changed are checked.
func validateEntry(in api.EntryInput, create bool) error {
	if create && strings.TrimSpace(in.Title) == "" {
		return &models.ValidationError{Field: "title", Message: "title is required"}
	}
	if create && (in.Start.IsZero() || in.End.IsZero()) {
		return &models.ValidationError{Field: "start_time", Message: "start and end time are required"}
	}
	if !in.Start.IsZero() && !in.End.IsZero() && !in.End.After(in.Start) {
		return &models.ValidationError{Field: "end_time", Message: "end time must be after start time"}
	}
	return nil
}

// CreateEntry inserts a schedule entry by hand.
func (p *Planner) CreateEntry(ctx context.Context, in api.EntryInput) (models.ScheduleEvent, error) {
	if err := validateEntry(in, true); err != nil {
		return models.ScheduleEvent{}, err
	}
	ev, err := p.client.CreateEntry(ctx, in)
	if err != nil {
		return models.ScheduleEvent{}, fmt.Errorf("failed to create schedule entry: %w", err)
	}
	p.invalidateSchedule()
	p.logger.Info("Created schedule entry", "id", ev.ID, "title", ev.Title)
	return ev, nil
}

// Entry returns a single schedule entry, bypassing the cache.
func (p *Planner) Entry(ctx context.Context, id string) (models.ScheduleEvent, error) {
	ev, err := p.client.GetEntry(ctx, id)
	if err != nil {
		return models.ScheduleEvent{}, fmt.Errorf("failed to load schedule entry: %w", err)
	}
	return ev, nil
}

// UpdateEntry changes the non-zero fields of in on entry id.
func (p *Planner) UpdateEntry(ctx context.Context, id string, in api.EntryInput) (models.ScheduleEvent, error) {
	if err := validateEntry(in, false); err != nil {
		return models.ScheduleEvent{}, err
	}
	ev, err := p.client.UpdateEntry(ctx, id, in)
	if err != nil {
		return models.ScheduleEvent{}, fmt.Errorf("failed to update schedule entry: %w", err)
	}
	p.invalidateSchedule()
	p.logger.Info("Updated schedule entry", "id", ev.ID)
	return ev, nil
}

func (p *Planner) DeleteEntry(ctx context.Context, id string) error {
	if err := p.client.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule entry: %w", err)
	}
	p.invalidateSchedule()
	p.logger.Info("Deleted schedule entry", "id", id)
	return nil
}

func (p *Planner) invalidateSchedule() {
	p.cache.Invalidate(querycache.ResourceSchedule, querycache.ResourceStatistics)
}
