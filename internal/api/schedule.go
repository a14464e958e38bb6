package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"studyplan/internal/models"
)

// DateLayout is the format of date-only query parameters.
const DateLayout = "2006-01-02"

// GetSchedule fetches the events the backend associates with the given date.
// The date is sent as the calendar date of ref in ref's own location.
func (c *Client) GetSchedule(ctx context.Context, ref time.Time) ([]models.ScheduleEvent, error) {
	q := url.Values{}
	q.Set("date", ref.Format(DateLayout))

	var items []scheduleEventDTO
	if err := c.do(ctx, http.MethodGet, "/schedule", q, nil, &items); err != nil {
		return nil, err
	}

	events := make([]models.ScheduleEvent, 0, len(items))
	for _, item := range items {
		events = append(events, item.toModel())
	}
	c.logger.Debug("Fetched schedule", "date", q.Get("date"), "count", len(events))
	return events, nil
}

// GenerateSchedule asks the backend to generate a schedule. Parameters are
// sent as query parameters; the end date is omitted when unset. Callers are
// expected to have validated params.
func (c *Client) GenerateSchedule(ctx context.Context, params models.GenerateScheduleParams) (models.GeneratedScheduleResult, error) {
	q := url.Values{}
	if params.EndDate != nil {
		q.Set(models.FieldEndDate, params.EndDate.Format(DateLayout))
	}
	q.Set(models.FieldShortBreakMinutes, strconv.Itoa(params.ShortBreakMinutes))
	q.Set(models.FieldMediumBreakMinutes, strconv.Itoa(params.MediumBreakMinutes))
	q.Set(models.FieldLongBreakMinutes, strconv.Itoa(params.LongBreakMinutes))
	q.Set(models.FieldLongBreakAfterMinutes, strconv.Itoa(params.LongBreakAfterMinutes))

	var resp generateResponseDTO
	if err := c.do(ctx, http.MethodPost, "/schedule/generate", q, nil, &resp); err != nil {
		return models.GeneratedScheduleResult{}, err
	}
	return models.GeneratedScheduleResult{Message: resp.Message, EntriesCreated: resp.EntriesCreated}, nil
}

// EntryInput holds the writable fields of a manually inserted schedule entry.
// On update, zero fields are left unchanged.
type EntryInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TaskID      string // Only sent on create
	SubjectID   string // Only sent on create
	Color       string
}

type entryDTO struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	StartTime   *wireTime `json:"start_time,omitempty"`
	EndTime     *wireTime `json:"end_time,omitempty"`
	TaskID      wireID    `json:"task_id,omitempty"`
	SubjectID   wireID    `json:"subject_id,omitempty"`
	Color       string    `json:"color,omitempty"`
}

func (in EntryInput) toDTO() entryDTO {
	d := entryDTO{
		Title:       in.Title,
		Description: in.Description,
		TaskID:      wireID(in.TaskID),
		SubjectID:   wireID(in.SubjectID),
		Color:       in.Color,
	}
	if !in.Start.IsZero() {
		d.StartTime = &wireTime{Time: in.Start}
	}
	if !in.End.IsZero() {
		d.EndTime = &wireTime{Time: in.End}
	}
	return d
}

func entryPath(id string) string {
	return "/schedule/" + url.PathEscape(id)
}

// CreateEntry inserts a schedule entry by hand.
func (c *Client) CreateEntry(ctx context.Context, in EntryInput) (models.ScheduleEvent, error) {
	var resp scheduleEventDTO
	if err := c.do(ctx, http.MethodPost, "/schedule", nil, in.toDTO(), &resp); err != nil {
		return models.ScheduleEvent{}, err
	}
	return resp.toModel(), nil
}

// GetEntry fetches a single schedule entry.
func (c *Client) GetEntry(ctx context.Context, id string) (models.ScheduleEvent, error) {
	var resp scheduleEventDTO
	if err := c.do(ctx, http.MethodGet, entryPath(id), nil, nil, &resp); err != nil {
		return models.ScheduleEvent{}, err
	}
	return resp.toModel(), nil
}

// UpdateEntry changes the non-zero fields of in on an existing entry.
func (c *Client) UpdateEntry(ctx context.Context, id string, in EntryInput) (models.ScheduleEvent, error) {
	in.TaskID, in.SubjectID = "", ""
	var resp scheduleEventDTO
	if err := c.do(ctx, http.MethodPut, entryPath(id), nil, in.toDTO(), &resp); err != nil {
		return models.ScheduleEvent{}, err
	}
	return resp.toModel(), nil
}

// DeleteEntry removes a schedule entry.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, entryPath(id), nil, nil, nil)
}
