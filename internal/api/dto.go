package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studyplan/internal/models"
)

// wireID accepts numeric or string identifiers and nulls; the client treats
// all of them as opaque strings.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = wireID(n.String())
	return nil
}

// MarshalJSON writes numeric IDs as numbers, which the backend requires for
// foreign keys, and anything else as a string.
func (id wireID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// wireTime parses the backend's timestamps. Naive timestamps (no offset) are UTC.
type wireTime struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t wireTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

type scheduleEventDTO struct {
	ID          wireID   `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	StartTime   wireTime `json:"start_time"`
	EndTime     wireTime `json:"end_time"`
	TaskID      wireID   `json:"task_id"`
	SubjectID   wireID   `json:"subject_id"`
	Color       string   `json:"color"`
}

func (d scheduleEventDTO) toModel() models.ScheduleEvent {
	ev := models.ScheduleEvent{
		ID:        string(d.ID),
		TaskID:    string(d.TaskID),
		SubjectID: string(d.SubjectID),
		Title:     d.Title,
		StartTime: d.StartTime.Time,
		EndTime:   d.EndTime.Time,
		Color:     d.Color,
	}
	if d.Description != nil {
		ev.Description = *d.Description
	}
	return ev
}

type generateResponseDTO struct {
	Message        string `json:"message"`
	EntriesCreated int    `json:"entries_created"`
}

type subjectDTO struct {
	ID          wireID  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color,omitempty"`
}

func (d subjectDTO) toModel() models.Subject {
	s := models.Subject{ID: string(d.ID), Name: d.Name, Color: d.Color}
	if d.Description != nil {
		s.Description = *d.Description
	}
	return s
}

type taskDTO struct {
	ID               wireID   `json:"id,omitempty"`
	SubjectID        wireID   `json:"subject_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Status           string   `json:"status,omitempty"`
	Priority         string   `json:"priority"`
	Deadline         wireTime `json:"deadline"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

func (d taskDTO) toModel() models.Task {
	return models.Task{
		ID:               string(d.ID),
		SubjectID:        string(d.SubjectID),
		Title:            d.Title,
		Description:      d.Description,
		Status:           models.TaskStatus(d.Status),
		Priority:         models.TaskPriority(d.Priority),
		Deadline:         d.Deadline.Time,
		EstimatedMinutes: d.EstimatedMinutes,
	}
}

type userDTO struct {
	ID       wireID `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (d userDTO) toModel() models.User {
	return models.User{ID: string(d.ID), Email: d.Email, Username: d.Username}
}

type authResponseDTO struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        userDTO `json:"user"`
}

type statisticsDTO struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
	CompletionRate float64 `json:"completion_rate"`
	TotalHours     float64 `json:"total_hours"`
	SubjectStats   []struct {
		SubjectName    string  `json:"subject_name"`
		CompletedTasks int     `json:"completed_tasks"`
		TotalTimeHours float64 `json:"total_time_hours"`
	} `json:"subject_stats"`
	WeeklyProgress []struct {
		Day            string  `json:"day"`
		TasksCompleted int     `json:"tasks_completed"`
		HoursSpent     float64 `json:"hours_spent"`
	} `json:"weekly_progress"`
}

func (d statisticsDTO) toModel() models.Statistics {
	s := models.Statistics{
		TotalTasks:     d.TotalTasks,
		CompletedTasks: d.CompletedTasks,
		PendingTasks:   d.PendingTasks,
		CompletionRate: d.CompletionRate,
		TotalHours:     d.TotalHours,
	}
	for _, ss := range d.SubjectStats {
		s.Subjects = append(s.Subjects, models.SubjectStats{
			SubjectName:    ss.SubjectName,
			TasksCompleted: ss.CompletedTasks,
			HoursSpent:     ss.TotalTimeHours,
		})
	}
	for _, w := range d.WeeklyProgress {
		s.Weekly = append(s.Weekly, models.DayProgress{
			Day:            w.Day,
			TasksCompleted: w.TasksCompleted,
			HoursSpent:     w.HoursSpent,
		})
	}
	return s
}
