package session

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// ViewMode selects how the calendar is shown.
type ViewMode string

const (
	ViewWeek ViewMode = "week"
	ViewDay  ViewMode = "day"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewWeek || m == ViewDay
}

// TaskViewMode selects how task lists are shown.
type TaskViewMode string

const (
	TaskViewList   TaskViewMode = "list"
	TaskViewKanban TaskViewMode = "kanban"
)

// Preferences are UI choices remembered between runs.
type Preferences struct {
	CalendarView ViewMode     `json:"calendar_view"`
	TaskView     TaskViewMode `json:"task_view"`
}

// DefaultPreferences returns the preferences used when nothing valid is stored.
func DefaultPreferences() Preferences {
	return Preferences{CalendarView: ViewWeek, TaskView: TaskViewList}
}

// LoadPreferences reads preferences from path. Persistence is best effort:
// a missing or unreadable file, or an invalid field, falls back to defaults.
func LoadPreferences(logger *slog.Logger, path string) Preferences {
	prefs := DefaultPreferences()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("Failed to read preferences, using defaults", "path", path, "error", err)
		}
		return prefs
	}

	var stored Preferences
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Debug("Failed to parse preferences, using defaults", "path", path, "error", err)
		return prefs
	}
	if stored.CalendarView.Valid() {
		prefs.CalendarView = stored.CalendarView
	}
	if stored.TaskView == TaskViewList || stored.TaskView == TaskViewKanban {
		prefs.TaskView = stored.TaskView
	}
	return prefs
}

// SavePreferences writes preferences to path. Failures are logged and otherwise ignored.
func SavePreferences(logger *slog.Logger, path string, prefs Preferences) {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err == nil {
		if err = os.MkdirAll(filepath.Dir(path), 0o700); err == nil {
			err = os.WriteFile(path, data, 0o600)
		}
	}
	if err != nil {
		logger.Debug("Failed to save preferences", "path", path, "error", err)
	}
}
