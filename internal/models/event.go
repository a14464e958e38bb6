package models

import "time"

// ScheduleEvent represents a single scheduled study session or break.
// This is an internal representation, independent of the backend's wire format.
type ScheduleEvent struct {
	ID          string    // Opaque identifier, stable across refetches
	TaskID      string    // Originating task, empty when the event has none (e.g. breaks)
	SubjectID   string    // Subject used for label/color lookup, may be empty
	Title       string    // Display title
	Description string    // Free text, may be empty
	StartTime   time.Time // Start of the event (UTC on the wire)
	EndTime     time.Time // End of the event, expected to be after StartTime
	Color       string    // Color override tag ("red", "yellow", ...), empty to derive from subject
}

// Duration returns the raw length of the event.
func (e ScheduleEvent) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// GeneratedScheduleResult is the backend's acknowledgement of a generation request.
type GeneratedScheduleResult struct {
	Message        string
	EntriesCreated int
}
