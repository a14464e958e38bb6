package models

import (
	"fmt"
	"time"
)

// Default break configuration offered by the generation dialog.
const (
	DefaultShortBreakMinutes     = 5
	DefaultMediumBreakMinutes    = 15
	DefaultLongBreakMinutes      = 30
	DefaultLongBreakAfterMinutes = 90
)

// Field names used in validation errors. They match the backend's query parameter names.
const (
	FieldEndDate               = "end_date"
	FieldShortBreakMinutes     = "short_break_minutes"
	FieldMediumBreakMinutes    = "medium_break_minutes"
	FieldLongBreakMinutes      = "long_break_minutes"
	FieldLongBreakAfterMinutes = "long_break_after_minutes"
)

// ValidationError is a local, field-specific rejection raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// GenerateScheduleParams configures a schedule generation request.
type GenerateScheduleParams struct {
	EndDate               *time.Time // Optional bound; nil means open-ended generation
	ShortBreakMinutes     int
	MediumBreakMinutes    int
	LongBreakMinutes      int
	LongBreakAfterMinutes int
}

// DefaultGenerateScheduleParams returns the dialog's initial values.
func DefaultGenerateScheduleParams() GenerateScheduleParams {
	return GenerateScheduleParams{
		ShortBreakMinutes:     DefaultShortBreakMinutes,
		MediumBreakMinutes:    DefaultMediumBreakMinutes,
		LongBreakMinutes:      DefaultLongBreakMinutes,
		LongBreakAfterMinutes: DefaultLongBreakAfterMinutes,
	}
}

type breakRange struct {
	field    string
	min, max int
	message  string
}

var breakRanges = []breakRange{
	{FieldShortBreakMinutes, 1, 60, "short break must be between 1 and 60 minutes"},
	{FieldMediumBreakMinutes, 1, 60, "medium break must be between 1 and 60 minutes"},
	{FieldLongBreakMinutes, 1, 120, "long break must be between 1 and 120 minutes"},
	{FieldLongBreakAfterMinutes, 15, 480, "long break threshold must be between 15 and 480 minutes"},
}

// Validate checks every break parameter against its range, in dialog order,
// and returns the first violation.
func (p GenerateScheduleParams) Validate() error {
	values := []int{p.ShortBreakMinutes, p.MediumBreakMinutes, p.LongBreakMinutes, p.LongBreakAfterMinutes}
	for i, r := range breakRanges {
		if values[i] < r.min || values[i] > r.max {
			return &ValidationError{Field: r.field, Message: r.message}
		}
	}
	return nil
}
