// Package calendar composes day and week views of the schedule.
package calendar

import (
	"time"

	"studyplan/internal/layout"
	"studyplan/internal/session"
)

// View is the navigable state of the calendar page.
type View struct {
	Mode      session.ViewMode
	Reference time.Time
	Selection Selection

	grid layout.Grid
	now  func() time.Time
}

// NewView returns a view of mode around ref. An unknown mode falls back to week.
func NewView(grid layout.Grid, mode session.ViewMode, ref time.Time) *View {
	if !mode.Valid() {
		mode = session.ViewWeek
	}
	return &View{Mode: mode, Reference: grid.Date(ref), grid: grid, now: time.Now}
}

func (v *View) Grid() layout.Grid {
	return v.grid
}

func (v *View) step() int {
	if v.Mode == session.ViewDay {
		return 1
	}
	return layout.DaysPerWeek
}

// Next moves forward one week, or one day in day mode.
func (v *View) Next() {
	v.Reference = v.Reference.AddDate(0, 0, v.step())
	v.Selection.Close()
}

// Prev moves back one week, or one day in day mode.
func (v *View) Prev() {
	v.Reference = v.Reference.AddDate(0, 0, -v.step())
	v.Selection.Close()
}

// Today moves the reference to the current date.
func (v *View) Today() {
	v.Reference = v.grid.Date(v.now())
	v.Selection.Close()
}

// SetMode switches between day and week mode, keeping the reference date.
func (v *View) SetMode(mode session.ViewMode) {
	if mode.Valid() {
		v.Mode = mode
	}
}

// Days returns the dates rendered in the current mode.
func (v *View) Days() []time.Time {
	if v.Mode == session.ViewDay {
		return []time.Time{v.grid.Date(v.Reference)}
	}
	return v.grid.WeekWindow(v.Reference)
}
