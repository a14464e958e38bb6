package layout

import (
	"math"
	"time"
)

const (
	// DefaultHourHeight is the pixel height of one hour row.
	DefaultHourHeight = 120
	// HoursPerDay is the number of hour rows in a day column.
	HoursPerDay = 24
	// DaysPerWeek is the number of columns in week mode.
	DaysPerWeek = 7
)

// Grid holds the geometry of a day column.
type Grid struct {
	HourHeight float64        // Pixels per hour
	Location   *time.Location // Zone used to derive local hours and calendar dates
}

// NewGrid returns a Grid, substituting defaults for a non-positive height or nil location.
func NewGrid(hourHeight float64, loc *time.Location) Grid {
	if hourHeight <= 0 {
		hourHeight = DefaultHourHeight
	}
	if loc == nil {
		loc = time.Local
	}
	return Grid{HourHeight: hourHeight, Location: loc}
}

func (g Grid) loc() *time.Location {
	if g.Location == nil {
		return time.Local
	}
	return g.Location
}

// TotalDayHeight is the fixed height of every day column.
func (g Grid) TotalDayHeight() float64 {
	return HoursPerDay * g.HourHeight
}

// TopOffset returns the vertical offset of t within its local day column.
func (g Grid) TopOffset(t time.Time) float64 {
	lt := t.In(g.loc())
	return float64(lt.Hour())*g.HourHeight + float64(lt.Minute())*(g.HourHeight/60)
}

// DurationMinutes rounds the span between start and end to whole minutes.
// Inverted spans yield 0.
func DurationMinutes(start, end time.Time) int {
	m := math.Round(end.Sub(start).Minutes())
	if m < 0 {
		return 0
	}
	return int(m)
}

// BlockHeight is the bucketed pixel height of an event spanning start..end.
func (g Grid) BlockHeight(start, end time.Time) int {
	return HeightForDuration(DurationMinutes(start, end))
}

// Date truncates t to local midnight.
func (g Grid) Date(t time.Time) time.Time {
	lt := t.In(g.loc())
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, g.loc())
}

// SameDay reports whether t falls on the local calendar date of day.
func (g Grid) SameDay(t, day time.Time) bool {
	ay, am, ad := t.In(g.loc()).Date()
	by, bm, bd := day.In(g.loc()).Date()
	return ay == by && am == bm && ad == bd
}

// WeekStart returns local midnight of the Monday of the ISO week containing ref.
func (g Grid) WeekStart(ref time.Time) time.Time {
	d := g.Date(ref)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekWindow returns the seven consecutive dates, Monday first, of the week containing ref.
func (g Grid) WeekWindow(ref time.Time) []time.Time {
	start := g.WeekStart(ref)
	days := make([]time.Time, DaysPerWeek)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}
