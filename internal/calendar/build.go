package calendar

import (
	"sort"
	"time"

	"studyplan/internal/models"
	"studyplan/internal/session"
)

// DefaultColor is used when neither the event nor its subject names a color.
const DefaultColor = "blue"

// Block is one event positioned in a day column.
type Block struct {
	Event           models.ScheduleEvent `json:"-"`
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	SubjectName     string               `json:"subject,omitempty"`
	Color           string               `json:"color"`
	Start           time.Time            `json:"start"`
	End             time.Time            `json:"end"`
	DurationMinutes int                  `json:"duration_minutes"`
	Buckets         []int                `json:"buckets"`
	Top             float64              `json:"top"`
	BlockHeight     int                  `json:"block_height"`
	MarginTop       int                  `json:"margin_top"`
	MarginBottom    int                  `json:"margin_bottom"`
	Height          int                  `json:"height"`
	Selected        bool                 `json:"selected,omitempty"`
}

// Day is one rendered column.
type Day struct {
	Date   time.Time `json:"date"`
	Height float64   `json:"height"`
	Blocks []Block   `json:"blocks"`
}

// Layout is the full geometry of a rendered view.
type Layout struct {
	Mode       session.ViewMode `json:"mode"`
	Reference  time.Time        `json:"reference"`
	HourHeight float64          `json:"hour_height"`
	Stale      bool             `json:"stale,omitempty"`
	Days       []Day            `json:"days"`
}

// Build lays out events for the view's days. Subjects are looked up by ID for
// labels and colors; missing subjects are tolerated.
func (v *View) Build(events []models.ScheduleEvent, subjects map[string]models.Subject) Layout {
	out := Layout{
		Mode:       v.Mode,
		Reference:  v.Reference,
		HourHeight: v.grid.HourHeight,
	}
	for _, date := range v.Days() {
		dayEvents := v.grid.EventsOn(events, date)
		sort.SliceStable(dayEvents, func(i, j int) bool {
			return dayEvents[i].StartTime.Before(dayEvents[j].StartTime)
		})

		day := Day{Date: date, Height: v.grid.TotalDayHeight(), Blocks: []Block{}}
		for _, pl := range v.grid.PlaceDay(dayEvents) {
			subject := subjects[pl.Event.SubjectID]
			day.Blocks = append(day.Blocks, Block{
				Event:           pl.Event,
				ID:              pl.Event.ID,
				Title:           pl.Event.Title,
				SubjectName:     subject.Name,
				Color:           ResolveColor(pl.Event, subject),
				Start:           pl.Event.StartTime.In(date.Location()),
				End:             pl.Event.EndTime.In(date.Location()),
				DurationMinutes: pl.DurationMinutes,
				Buckets:         pl.Buckets,
				Top:             pl.Top,
				BlockHeight:     pl.BlockHeight,
				MarginTop:       pl.MarginTop,
				MarginBottom:    pl.MarginBottom,
				Height:          pl.Height,
				Selected:        v.Selection.IsOpen(pl.Event.ID),
			})
		}
		out.Days = append(out.Days, day)
	}
	return out
}

// ResolveColor picks the event's own color tag, then its subject's, then DefaultColor.
func ResolveColor(e models.ScheduleEvent, subject models.Subject) string {
	if e.Color != "" {
		return e.Color
	}
	if subject.Color != "" {
		return subject.Color
	}
	return DefaultColor
}

// Detail is the content of an event popover.
type Detail struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	SubjectName     string    `json:"subject,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Description     string    `json:"description,omitempty"`
	Color           string    `json:"color"`
}

// Popover returns the detail of the block with id.
func (l Layout) Popover(id string) (Detail, bool) {
	for _, d := range l.Days {
		for _, b := range d.Blocks {
			if b.ID != id {
				continue
			}
			return Detail{
				ID:              b.ID,
				Title:           b.Title,
				SubjectName:     b.SubjectName,
				Start:           b.Start,
				End:             b.End,
				DurationMinutes: b.DurationMinutes,
				Description:     b.Event.Description,
				Color:           b.Color,
			}, true
		}
	}
	return Detail{}, false
}

// Selected returns the detail of the block whose popover is open.
func (l Layout) Selected() (Detail, bool) {
	for _, d := range l.Days {
		for _, b := range d.Blocks {
			if b.Selected {
				return l.Popover(b.ID)
			}
		}
	}
	return Detail{}, false
}
